package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"

	"jasondb/internal/database"
	"jasondb/internal/document"
)

func newTestCLI(t *testing.T) (*cli, *bytes.Buffer) {
	t.Helper()
	color.NoColor = true

	db, err := database.Open(context.Background(), t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	c := newCLI(db, "")
	out := &bytes.Buffer{}
	c.out = out
	return c, out
}

// run executes a line and fails the test if the command reported an error.
func run(t *testing.T, c *cli, out *bytes.Buffer, line string) string {
	t.Helper()
	out.Reset()
	if exit := c.execute(line); exit {
		t.Fatalf("%q asked to exit", line)
	}
	got := out.String()
	if strings.Contains(got, "Command failed") || strings.Contains(got, "Unknown command") {
		t.Fatalf("%q failed:\n%s", line, got)
	}
	return got
}

func TestGetCommandAndRawArgs(t *testing.T) {
	c, _ := newTestCLI(t)

	cases := []struct {
		input, cmd, args string
	}{
		{"find", "find", ""},
		{`find users {"a":1}`, "find", `users {"a":1}`},
		{`find one users {"a":1}`, "find one", `users {"a":1}`},
		{"find id users abc", "find id", "users abc"},
		{"findone", "findone", ""},
		{"collection load a b", "collection load", "a b"},
		{"delete   one  x", "delete", "one  x"},
	}
	for _, tc := range cases {
		cmd, args := c.getCommandAndRawArgs(tc.input)
		if cmd != tc.cmd || args != tc.args {
			t.Errorf("getCommandAndRawArgs(%q) = (%q, %q), want (%q, %q)", tc.input, cmd, args, tc.cmd, tc.args)
		}
	}
}

func TestNextPayload(t *testing.T) {
	cases := []struct {
		in, payload, rest string
	}{
		{`{"a": {"b": "x y"}} {"c": 2}`, `{"a": {"b": "x y"}}`, `{"c": 2}`},
		{`[1, 2]`, `[1, 2]`, ""},
		{`file:/tmp/x.json {"c":2}`, "file:/tmp/x.json", `{"c":2}`},
		{"  -  ", "-", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		payload, rest, err := nextPayload(tc.in)
		if err != nil {
			t.Errorf("nextPayload(%q) error: %v", tc.in, err)
			continue
		}
		if payload != tc.payload || rest != tc.rest {
			t.Errorf("nextPayload(%q) = (%q, %q), want (%q, %q)", tc.in, payload, rest, tc.payload, tc.rest)
		}
	}
}

func TestParseID(t *testing.T) {
	if v := parseID("7"); v.Kind() != document.Number || v.Float() != 7 {
		t.Errorf("parseID(7) = %v, want number", v)
	}
	if v := parseID(`"7"`); v.Kind() != document.String || v.Str() != "7" {
		t.Errorf(`parseID("7") = %v, want string`, v)
	}
	if v := parseID("abc123"); v.Str() != "abc123" {
		t.Errorf("parseID(abc123) = %v, want bare string", v)
	}
	if v := parseID("true"); v.Str() != "true" {
		t.Errorf("parseID(true) = %v, want the string \"true\"", v)
	}
}

func TestResolveCollectionNameNeedsUse(t *testing.T) {
	c, _ := newTestCLI(t)
	if _, _, err := c.resolveCollectionName(`{"a":1}`); err == nil {
		t.Fatal("expected an error with no collection in use")
	}

	c.currentCollection = "users"
	name, rest, err := c.resolveCollectionName(`{"a":1}`)
	if err != nil || name != "users" || rest != `{"a":1}` {
		t.Errorf("got (%q, %q, %v)", name, rest, err)
	}
	name, rest, _ = c.resolveCollectionName(`orders {"a":1}`)
	if name != "orders" || rest != `{"a":1}` {
		t.Errorf("explicit collection: got (%q, %q)", name, rest)
	}
}

func TestShellSession(t *testing.T) {
	c, out := newTestCLI(t)

	run(t, c, out, "collection load users")
	run(t, c, out, "use users")
	if got := c.prompt(); got != "users> " {
		t.Errorf("prompt = %q", got)
	}

	got := run(t, c, out, `create [{"_id": "a", "name": "Ada"}, {"_id": "b", "name": "Bob"}]`)
	if !strings.Contains(got, "now holds 2 document(s)") {
		t.Errorf("create output:\n%s", got)
	}

	got = run(t, c, out, `update id a {"name": "Ada Lovelace", "_id": "ignored"}`)
	if !strings.Contains(got, "Ada Lovelace") {
		t.Errorf("update id output:\n%s", got)
	}

	got = run(t, c, out, `find users {"name": "Ada Lovelace"}`)
	if !strings.Contains(got, "found 1 document(s)") {
		t.Errorf("find output:\n%s", got)
	}

	got = run(t, c, out, "find id b")
	if !strings.Contains(got, "Bob") {
		t.Errorf("find id output:\n%s", got)
	}

	got = run(t, c, out, `delete one {"_id": "b"}`)
	if !strings.Contains(got, "deleted 1 document(s)") {
		t.Errorf("delete one output:\n%s", got)
	}

	got = run(t, c, out, "count")
	if !strings.Contains(got, "'users' holds 1 document(s)") {
		t.Errorf("count output:\n%s", got)
	}

	coll, _ := c.db.Collection("users")
	docs, err := coll.Find(context.Background(), nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(`[{"_id":"a","name":"Ada Lovelace"}]`, string(mustMarshal(t, docs))); diff != "" {
		t.Errorf("stored documents mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateFromFile(t *testing.T) {
	c, out := newTestCLI(t)
	run(t, c, out, "collection load items")

	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte(`{"_id": 1, "tags": ["x"]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	got := run(t, c, out, "create items file:"+path)
	if !strings.Contains(got, "now holds 1 document(s)") {
		t.Errorf("create output:\n%s", got)
	}

	got = run(t, c, out, "find id items 1")
	if !strings.Contains(got, `["x"]`) {
		t.Errorf("find id output:\n%s", got)
	}
}

func TestCommandErrors(t *testing.T) {
	c, out := newTestCLI(t)

	cases := map[string]string{
		"bogus":               "Unknown command",
		"count":               "no collection name provided",
		"count ghosts":        "is not loaded",
		"use ghosts":          "is not loaded",
		"destroy":             "usage: destroy confirm",
		"collection load a/b": "collections array",
	}
	for line, want := range cases {
		out.Reset()
		c.execute(line)
		if !strings.Contains(out.String(), want) {
			t.Errorf("%q: output %q does not mention %q", line, out.String(), want)
		}
	}

	run(t, c, out, "collection load users")
	out.Reset()
	c.execute(`create users {"_id": "x"}`)
	c.execute(`create users {"_id": "x"}`)
	if !strings.Contains(out.String(), "already exists") {
		t.Errorf("duplicate create output:\n%s", out.String())
	}
}

func TestCollectionDeleteAndDestroy(t *testing.T) {
	c, out := newTestCLI(t)
	run(t, c, out, "collection load a b")
	run(t, c, out, "use a")

	got := run(t, c, out, "collection list")
	if !strings.Contains(got, "a") || !strings.Contains(got, "b") {
		t.Errorf("collection list output:\n%s", got)
	}

	run(t, c, out, "collection delete a")
	if c.currentCollection != "" {
		t.Errorf("current collection = %q after deleting it", c.currentCollection)
	}

	got = run(t, c, out, "destroy confirm")
	if !strings.Contains(got, "deleted 'b'") {
		t.Errorf("destroy output:\n%s", got)
	}
	if names := c.db.Names(); len(names) != 0 {
		t.Errorf("Names after destroy = %v", names)
	}
}

func TestExit(t *testing.T) {
	c, _ := newTestCLI(t)
	if !c.execute("exit") {
		t.Error("exit did not end the session")
	}
}

func mustMarshal(t *testing.T, docs []*document.Map) []byte {
	t.Helper()
	b, err := document.MarshalMaps(docs, 0)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
