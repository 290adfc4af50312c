package document

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseKeepsKeyOrder(t *testing.T) {
	m := MustParseObject(`{"z": 1, "a": {"y": true, "b": null}, "m": [1, "two"]}`)

	if diff := cmp.Diff([]string{"z", "a", "m"}, m.Keys()); diff != "" {
		t.Errorf("top-level keys mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"y", "b"}, m.Get("a").Map().Keys()); diff != "" {
		t.Errorf("nested keys mismatch (-want +got):\n%s", diff)
	}
	if got := m.Get("m").Items()[1].Str(); got != "two" {
		t.Errorf("m[1] = %q, want %q", got, "two")
	}
	if m.Get("a").Field("b").Kind() != Null {
		t.Errorf("a.b kind = %s, want null", m.Get("a").Field("b").Kind())
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"truncated":      `{"a": 5`,
		"trailing":       `{"a": 1} x`,
		"two values":     `1 2`,
		"bad literal":    `tru`,
		"bad number":     `1e`,
		"unquoted field": `{a: 1}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(input)); err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", input)
			}
		})
	}
}

func TestParseTopLevelScalars(t *testing.T) {
	if v := MustParse(` 42 `); v.Kind() != Number || v.Float() != 42 {
		t.Errorf("got %v, want number 42", v)
	}
	if v := MustParse(`7`); v.Float() != 7 {
		t.Errorf("got %v, want 7", v)
	}
	if v := MustParse(`"x"`); v.Str() != "x" {
		t.Errorf("got %v, want \"x\"", v)
	}
}

func TestParseObjectRejectsOtherKinds(t *testing.T) {
	_, err := ParseObject([]byte(`[1, 2]`))
	if !errors.Is(err, ErrNotObject) {
		t.Fatalf("err = %v, want ErrNotObject", err)
	}
}

func TestMarshalIndented(t *testing.T) {
	m := MustParseObject(`{"_id":"a","n":{"x":1.50},"l":[],"e":{}}`)
	got, err := Marshal(ObjectValue(m), 2)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n" +
		"  \"_id\": \"a\",\n" +
		"  \"n\": {\n" +
		"    \"x\": 1.50\n" +
		"  },\n" +
		"  \"l\": [],\n" +
		"  \"e\": {}\n" +
		"}"
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("Marshal mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalCompactRoundTrip(t *testing.T) {
	in := `{"b":[true,false,null],"a":"<tag> & \"q\"","n":-3.25e2}`
	v := MustParse(in)
	out, err := Marshal(v, 0)
	if err != nil {
		t.Fatal(err)
	}
	back := MustParse(string(out))
	if !v.StrictEqual(back) {
		t.Errorf("round trip changed value: %s -> %s", in, out)
	}
	if diff := cmp.Diff([]string{"b", "a", "n"}, back.Map().Keys()); diff != "" {
		t.Errorf("round trip changed key order (-want +got):\n%s", diff)
	}
}

func TestMarshalMapsAndParseMaps(t *testing.T) {
	docs := []*Map{
		MustParseObject(`{"_id":1,"age":5}`),
		MustParseObject(`{"_id":2}`),
	}
	data, err := MarshalMaps(docs, 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `[{"_id":1,"age":5},{"_id":2}]` {
		t.Errorf("MarshalMaps = %s", data)
	}

	back, err := ParseMaps(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 2 || !back[0].Equal(docs[0]) || !back[1].Equal(docs[1]) {
		t.Errorf("ParseMaps = %v", back)
	}

	if _, err := ParseMaps([]byte(`[{"a":1}, 3]`)); err == nil {
		t.Error("ParseMaps accepted a non-object element")
	}
	if _, err := ParseMaps([]byte(`{"a":1}`)); err == nil {
		t.Error("ParseMaps accepted an object")
	}
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Value{}, false},
		{NullValue(), false},
		{BoolValue(false), false},
		{BoolValue(true), true},
		{IntValue(0), false},
		{NumberValue(0.5), true},
		{StringValue(""), false},
		{StringValue("0"), true},
		{ArrayValue(), true},
		{ObjectValue(nil), true},
	}
	for _, tc := range cases {
		if got := tc.v.Truthy(); got != tc.want {
			t.Errorf("Truthy(%v) = %v, want %v", tc.v, got, tc.want)
		}
	}
}

func TestStrictEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same number different literal", MustParse(`1.0`), IntValue(1), true},
		{"number vs string", IntValue(1), StringValue("1"), false},
		{"null vs undefined", NullValue(), Value{}, false},
		{"arrays by value", MustParse(`[1,[2]]`), MustParse(`[1,[2]]`), true},
		{"arrays differ", MustParse(`[1,2]`), MustParse(`[2,1]`), false},
		{"objects ignore key order", MustParse(`{"a":1,"b":2}`), MustParse(`{"b":2,"a":1}`), true},
		{"objects differ", MustParse(`{"a":1}`), MustParse(`{"a":1,"b":2}`), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.StrictEqual(tc.b); got != tc.want {
				t.Errorf("StrictEqual(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestMapSetDeleteAndClone(t *testing.T) {
	m := NewMap()
	m.Set("a", IntValue(1)).Set("b", IntValue(2)).Set("a", IntValue(3))
	if diff := cmp.Diff([]string{"a", "b"}, m.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	if m.Get("a").Float() != 3 {
		t.Errorf("a = %v, want 3", m.Get("a"))
	}

	clone := m.Clone()
	clone.Set("c", StringValue("x"))
	if m.Has("c") {
		t.Error("mutating the clone changed the original")
	}

	m.Set("b", Value{})
	if m.Has("b") || m.Len() != 1 {
		t.Errorf("setting Undefined did not remove the key: %v", m)
	}

	w := clone.Without("a")
	if w.Has("a") || !clone.Has("a") {
		t.Errorf("Without: got %v from %v", w, clone)
	}
}

func TestFromSortsMapKeys(t *testing.T) {
	v, err := From(map[string]any{"b": 1, "a": []any{"x", nil, true}, "c": map[string]any{"z": 2.5}})
	if err != nil {
		t.Fatal(err)
	}
	if got := v.String(); got != `{"a":["x",null,true],"b":1,"c":{"z":2.5}}` {
		t.Errorf("From = %s", got)
	}
	if _, err := From(struct{}{}); err == nil {
		t.Error("From accepted a struct")
	}
}

func TestNumberFormatting(t *testing.T) {
	cases := map[float64]string{
		1:       "1",
		-2.5:    "-2.5",
		1e21:    "1e+21",
		1234567: "1234567",
	}
	for f, want := range cases {
		if got := NumberValue(f).String(); got != want {
			t.Errorf("NumberValue(%v) = %s, want %s", f, got, want)
		}
	}
}

func TestMapJSONInterfaces(t *testing.T) {
	var m Map
	if err := m.UnmarshalJSON([]byte(`{"k":[1]}`)); err != nil {
		t.Fatal(err)
	}
	out, err := m.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"k":[1]}` {
		t.Errorf("MarshalJSON = %s", out)
	}
	if err := m.UnmarshalJSON([]byte(`"str"`)); !errors.Is(err, ErrNotObject) {
		t.Errorf("UnmarshalJSON(string) err = %v, want ErrNotObject", err)
	}
}
