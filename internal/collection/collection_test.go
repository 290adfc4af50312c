package collection

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"jasondb/internal/dberr"
	"jasondb/internal/document"
	"jasondb/internal/idgen"
	"jasondb/internal/persistence"
)

func sequentialIDs() idgen.Generator {
	n := 0
	return idgen.Func(func() string {
		n++
		return fmt.Sprintf("id%d", n)
	})
}

func newTestCollection(t *testing.T, initial string) *Collection {
	t.Helper()
	path := filepath.Join(t.TempDir(), "things.json")
	if initial != "" {
		if err := os.WriteFile(path, []byte(initial), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return New("things", path, persistence.NewFileStorage(), sequentialIDs())
}

func render(docs ...*document.Map) string {
	out, err := document.MarshalMaps(docs, 0)
	if err != nil {
		return err.Error()
	}
	return string(out)
}

func stored(t *testing.T, c *Collection) string {
	t.Helper()
	return render(persistence.NewFileStorage().Read(c.Path())...)
}

func obj(s string) *document.Map { return document.MustParseObject(s) }

func TestCreate(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t, "")

	all, err := c.Create(ctx, document.MustParse(`{"name":"a","_id":"x"}`))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if diff := cmp.Diff(`[{"_id":"x","name":"a"}]`, render(all...)); diff != "" {
		t.Errorf("create result mismatch (-want +got):\n%s", diff)
	}

	all, err = c.Create(ctx, document.MustParse(`[{"name":"b"},{"name":"c","_id":null},{"_id":7}]`))
	if err != nil {
		t.Fatalf("bulk Create: %v", err)
	}
	want := `[{"_id":"x","name":"a"},{"_id":"id1","name":"b"},{"_id":"id2","name":"c"},{"_id":7}]`
	if diff := cmp.Diff(want, render(all...)); diff != "" {
		t.Errorf("bulk create result mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, stored(t, c)); diff != "" {
		t.Errorf("stored mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateDoesNotMutateInput(t *testing.T) {
	c := newTestCollection(t, "")
	in := document.MustParse(`{"name":"a"}`)
	if _, err := c.Create(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	if in.Map().Has("_id") {
		t.Error("Create added _id to the caller's document")
	}
}

func TestCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t, "")

	if _, err := c.Create(ctx, document.MustParse(`{"_id":"x","v":1}`)); err != nil {
		t.Fatal(err)
	}
	_, err := c.Create(ctx, document.MustParse(`{"_id":"x","v":2}`))
	var dup *dberr.DuplicateIDError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v, want DuplicateIDError", err)
	}
	if dup.Collection != "things" || dup.ID.Str() != "x" {
		t.Errorf("got %+v", dup)
	}
	if diff := cmp.Diff(`[{"_id":"x","v":1}]`, stored(t, c)); diff != "" {
		t.Errorf("stored mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateBulkKeepsDocumentsBeforeConflict(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t, `[{"_id":"x"}]`)

	_, err := c.Create(ctx, document.MustParse(`[{"_id":"a"},{"_id":"x"},{"_id":"b"}]`))
	if !errors.Is(err, dberr.ErrDuplicateID) {
		t.Fatalf("err = %v, want ErrDuplicateID", err)
	}
	if diff := cmp.Diff(`[{"_id":"x"},{"_id":"a"}]`, stored(t, c)); diff != "" {
		t.Errorf("stored mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateDuplicateWithinOneCall(t *testing.T) {
	c := newTestCollection(t, "")
	_, err := c.Create(context.Background(), document.MustParse(`[{"_id":1},{"_id":1}]`))
	if !errors.Is(err, dberr.ErrDuplicateID) {
		t.Fatalf("err = %v, want ErrDuplicateID", err)
	}
	if diff := cmp.Diff(`[{"_id":1}]`, stored(t, c)); diff != "" {
		t.Errorf("stored mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		data document.Value
		want string
	}{
		{"string", document.StringValue("doc"), "string"},
		{"number", document.IntValue(3), "number"},
		{"null", document.NullValue(), "null"},
		{"array with scalar", document.MustParse(`[{"a":1},2]`), "number"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestCollection(t, `[{"_id":"keep"}]`)
			_, err := c.Create(context.Background(), tc.data)
			var shape *dberr.DataShapeError
			if !errors.As(err, &shape) {
				t.Fatalf("err = %v, want DataShapeError", err)
			}
			if shape.Got != tc.want || !shape.Bulk {
				t.Errorf("got %+v, want Got=%q Bulk=true", shape, tc.want)
			}
			if diff := cmp.Diff(`[{"_id":"keep"}]`, stored(t, c)); diff != "" {
				t.Errorf("collection changed (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCount(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t, "")
	if n, err := c.Count(ctx); err != nil || n != 0 {
		t.Errorf("Count on missing file = %d, %v", n, err)
	}
	if _, err := c.Create(ctx, document.MustParse(`[{},{},{}]`)); err != nil {
		t.Fatal(err)
	}
	if n, _ := c.Count(ctx); n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

const people = `[{"_id":1,"age":5},{"_id":2,"age":7},{"_id":3,"age":5}]`

func TestFind(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t, people)

	docs, err := c.Find(ctx, obj(`{"age":5}`), true)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(`[{"_id":1,"age":5},{"_id":3,"age":5}]`, render(docs...)); diff != "" {
		t.Errorf("Find mismatch (-want +got):\n%s", diff)
	}

	all, _ := c.Find(ctx, nil, true)
	if len(all) != 3 {
		t.Errorf("Find(nil) returned %d documents, want 3", len(all))
	}

	one, _ := c.FindOne(ctx, obj(`{"age":7}`))
	if one == nil || one.Get("_id").Float() != 2 {
		t.Errorf("FindOne = %v", one)
	}
	firstDoc, _ := c.FindOne(ctx, nil)
	if firstDoc == nil || firstDoc.Get("_id").Float() != 1 {
		t.Errorf("FindOne(nil) = %v, want the first document", firstDoc)
	}
	if none, _ := c.FindOne(ctx, obj(`{"age":1}`)); none != nil {
		t.Errorf("FindOne without a match = %v, want nil", none)
	}

	byID, _ := c.FindByID(ctx, document.IntValue(3))
	if byID == nil || byID.Get("_id").Float() != 3 {
		t.Errorf("FindByID(3) = %v", byID)
	}
	if missing, _ := c.FindByID(ctx, document.Value{}); missing != nil {
		t.Errorf("FindByID(undefined) = %v, want nil", missing)
	}
}

func TestUpdateScenario(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t, people)

	updated, err := c.Update(ctx, obj(`{"age":5}`), document.MustParse(`{"age":99}`), true)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(`[{"_id":3,"age":99},{"_id":1,"age":99}]`, render(updated...)); diff != "" {
		t.Errorf("updated mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(`[{"_id":1,"age":99},{"_id":2,"age":7},{"_id":3,"age":99}]`, stored(t, c)); diff != "" {
		t.Errorf("stored mismatch (-want +got):\n%s", diff)
	}

	found, _ := c.Find(ctx, obj(`{"age":99}`), true)
	if len(found) != 2 {
		t.Errorf("Find after update returned %d documents, want 2", len(found))
	}
}

func TestUpdateNested(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t, `[{"_id":"u","profile":{"name":"a","city":"x"}}]`)

	doc, err := c.UpdateByID(ctx, document.StringValue("u"), document.MustParse(`{"profile":{"city":"y"},"_id":"hijack"}`))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(`{"_id":"u","profile":{"name":"a","city":"y"}}`, doc.String()); diff != "" {
		t.Errorf("UpdateByID mismatch (-want +got):\n%s", diff)
	}
	if missing, _ := c.UpdateByID(ctx, document.StringValue("nope"), document.MustParse(`{"a":1}`)); missing != nil {
		t.Errorf("UpdateByID(missing) = %v, want nil", missing)
	}
}

func TestUpdateOne(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t, people)

	doc, err := c.UpdateOne(ctx, obj(`{"age":5}`), document.MustParse(`{"flag":true}`))
	if err != nil {
		t.Fatal(err)
	}
	if doc == nil || doc.Get("_id").Float() != 1 {
		t.Errorf("UpdateOne = %v", doc)
	}
	if diff := cmp.Diff(`[{"_id":1,"age":5,"flag":true},{"_id":2,"age":7},{"_id":3,"age":5}]`, stored(t, c)); diff != "" {
		t.Errorf("stored mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateRejectsNonObject(t *testing.T) {
	c := newTestCollection(t, people)
	for _, data := range []document.Value{document.MustParse(`[1]`), document.StringValue("x"), {}} {
		_, err := c.Update(context.Background(), nil, data, true)
		var shape *dberr.DataShapeError
		if !errors.As(err, &shape) || shape.Bulk {
			t.Errorf("Update(%v) err = %v, want single-document DataShapeError", data, err)
		}
	}
	if diff := cmp.Diff(people, stored(t, c)); diff != "" {
		t.Errorf("collection changed (-want +got):\n%s", diff)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t, people)

	deleted, err := c.Delete(ctx, obj(`{"age":5}`), true)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(`[{"_id":3,"age":5},{"_id":1,"age":5}]`, render(deleted...)); diff != "" {
		t.Errorf("deleted mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(`[{"_id":2,"age":7}]`, stored(t, c)); diff != "" {
		t.Errorf("stored mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteAll(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t, people)

	deleted, err := c.Delete(ctx, document.NewMap(), true)
	if err != nil {
		t.Fatal(err)
	}
	if len(deleted) != 3 {
		t.Errorf("deleted %d documents, want 3", len(deleted))
	}
	if stored(t, c) != "[]" {
		t.Errorf("stored = %s, want []", stored(t, c))
	}
	if rest, _ := c.Find(ctx, nil, true); len(rest) != 0 {
		t.Errorf("Find after delete-all = %v", rest)
	}
}

func TestDeleteOneAndByID(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t, people)

	doc, err := c.DeleteOne(ctx, obj(`{"age":5}`))
	if err != nil || doc == nil || doc.Get("_id").Float() != 1 {
		t.Fatalf("DeleteOne = %v, %v", doc, err)
	}
	doc, err = c.DeleteByID(ctx, document.IntValue(2))
	if err != nil || doc == nil || doc.Get("_id").Float() != 2 {
		t.Fatalf("DeleteByID = %v, %v", doc, err)
	}
	if diff := cmp.Diff(`[{"_id":3,"age":5}]`, stored(t, c)); diff != "" {
		t.Errorf("stored mismatch (-want +got):\n%s", diff)
	}
	if doc, _ := c.DeleteByID(ctx, document.IntValue(2)); doc != nil {
		t.Errorf("second DeleteByID = %v, want nil", doc)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newTestCollection(t, people)
	if _, err := c.Delete(ctx, nil, true); !errors.Is(err, context.Canceled) {
		t.Errorf("Delete err = %v, want context.Canceled", err)
	}
	if diff := cmp.Diff(people, stored(t, c)); diff != "" {
		t.Errorf("collection changed (-want +got):\n%s", diff)
	}
}
