// Package collection exposes the operations on a single collection file.
//
// Every call reads the whole file, and every mutating call writes the whole
// result back. Nothing here coordinates concurrent callers; hosts that share
// a Collection between goroutines must serialize access themselves.
package collection

import (
	"context"
	"log/slog"

	"jasondb/internal/dberr"
	"jasondb/internal/document"
	"jasondb/internal/globalconst"
	"jasondb/internal/idgen"
	"jasondb/internal/persistence"
	"jasondb/internal/query"
)

// Collection is a named collection backed by one storage path.
type Collection struct {
	name    string
	path    string
	storage persistence.Storage
	ids     idgen.Generator
}

// New returns the collection called name stored at path.
func New(name, path string, storage persistence.Storage, ids idgen.Generator) *Collection {
	if ids == nil {
		ids = idgen.UUID{}
	}
	return &Collection{name: name, path: path, storage: storage, ids: ids}
}

// Name returns the collection's name.
func (c *Collection) Name() string { return c.name }

// Path returns the storage path backing the collection.
func (c *Collection) Path() string { return c.path }

// Count returns the number of stored documents.
func (c *Collection) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(c.storage.Read(c.path)), nil
}

// Create inserts a document, or every document of an array, and returns the
// entire collection as written.
//
// Each document's _id is moved to its first key; a missing or null _id is
// replaced by a generated one. If an _id is already taken, the documents
// inserted before it are kept and a DuplicateIDError is returned.
func (c *Collection) Create(ctx context.Context, data document.Value) ([]*document.Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, err := documentsOf(data)
	if err != nil {
		return nil, err
	}

	coll := c.storage.Read(c.path)
	added := 0
	for _, d := range docs {
		doc := c.withID(d)
		id := doc.Get(globalconst.ID)

		if len(query.Select(coll, idFilter(id), false)) > 0 {
			if added > 0 {
				if _, werr := c.storage.Write(ctx, c.path, coll); werr != nil {
					return nil, werr
				}
			}
			slog.Debug("Duplicate document id", "collection", c.name, "id", id.String(), "created", added)
			return nil, &dberr.DuplicateIDError{Collection: c.name, ID: id}
		}
		coll = append(coll, doc)
		added++
	}

	written, err := c.storage.Write(ctx, c.path, coll)
	if err != nil {
		return nil, err
	}
	slog.Debug("Documents created", "collection", c.name, "created", added)
	return written, nil
}

// Find returns the documents matching filter; only the first one unless many.
func (c *Collection) Find(ctx context.Context, filter *document.Map, many bool) ([]*document.Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := query.Find(c.storage.Read(c.path), filter, many)
	return query.Docs(res.Filtered), nil
}

// FindOne returns the first document matching filter, or nil.
func (c *Collection) FindOne(ctx context.Context, filter *document.Map) (*document.Map, error) {
	docs, err := c.Find(ctx, filter, false)
	return first(docs), err
}

// FindByID returns the document with the given _id, or nil.
func (c *Collection) FindByID(ctx context.Context, id document.Value) (*document.Map, error) {
	return c.FindOne(ctx, idFilter(id))
}

// Update merges data into the documents matching filter and returns them in
// reverse selection order. The _id field of data is ignored.
func (c *Collection) Update(ctx context.Context, filter *document.Map, data document.Value, many bool) ([]*document.Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !data.IsMapping() {
		return nil, &dberr.DataShapeError{Got: data.Kind().String()}
	}
	patch := data.Map().Without(globalconst.ID)

	res := query.Update(c.storage.Read(c.path), filter, patch, many)
	if _, err := c.storage.Write(ctx, c.path, res.Collection); err != nil {
		return nil, err
	}
	slog.Debug("Documents updated", "collection", c.name, "updated", len(res.Updated))
	return res.Updated, nil
}

// UpdateOne updates the first document matching filter and returns it, or
// nil when nothing matched.
func (c *Collection) UpdateOne(ctx context.Context, filter *document.Map, data document.Value) (*document.Map, error) {
	docs, err := c.Update(ctx, filter, data, false)
	return first(docs), err
}

// UpdateByID updates the document with the given _id.
func (c *Collection) UpdateByID(ctx context.Context, id, data document.Value) (*document.Map, error) {
	return c.UpdateOne(ctx, idFilter(id), data)
}

// Delete removes the documents matching filter and returns them in reverse
// selection order.
func (c *Collection) Delete(ctx context.Context, filter *document.Map, many bool) ([]*document.Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := query.Delete(c.storage.Read(c.path), filter, many)
	if _, err := c.storage.Write(ctx, c.path, res.Collection); err != nil {
		return nil, err
	}
	slog.Debug("Documents deleted", "collection", c.name, "deleted", len(res.Deleted))
	return res.Deleted, nil
}

// DeleteOne removes the first document matching filter and returns it.
func (c *Collection) DeleteOne(ctx context.Context, filter *document.Map) (*document.Map, error) {
	docs, err := c.Delete(ctx, filter, false)
	return first(docs), err
}

// DeleteByID removes the document with the given _id.
func (c *Collection) DeleteByID(ctx context.Context, id document.Value) (*document.Map, error) {
	return c.DeleteOne(ctx, idFilter(id))
}

// documentsOf validates a create payload: an object, or an array made only
// of objects.
func documentsOf(data document.Value) ([]*document.Map, error) {
	switch data.Kind() {
	case document.Object:
		return []*document.Map{data.Map()}, nil
	case document.Array:
		items := data.Items()
		docs := make([]*document.Map, 0, len(items))
		for _, item := range items {
			if !item.IsMapping() {
				return nil, &dberr.DataShapeError{Got: item.Kind().String(), Bulk: true}
			}
			docs = append(docs, item.Map())
		}
		return docs, nil
	default:
		return nil, &dberr.DataShapeError{Got: data.Kind().String(), Bulk: true}
	}
}

// withID copies d with its _id first, generating one if needed.
func (c *Collection) withID(d *document.Map) *document.Map {
	id := d.Get(globalconst.ID)
	if !id.IsDefined() || id.Kind() == document.Null {
		id = document.StringValue(c.ids.NewID())
	}

	out := document.NewMap().Set(globalconst.ID, id.Clone())
	d.Range(func(key string, v document.Value) bool {
		if key != globalconst.ID {
			out.Set(key, v.Clone())
		}
		return true
	})
	return out
}

func idFilter(id document.Value) *document.Map {
	if !id.IsDefined() {
		id = document.NullValue()
	}
	return document.NewMap().Set(globalconst.ID, id)
}

func first(docs []*document.Map) *document.Map {
	if len(docs) == 0 {
		return nil
	}
	return docs[0]
}
