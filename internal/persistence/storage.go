package persistence

import (
	"context"

	"jasondb/internal/document"
)

// Storage is everything the collection layer needs from a backing store. A
// collection is always read and written as a whole.
type Storage interface {
	// Exists reports whether something is present at path.
	Exists(path string) bool
	// Read returns the documents stored at path. Missing or unreadable
	// content reads as an empty collection.
	Read(path string) []*document.Map
	// Write replaces the content at path with docs and returns them.
	Write(ctx context.Context, path string, docs []*document.Map) ([]*document.Map, error)
	// Remove deletes path and returns what it held.
	Remove(ctx context.Context, path string) ([]*document.Map, error)
}
