// Package database manages the set of collections living in one directory.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"jasondb/internal/collection"
	"jasondb/internal/dberr"
	"jasondb/internal/document"
	"jasondb/internal/globalconst"
	"jasondb/internal/idgen"
	"jasondb/internal/persistence"
)

// Database is a directory of collection files. It is safe for concurrent
// use; the collections it hands out are not.
type Database struct {
	path    string
	storage persistence.Storage
	ids     idgen.Generator

	mu          sync.RWMutex
	names       []string
	collections map[string]*collection.Collection
	initial     []string
}

// Option customizes a Database.
type Option func(*Database)

// WithStorage replaces the default file storage.
func WithStorage(s persistence.Storage) Option {
	return func(db *Database) { db.storage = s }
}

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(g idgen.Generator) Option {
	return func(db *Database) { db.ids = g }
}

// New returns a Database rooted at path. The names are loaded by Connect.
func New(path string, names []string, opts ...Option) *Database {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	db := &Database{
		path:        abs,
		storage:     persistence.NewFileStorage(),
		ids:         idgen.UUID{},
		collections: make(map[string]*collection.Collection),
		initial:     slices.Clone(names),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Path returns the absolute directory of the database.
func (db *Database) Path() string { return db.path }

// Connect checks that the directory exists and loads the collections given
// to New.
func (db *Database) Connect(ctx context.Context) error {
	if !db.storage.Exists(db.path) {
		return &dberr.InvalidPathError{Path: db.path}
	}
	slog.Info("Database connected", "path", db.path)
	if len(db.initial) == 0 {
		return nil
	}
	return db.Load(ctx, db.initial...)
}

// Load registers the named collections, creating an empty file for any that
// does not exist yet. A trailing ".json" on a name is ignored.
func (db *Database) Load(ctx context.Context, names ...string) error {
	if !db.storage.Exists(db.path) {
		return &dberr.InvalidPathError{Path: db.path}
	}

	clean := make([]string, 0, len(names))
	var invalid []string
	for _, raw := range names {
		name := strings.TrimSuffix(raw, globalconst.DBFileExtension)
		if !validName(name) {
			invalid = append(invalid, raw)
			continue
		}
		clean = append(clean, name)
	}
	if len(invalid) > 0 {
		return &dberr.InvalidCollectionListError{Names: invalid}
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	for _, name := range clean {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := persistence.CollectionPath(db.path, name)
		if !db.storage.Exists(path) {
			if _, err := db.storage.Write(ctx, path, nil); err != nil {
				return fmt.Errorf("failed to create collection '%s': %w", name, err)
			}
			slog.Info("Collection file created", "collection", name, "path", path)
		}
		if _, ok := db.collections[name]; !ok {
			db.names = append(db.names, name)
		}
		db.collections[name] = collection.New(name, path, db.storage, db.ids)
	}
	return nil
}

// Collection returns a registered collection.
func (db *Database) Collection(name string) (*collection.Collection, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	c, ok := db.collections[strings.TrimSuffix(name, globalconst.DBFileExtension)]
	return c, ok
}

// Names returns the registered collection names in load order.
func (db *Database) Names() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return slices.Clone(db.names)
}

// Discover lists the collection files present in the directory, registered
// or not.
func (db *Database) Discover() ([]string, error) {
	return persistence.ListCollectionFiles(db.path)
}

// DeleteCollection unregisters a collection and removes its file, returning
// the documents it held.
func (db *Database) DeleteCollection(ctx context.Context, name string) ([]*document.Map, error) {
	name = strings.TrimSuffix(name, globalconst.DBFileExtension)
	if !validName(name) {
		return nil, &dberr.InvalidCollectionListError{Names: []string{name}}
	}

	db.mu.Lock()
	delete(db.collections, name)
	db.names = slices.DeleteFunc(db.names, func(n string) bool { return n == name })
	db.mu.Unlock()

	docs, err := db.storage.Remove(ctx, persistence.CollectionPath(db.path, name))
	if err != nil {
		return nil, err
	}
	slog.Info("Collection deleted", "collection", name, "documents", len(docs))
	return docs, nil
}

// Destroy deletes every registered collection and returns their documents
// keyed by name. It stops at the first failure.
func (db *Database) Destroy(ctx context.Context) (map[string][]*document.Map, error) {
	out := make(map[string][]*document.Map)
	for _, name := range db.Names() {
		docs, err := db.DeleteCollection(ctx, name)
		if err != nil {
			return out, err
		}
		out[name] = docs
	}
	return out, nil
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.ContainsRune(name, filepath.Separator)
}
