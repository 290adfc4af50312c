package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"jasondb/internal/dberr"
	"jasondb/internal/document"
	"jasondb/internal/globalconst"
)

// DefaultLockTimeout bounds how long Write and Remove wait for the lock file.
const DefaultLockTimeout = 3 * time.Second

// FileStorage keeps each collection in its own JSON file. Writes go through a
// temporary file and an atomic rename, under an advisory lock shared with any
// other process using the same directory.
type FileStorage struct {
	Indent      int           // Spaces per indentation level; 0 writes compact JSON.
	LockTimeout time.Duration // How long to wait for the lock file.
	Locks       LockFactory   // Creates the advisory locks.
}

// NewFileStorage creates a FileStorage with the default indentation, lock
// timeout and flock-backed locks.
func NewFileStorage() *FileStorage {
	return &FileStorage{
		Indent:      globalconst.DefaultIndent,
		LockTimeout: DefaultLockTimeout,
		Locks:       FlockFactory{},
	}
}

// Exists reports whether path can be stat'ed.
func (s *FileStorage) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Read loads the collection at path. A missing file, invalid JSON or
// anything other than an array of objects yields an empty collection.
func (s *FileStorage) Read(path string) []*document.Map {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Could not read collection file, treating it as empty", "path", path, "error", err)
		}
		return []*document.Map{}
	}

	docs, err := document.ParseMaps(data)
	if err != nil {
		slog.Warn("Collection file is not an array of objects, treating it as empty", "path", path, "error", err)
		return []*document.Map{}
	}
	return docs
}

// Write serializes docs and atomically replaces the file at path.
func (s *FileStorage) Write(ctx context.Context, path string, docs []*document.Map) ([]*document.Map, error) {
	if docs == nil {
		docs = []*document.Map{}
	}
	data, err := document.MarshalMaps(docs, s.Indent)
	if err != nil {
		return nil, fmt.Errorf("failed to encode collection '%s': %w", path, err)
	}

	unlock, err := s.lock(ctx, path)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := writeAtomic(path, data); err != nil {
		return nil, err
	}
	slog.Debug("Collection file written", "path", path, "documents", len(docs))
	return docs, nil
}

// Remove deletes the file at path and returns the documents it held.
func (s *FileStorage) Remove(ctx context.Context, path string) ([]*document.Map, error) {
	name := CollectionName(path)
	content := s.Read(path)

	unlock, err := s.lock(ctx, path)
	if err != nil {
		return nil, err
	}
	err = os.Remove(path)
	unlock()
	// The lock file is only a rendezvous point; losing it is harmless.
	_ = os.Remove(path + globalconst.LockFileSuffix)
	if err != nil {
		return nil, &dberr.CollectionNotFoundError{Collection: name, Path: path, Err: err}
	}

	slog.Debug("Collection file removed", "path", path, "documents", len(content))
	return content, nil
}

// writeAtomic writes data to a temporary file next to path, syncs it and
// renames it over path, so readers only ever see a complete file.
func writeAtomic(path string, data []byte) error {
	tmp := path + globalconst.TempFileSuffix

	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create temporary file '%s': %w", tmp, err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write temporary file '%s': %w", tmp, err)
	}

	// Flush to disk before the rename makes the new content visible.
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync temporary file '%s': %w", tmp, err)
	}
	// Close before renaming, which matters on Windows.
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close temporary file '%s': %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temporary file to '%s': %w", path, err)
	}
	return nil
}

// CollectionName derives a collection's name from its file path.
func CollectionName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), globalconst.DBFileExtension)
}

// CollectionPath returns the file path of collection name inside dir.
func CollectionPath(dir, name string) string {
	return filepath.Join(dir, name+globalconst.DBFileExtension)
}

// ListCollectionFiles returns the sorted names of the collection files in dir.
func ListCollectionFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection files in '%s': %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), globalconst.DBFileExtension) {
			continue
		}
		names = append(names, CollectionName(entry.Name()))
	}
	sort.Strings(names)
	return names, nil
}
