// Package dberr holds the errors returned by the store.
package dberr

import (
	"errors"
	"fmt"
	"strings"

	"jasondb/internal/document"
)

var (
	ErrDataShape             = errors.New("invalid data shape")
	ErrDuplicateID           = errors.New("duplicate document id")
	ErrCollectionNotFound    = errors.New("collection not found")
	ErrInvalidPath           = errors.New("invalid database path")
	ErrInvalidCollectionList = errors.New("invalid collection list")
)

// DataShapeError reports a create or update payload of the wrong kind.
// Bulk is set when an array of objects would also have been accepted.
type DataShapeError struct {
	Got  string
	Bulk bool
}

func (e *DataShapeError) Error() string {
	if e.Bulk {
		return fmt.Sprintf("The data to write must be an array of plain objects or a plain object itself, received: %s", e.Got)
	}
	return fmt.Sprintf("The data to write must be a plain object, received: %s", e.Got)
}

func (e *DataShapeError) Is(target error) bool { return target == ErrDataShape }

// DuplicateIDError reports a create whose _id is already taken.
type DuplicateIDError struct {
	Collection string
	ID         document.Value
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("A document with ID: %s already exists in collection: %s", display(e.ID), e.Collection)
}

func (e *DuplicateIDError) Is(target error) bool { return target == ErrDuplicateID }

// CollectionNotFoundError reports a collection file that could not be
// removed or does not exist.
type CollectionNotFoundError struct {
	Collection string
	Path       string
	Err        error
}

func (e *CollectionNotFoundError) Error() string {
	return fmt.Sprintf("The collection %s couldn't be found at: %s", e.Collection, e.Path)
}

func (e *CollectionNotFoundError) Is(target error) bool { return target == ErrCollectionNotFound }

func (e *CollectionNotFoundError) Unwrap() error { return e.Err }

// InvalidPathError reports a database directory that does not exist.
type InvalidPathError struct {
	Path string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("The database path doesn't seem to exist: %s", e.Path)
}

func (e *InvalidPathError) Is(target error) bool { return target == ErrInvalidPath }

// InvalidCollectionListError reports collection names that cannot be used.
type InvalidCollectionListError struct {
	Names []string
}

func (e *InvalidCollectionListError) Error() string {
	return fmt.Sprintf("The collections array doesn't seem to be valid: %s\nExpected format: [ 'collection1', 'collection2', 'collection3' ]",
		strings.Join(e.Names, ","))
}

func (e *InvalidCollectionListError) Is(target error) bool {
	return target == ErrInvalidCollectionList
}

// KindOf names the kind of v the way error messages report it.
func KindOf(v document.Value) string {
	return v.Kind().String()
}

func display(v document.Value) string {
	if v.Kind() == document.String {
		return v.Str()
	}
	return v.String()
}
