package dberr

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"jasondb/internal/document"
)

func TestMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&DataShapeError{Got: "string"}, "The data to write must be a plain object, received: string"},
		{&DataShapeError{Got: "number", Bulk: true}, "The data to write must be an array of plain objects or a plain object itself, received: number"},
		{&DuplicateIDError{Collection: "users", ID: document.StringValue("abc")}, "A document with ID: abc already exists in collection: users"},
		{&DuplicateIDError{Collection: "users", ID: document.IntValue(7)}, "A document with ID: 7 already exists in collection: users"},
		{&CollectionNotFoundError{Collection: "users", Path: "/db/users.json"}, "The collection users couldn't be found at: /db/users.json"},
		{&InvalidPathError{Path: "/nope"}, "The database path doesn't seem to exist: /nope"},
	}
	for _, tc := range tests {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("Error() = %q, want %q", got, tc.want)
		}
	}
}

func TestSentinels(t *testing.T) {
	wrapped := fmt.Errorf("remove: %w", &CollectionNotFoundError{Collection: "c", Path: "p", Err: fs.ErrNotExist})

	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"data shape", &DataShapeError{Got: "array"}, ErrDataShape},
		{"duplicate", &DuplicateIDError{}, ErrDuplicateID},
		{"not found", wrapped, ErrCollectionNotFound},
		{"not found unwraps", wrapped, fs.ErrNotExist},
		{"path", &InvalidPathError{}, ErrInvalidPath},
		{"names", &InvalidCollectionListError{Names: []string{"../x"}}, ErrInvalidCollectionList},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.target) {
				t.Errorf("errors.Is(%v, %v) = false", tc.err, tc.target)
			}
		})
	}

	if errors.Is(&DataShapeError{}, ErrDuplicateID) {
		t.Error("DataShapeError matched ErrDuplicateID")
	}

	var dup *DuplicateIDError
	if !errors.As(fmt.Errorf("create: %w", &DuplicateIDError{Collection: "c"}), &dup) || dup.Collection != "c" {
		t.Error("errors.As did not find the DuplicateIDError")
	}
}
