// Package idgen produces document identifiers.
package idgen

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// Generator hands out new document identifiers.
type Generator interface {
	NewID() string
}

// UUID generates 32 lowercase hex characters from a random UUID.
type UUID struct{}

func (UUID) NewID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// Func adapts a function to Generator.
type Func func() string

func (f Func) NewID() string { return f() }
