package database

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Open creates dir if needed, connects a database on it with the given
// collections and registers every collection file already present.
func Open(ctx context.Context, dir string, names []string, opts ...Option) (*Database, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory '%s': %w", dir, err)
	}

	db := New(dir, names, opts...)
	if err := db.Connect(ctx); err != nil {
		return nil, err
	}

	existing, err := db.Discover()
	if err != nil {
		slog.Warn("Could not discover existing collections", "path", db.Path(), "error", err)
		return db, nil
	}
	if len(existing) > 0 {
		if err := db.Load(ctx, existing...); err != nil {
			return nil, err
		}
	}
	slog.Debug("Collections ready", "collections", db.Names())
	return db, nil
}
