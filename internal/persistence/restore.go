package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// PerformRestore replaces the collection files of dataDir with those of the
// named backup and returns the restored collection names. Collections that
// are not in the backup are left alone. Every backup file is validated
// before anything is overwritten.
func PerformRestore(ctx context.Context, storage Storage, backupDir, backupName, dataDir string) ([]string, error) {
	backupPath := filepath.Join(backupDir, backupName)
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("backup directory '%s' not found", backupName)
	}

	slog.Info("Starting restore", "backup", backupName, "target", dataDir)

	names, err := ListCollectionFiles(backupPath)
	if err != nil {
		return nil, err
	}

	restored := make(map[string]int, len(names))
	for _, name := range names {
		docs, err := readCollectionFile(CollectionPath(backupPath, name))
		if err != nil {
			return nil, fmt.Errorf("backup of collection '%s' is unreadable: %w", name, err)
		}
		restored[name] = len(docs)
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		docs := storage.Read(CollectionPath(backupPath, name))
		if _, err := storage.Write(ctx, CollectionPath(dataDir, name), docs); err != nil {
			return nil, fmt.Errorf("failed to restore collection '%s': %w", name, err)
		}
		slog.Info("Collection restored", "collection", name, "documents", restored[name])
	}

	slog.Info("Restore completed", "backup", backupName, "collections", len(names))
	return names, nil
}
