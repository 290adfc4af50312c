package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"jasondb/internal/document"
)

// BackupTimeFormat names backup directories. It sorts chronologically.
const BackupTimeFormat = "2006-01-02_15-04-05.000"

// BackupManager copies every collection file of a data directory into a
// timestamped directory under backupDir, on demand or periodically.
type BackupManager struct {
	storage         Storage
	dataDir         string
	backupDir       string
	backupLock      sync.RWMutex
	lastBackupTime  time.Time
	backupRunning   bool
	stopChan        chan struct{}
	wg              sync.WaitGroup
	backupInterval  time.Duration
	backupRetention time.Duration
}

// NewBackupManager creates a new instance of the backup manager. A zero
// retention keeps every backup.
func NewBackupManager(storage Storage, dataDir, backupDir string, interval, retention time.Duration) *BackupManager {
	return &BackupManager{
		storage:         storage,
		dataDir:         dataDir,
		backupDir:       backupDir,
		stopChan:        make(chan struct{}),
		backupInterval:  interval,
		backupRetention: retention,
	}
}

// Start initiates the periodic backup service
func (bm *BackupManager) Start() {
	if err := os.MkdirAll(bm.backupDir, 0o755); err != nil {
		slog.Error("Failed to create backup directory", "path", bm.backupDir, "error", err)
		return
	}
	slog.Info("Backup manager starting...", "interval", bm.backupInterval.String(), "retention", bm.backupRetention.String())
	bm.wg.Add(1)
	go bm.runPeriodicBackups()
}

// Stop terminates the backup service and waits for a running backup.
func (bm *BackupManager) Stop() {
	close(bm.stopChan)
	bm.wg.Wait()
}

func (bm *BackupManager) runPeriodicBackups() {
	defer bm.wg.Done()

	ticker := time.NewTicker(bm.backupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			slog.Info("Performing periodic backup...")
			if _, err := bm.PerformBackup(context.Background()); err != nil {
				slog.Error("Error in periodic backup", "error", err)
			}
		case <-bm.stopChan:
			slog.Info("Backup manager received stop signal. Stopping.")
			return
		}
	}
}

// PerformBackup copies every collection into a new backup directory and
// returns its path.
func (bm *BackupManager) PerformBackup(ctx context.Context) (string, error) {
	bm.backupLock.Lock()
	if bm.backupRunning {
		bm.backupLock.Unlock()
		slog.Warn("Backup skipped: another backup is already in progress.")
		return "", fmt.Errorf("backup already in progress")
	}
	bm.backupRunning = true
	bm.backupLock.Unlock()

	defer func() {
		bm.backupLock.Lock()
		bm.backupRunning = false
		bm.backupLock.Unlock()
	}()

	if err := os.MkdirAll(bm.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("error creating backup directory: %w", err)
	}
	backupPath := filepath.Join(bm.backupDir, time.Now().Format(BackupTimeFormat))
	slog.Info("Starting new backup", "path", backupPath)

	if err := os.Mkdir(backupPath, 0o755); err != nil {
		return "", fmt.Errorf("error creating backup directory: %w", err)
	}

	counts, err := bm.backupCollections(ctx, backupPath)
	if err != nil {
		os.RemoveAll(backupPath)
		return "", fmt.Errorf("error in collections backup: %w", err)
	}

	if err := verifyBackup(backupPath, counts); err != nil {
		slog.Error("CRITICAL: Backup verification failed", "path", backupPath, "error", err)
		return "", fmt.Errorf("backup verification failed: %w", err)
	}

	bm.backupLock.Lock()
	bm.lastBackupTime = time.Now()
	bm.backupLock.Unlock()

	bm.cleanOldBackups()
	slog.Info("Backup completed successfully", "path", backupPath, "collections", len(counts))
	return backupPath, nil
}

// backupCollections writes a copy of every collection file into backupPath
// and returns the number of documents copied per collection.
func (bm *BackupManager) backupCollections(ctx context.Context, backupPath string) (map[string]int, error) {
	names, err := ListCollectionFiles(bm.dataDir)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(names))
	for _, name := range names {
		docs := bm.storage.Read(CollectionPath(bm.dataDir, name))
		slog.Debug("Backing up collection", "collection", name, "documents", len(docs))

		if _, err := bm.storage.Write(ctx, CollectionPath(backupPath, name), docs); err != nil {
			return nil, fmt.Errorf("error in backup of collection '%s': %w", name, err)
		}
		counts[name] = len(docs)
	}
	return counts, nil
}

// verifyBackup checks that every collection file in backupPath parses and
// holds the expected number of documents.
func verifyBackup(backupPath string, counts map[string]int) error {
	names, err := ListCollectionFiles(backupPath)
	if err != nil {
		return err
	}
	if len(names) != len(counts) {
		return fmt.Errorf("backup holds %d collections, expected %d", len(names), len(counts))
	}
	for _, name := range names {
		docs, err := readCollectionFile(CollectionPath(backupPath, name))
		if err != nil {
			return err
		}
		if want, ok := counts[name]; !ok || len(docs) != want {
			return fmt.Errorf("collection backup '%s' holds %d documents, expected %d", name, len(docs), want)
		}
	}
	return nil
}

// cleanOldBackups removes backups older than the retention period
func (bm *BackupManager) cleanOldBackups() {
	if bm.backupRetention <= 0 {
		return
	}
	cutoffTime := time.Now().Add(-bm.backupRetention)
	entries, err := os.ReadDir(bm.backupDir)
	if err != nil {
		slog.Error("Failed to read backup directory for cleanup", "error", err)
		return
	}

	cleanedCount := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		created, err := time.ParseInLocation(BackupTimeFormat, entry.Name(), time.Local)
		if err != nil || !created.Before(cutoffTime) {
			continue
		}
		path := filepath.Join(bm.backupDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			slog.Error("Failed to delete old backup", "path", path, "error", err)
		} else {
			slog.Info("Old backup deleted", "path", path)
			cleanedCount++
		}
	}
	if cleanedCount > 0 {
		slog.Info("Backup cleanup finished", "deleted_count", cleanedCount)
	}
}

// GetLastBackupTime returns the time of the last successful backup
func (bm *BackupManager) GetLastBackupTime() time.Time {
	bm.backupLock.RLock()
	defer bm.backupLock.RUnlock()
	return bm.lastBackupTime
}

// GetBackupStatus returns the current status of the backup system
func (bm *BackupManager) GetBackupStatus() string {
	bm.backupLock.RLock()
	defer bm.backupLock.RUnlock()

	if bm.backupRunning {
		return "Backup in progress"
	}
	if bm.lastBackupTime.IsZero() {
		return "A backup has never been performed"
	}
	return fmt.Sprintf("Last successful backup: %s", bm.lastBackupTime.Format(time.RFC1123))
}

// ListBackups returns the backup names in backupDir, oldest first.
func ListBackups(backupDir string) ([]string, error) {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := time.Parse(BackupTimeFormat, entry.Name()); err == nil {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// readCollectionFile parses a collection file strictly. Unlike Read it
// reports unreadable or malformed content.
func readCollectionFile(path string) ([]*document.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	docs, err := document.ParseMaps(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}
