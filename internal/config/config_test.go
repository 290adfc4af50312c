package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JASONDB_CONFIG", "")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(NewDefaultConfig(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	file := filepath.Join(dir, "jasondb.yaml")
	yamlDoc := "data_dir: /srv/db\n" +
		"collections: [users, posts]\n" +
		"port: \":7000\"\n" +
		"indent: 4\n" +
		"lock_timeout: 5s\n" +
		"backup_interval: 1h\n"
	if err := os.WriteFile(file, []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("JASONDB_PORT", ":8000")
	t.Setenv("JASONDB_COLLECTIONS", "a, b,,c")
	t.Setenv("JASONDB_LOG_LEVEL", "debug")
	t.Setenv("JASONDB_SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("JASONDB_BACKUP_DIR", "/var/backups/jasondb")

	cfg, err := LoadConfig(file)
	if err != nil {
		t.Fatal(err)
	}

	want := NewDefaultConfig()
	want.DataDir = "/srv/db"
	want.Collections = []string{"a", "b", "c"}
	want.Port = ":8000"
	want.Indent = 4
	want.LockTimeout = 5 * time.Second
	want.LogLevel = "DEBUG"
	want.ShutdownTimeout = 30 * time.Second
	want.BackupInterval = time.Hour
	want.BackupDir = "/var/backups/jasondb"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestInvalidEnvKeepsPreviousValue(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JASONDB_CONFIG", "")
	t.Setenv("JASONDB_INDENT", "-1")
	t.Setenv("JASONDB_LOCK_TIMEOUT", "soon")
	t.Setenv("JASONDB_LOG_FORMAT", "xml")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	def := NewDefaultConfig()
	if cfg.Indent != def.Indent || cfg.LockTimeout != def.LockTimeout || cfg.LogFormat != def.LogFormat {
		t.Errorf("invalid values were applied: %+v", cfg)
	}
}

func TestDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	dotenv := "JASONDB_DATA_DIR=/from/dotenv\nJASONDB_HISTORY_FILE=/from/dotenv/history\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JASONDB_CONFIG", "")
	t.Setenv("JASONDB_DATA_DIR", "/from/env")
	// Registered so the variable set by .env is cleared after the test.
	t.Setenv("JASONDB_HISTORY_FILE", "")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataDir != "/from/env" {
		t.Errorf("DataDir = %q, want the environment value", cfg.DataDir)
	}
	if cfg.HistoryFile != NewDefaultConfig().HistoryFile {
		t.Errorf("HistoryFile = %q; an empty variable counts as set", cfg.HistoryFile)
	}
}

func TestMissingConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig with a missing file succeeded")
	}
}
