// ./internal/config/config.go

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"jasondb/internal/globalconst"
)

// Config holds application-wide configuration.
type Config struct {
	DataDir         string        `yaml:"data_dir"`
	Collections     []string      `yaml:"collections"`
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LockTimeout     time.Duration `yaml:"lock_timeout"`
	Indent          int           `yaml:"indent"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	HistoryFile     string        `yaml:"history_file"`
	BackupDir       string        `yaml:"backup_dir"`
	BackupInterval  time.Duration `yaml:"backup_interval"`  // 0 disables periodic backups
	BackupRetention time.Duration `yaml:"backup_retention"`
}

// NewDefaultConfig creates a Config struct with sensible default values.
func NewDefaultConfig() Config {
	return Config{
		DataDir:         "./data",
		Port:            ":5877",
		ShutdownTimeout: 10 * time.Second,
		LockTimeout:     3 * time.Second,
		Indent:          globalconst.DefaultIndent,
		LogLevel:        "INFO",
		LogFormat:       "text",
		HistoryFile:     "/tmp/jasondb_history.tmp",
		BackupDir:       "./backups",
		BackupRetention: 7 * 24 * time.Hour,
	}
}

// LoadConfig loads configuration with a clear precedence:
// Environment > YAML file > Defaults. A .env file in the working directory
// seeds the environment without overriding variables that are already set.
// configPath may be empty, in which case JASONDB_CONFIG is consulted.
func LoadConfig(configPath string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Could not load .env file", "error", err)
	}

	cfg := NewDefaultConfig()
	slog.Debug("Loading configuration...")

	if configPath == "" {
		configPath = os.Getenv(globalconst.EnvConfigFile)
	}
	if configPath != "" {
		if err := applyFileConfig(&cfg, configPath); err != nil {
			return cfg, err
		}
	}

	applyEnvConfig(&cfg)
	return cfg, nil
}

// applyFileConfig overrides config values from a YAML file. Keys absent
// from the file keep their current value.
func applyFileConfig(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}
	slog.Info("Configuration file loaded", "path", path)
	return nil
}

// applyEnvConfig overrides config values from environment variables.
func applyEnvConfig(cfg *Config) {
	overrideString("DATA_DIR", &cfg.DataDir)
	overrideString("PORT", &cfg.Port)
	overrideString("HISTORY_FILE", &cfg.HistoryFile)
	overrideString("BACKUP_DIR", &cfg.BackupDir)

	if v := env("COLLECTIONS"); v != "" {
		cfg.Collections = splitList(v)
		slog.Info("Overriding Collections from environment", "value", cfg.Collections)
	}

	if v := env("INDENT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			cfg.Indent = i
			slog.Info("Overriding Indent from environment", "value", i)
		} else {
			slog.Warn("Invalid "+globalconst.EnvPrefix+"INDENT env var, using default", "value", v)
		}
	}

	if v := env("LOG_LEVEL"); v != "" {
		level := strings.ToUpper(v)
		switch level {
		case "DEBUG", "INFO", "WARN", "ERROR":
			cfg.LogLevel = level
		default:
			slog.Warn("Invalid "+globalconst.EnvPrefix+"LOG_LEVEL env var, using default", "value", v)
		}
	}

	if v := env("LOG_FORMAT"); v != "" {
		format := strings.ToLower(v)
		if format == "text" || format == "json" {
			cfg.LogFormat = format
		} else {
			slog.Warn("Invalid "+globalconst.EnvPrefix+"LOG_FORMAT env var, using default", "value", v)
		}
	}

	overrideDuration("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)
	overrideDuration("LOCK_TIMEOUT", &cfg.LockTimeout)
	overrideDuration("BACKUP_INTERVAL", &cfg.BackupInterval)
	overrideDuration("BACKUP_RETENTION", &cfg.BackupRetention)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(globalconst.EnvPrefix + key))
}

func overrideString(key string, target *string) {
	if v := env(key); v != "" {
		*target = v
		slog.Info("Overriding value from environment", "key", globalconst.EnvPrefix+key, "value", v)
	}
}

func overrideDuration(key string, target *time.Duration) {
	envVal := env(key)
	if envVal != "" {
		if d, err := time.ParseDuration(envVal); err == nil && d > 0 {
			*target = d
			slog.Info("Overriding duration from environment", "key", globalconst.EnvPrefix+key, "value", envVal)
		} else {
			slog.Warn("Invalid duration format in env var, using default", "key", globalconst.EnvPrefix+key, "value", envVal)
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
