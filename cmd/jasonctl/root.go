package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"jasondb/internal/config"
	"jasondb/internal/database"
	"jasondb/internal/document"
	"jasondb/internal/logger"
	"jasondb/internal/persistence"
)

// app carries the global flags and the database they open.
type app struct {
	configPath string
	dataDir    string
	format     string
	logLevel   string
	backupDir  string

	cfg config.Config
	db  *database.Database
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "jasonctl",
		Short: "jasondb command line",
		Long: `jasonctl runs single operations against a jasondb data directory.

Each collection is a JSON file in the data directory. Filters and payloads
are JSON objects; a payload may also be read from a file with file:<path>
or from standard input with -.

Examples:
  jasonctl --data-dir ./data create users '{"name": "Ada", "age": 36}'
  jasonctl --data-dir ./data find users '{"age": 36}'
  jasonctl --data-dir ./data update users --one '{"name": "Ada"}' '{"age": 37}'
  jasonctl bench --sizes 1,10,100`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&a.dataDir, "data-dir", "d", "", "database directory (overrides the configuration)")
	rootCmd.PersistentFlags().StringVarP(&a.format, "format", "f", "table", "output format: table|json")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "WARN", "log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&a.backupDir, "backup-dir", "", "backup directory (overrides the configuration)")

	rootCmd.AddCommand(
		a.collectionsCmd(),
		a.dropCmd(),
		a.countCmd(),
		a.createCmd(),
		a.findCmd(),
		a.updateCmd(),
		a.deleteCmd(),
		a.benchCmd(),
		a.backupCmd(),
		a.restoreCmd(),
	)
	return rootCmd
}

// loadConfig resolves the configuration and installs the logger.
func (a *app) loadConfig() error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	if a.backupDir != "" {
		cfg.BackupDir = a.backupDir
	}
	logger.Init(logger.Config{Level: a.logLevel, Format: cfg.LogFormat, Output: os.Stderr})
	a.cfg = cfg
	return nil
}

func (a *app) storage() *persistence.FileStorage {
	s := persistence.NewFileStorage()
	s.Indent = a.cfg.Indent
	s.LockTimeout = a.cfg.LockTimeout
	return s
}

// open loads the configuration and opens the database with every
// collection file already in the data directory.
func (a *app) open(ctx context.Context) (*database.Database, error) {
	if a.db != nil {
		return a.db, nil
	}
	if err := a.loadConfig(); err != nil {
		return nil, err
	}
	db, err := database.Open(ctx, a.cfg.DataDir, a.cfg.Collections, database.WithStorage(a.storage()))
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

// print writes documents in the selected format.
func (a *app) print(w io.Writer, docs []*document.Map) error {
	switch a.format {
	case "json":
		out, err := document.MarshalMaps(docs, 2)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case "table":
		renderDocuments(w, docs)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want table or json)", a.format)
	}
}
