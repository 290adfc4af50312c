// cmd/client/main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"jasondb/internal/config"
	"jasondb/internal/database"
	"jasondb/internal/logger"
	"jasondb/internal/persistence"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	dataDir := flag.String("data-dir", "", "database directory (overrides the configuration)")
	logLevel := flag.String("log-level", "WARN", "log level for the shell (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, colorErr("Error loading configuration: ", err))
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	logger.Init(logger.Config{Level: *logLevel, Format: cfg.LogFormat})

	storage := persistence.NewFileStorage()
	storage.Indent = cfg.Indent
	storage.LockTimeout = cfg.LockTimeout

	db, err := database.Open(context.Background(), cfg.DataDir, cfg.Collections, database.WithStorage(storage))
	if err != nil {
		fmt.Fprintln(os.Stderr, colorErr("Error opening database: ", err))
		os.Exit(1)
	}

	if err := newCLI(db, cfg.HistoryFile).run(); err != nil {
		fmt.Fprintln(os.Stderr, colorErr("Fatal error: ", err))
		os.Exit(1)
	}
}
