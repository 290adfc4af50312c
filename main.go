package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jasondb/internal/api"
	"jasondb/internal/config"
	"jasondb/internal/database"
	"jasondb/internal/logger"
	"jasondb/internal/persistence"
)

// Server timeouts.
const (
	readTimeout  = 5 * time.Second   // Max time to read the request body
	writeTimeout = 10 * time.Second  // Max time to write the response
	idleTimeout  = 120 * time.Second // Max time a connection can remain idle
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	// 1. Load configuration and set up structured logging.
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Fatal error loading configuration", "error", err)
		os.Exit(1)
	}
	logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// 2. Open the database, registering every collection file on disk.
	storage := persistence.NewFileStorage()
	storage.Indent = cfg.Indent
	storage.LockTimeout = cfg.LockTimeout

	db, err := database.Open(context.Background(), cfg.DataDir, cfg.Collections, database.WithStorage(storage))
	if err != nil {
		slog.Error("Fatal error opening database", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Collections ready", "collections", db.Names())

	var backups *persistence.BackupManager
	if cfg.BackupInterval > 0 {
		backups = persistence.NewBackupManager(storage, db.Path(), cfg.BackupDir, cfg.BackupInterval, cfg.BackupRetention)
		backups.Start()
	}

	// 3. Configure the HTTP server with timeouts and the router.
	server := &http.Server{
		Addr:         cfg.Port,
		Handler:      api.NewHandlers(db).Routes(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	// 4. Start the HTTP server in a goroutine to not block main thread.
	go func() {
		slog.Info("Server listening", "addr", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not start server", "error", err)
			os.Exit(1)
		}
	}()

	// 5. Block until a termination signal is received.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("Termination signal received. Attempting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	// Every write is already on disk. Stop the listener, then the backup loop.
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server gracefully stopped.")
	}

	if backups != nil {
		backups.Stop()
	}
}
