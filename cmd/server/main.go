// Package main is the entry point for the moodmap server.
//
// main stays minimal: read configuration, build the logger, start the server.
// All actual logic lives in the internal packages. The same server is also
// reachable as `moodmap serve`.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/sakif/moodmap/internal/config"
	"github.com/sakif/moodmap/internal/server"
)

func main() {
	configFile := flag.String("config", "", "path to a moodmap.yaml config file")
	flag.Parse()

	// === 1. READ CONFIGURATION ===
	// Defaults, then moodmap.yaml, then .env, then MOODMAP_* variables.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
