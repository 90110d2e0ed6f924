// Package main is the entry point for the SendLinks server.
//
// The main package stays minimal. It reads configuration, builds the
// logger and hands both to internal/server, which owns everything else.
//
// Configuration is read from config/config.yaml (or the file named by
// SENDLINKS_CONFIG), then environment variables, including those in a
// .env file. See internal/config for the full list.
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/sendlinks/internal/config"
	"github.com/sakif/sendlinks/internal/logging"
	"github.com/sakif/sendlinks/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// Nothing is logged yet, so a bad config goes to stderr via the default logger.
	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		slog.Error("failed to set up logging", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	if cfg.Session.GeneratedSecret {
		logger.Warn("SESSION_SECRET not set, using a random one: sessions will not survive a restart")
	}

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		closeLog()
		os.Exit(1)
	}
}
