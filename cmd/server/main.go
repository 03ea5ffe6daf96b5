/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the compensation planner server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load config (TOML file, .env, COMP_PLANNER_* environment)
  3. Initialize the scenario store (SQLite or memory)
  4. Create API handler with planning defaults
  5. Start the idle session reaper
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config   TOML config path (default: planner.toml, optional)
  -port     HTTP server port, overrides config
  -db       SQLite database path, overrides config
            Use ":memory:" for in-memory database
  -storage  sqlite | memory, overrides config

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the session reaper
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/planner.db"

  # Keep scenarios in memory only
  ./server -storage=memory

  # JSON logs on a different port
  COMP_PLANNER_LOG_FORMAT=json ./server -port=3000

SEE ALSO:
  - config/config.go: Settings and environment keys
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/warp/comp-planner/api"
	"github.com/warp/comp-planner/config"
	"github.com/warp/comp-planner/payzone"
	"github.com/warp/comp-planner/scenario"
	"github.com/warp/comp-planner/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "planner.toml", "TOML config path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	storage := flag.String("storage", "", "Scenario storage: sqlite or memory (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Storage.Path = *dbPath
	}
	if *storage != "" {
		cfg.Storage.Driver = *storage
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	logger := newLogger(cfg.Log)
	log.Logger = logger

	// Initialize store
	var store scenario.Store
	switch cfg.Storage.Driver {
	case "memory":
		store = scenario.NewMemory()
	default:
		db, err := sqlite.New(cfg.Storage.Path)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.Storage.Path).Msg("failed to initialize database")
		}
		defer db.Close()
		store = db
	}

	// Initialize handler
	budget, err := cfg.Planning.BudgetAmount()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid budget")
	}
	handler := api.NewHandler(store, logger)
	handler.Defaults = api.Defaults{Unit: cfg.Planning.Unit(), Budget: budget}
	if len(cfg.Planning.PayZones) > 0 {
		handler.Defaults.PayZones = payzone.New(cfg.Planning.PayZones)
	}

	reaper := api.NewSessionReaper(handler.Sessions, logger)
	reaper.IdleTimeout = time.Duration(cfg.Sessions.IdleMinutes) * time.Minute
	reaper.CheckInterval = time.Duration(cfg.Sessions.ReapEveryMins) * time.Minute
	reaper.Start()

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Str("storage", cfg.Storage.Driver).
			Str("additional_unit", string(handler.Defaults.Unit)).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	reaper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	logger.Info().Msg("server stopped")
}

// newLogger builds the process logger. Config validation has already
// rejected unknown formats; an unparsable level falls back to info.
func newLogger(c config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if c.Format == "json" {
		return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
}
