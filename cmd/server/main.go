/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the survey compilation server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load configuration (file, AIDES_* environment, flags)
  3. Build the mapping registry (panics on a duplicated answer key)
  4. Initialize SQLite store
  5. Create API handler with dependencies
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML configuration file (optional)
  -port    HTTP server port, overrides the configuration
  -db      SQLite database path, overrides the configuration
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/aides.db"

  # Run with in-memory database and debug logs
  AIDES_LOG_LEVEL=debug ./server -db=":memory:"

SEE ALSO:
  - config/config.go: Configuration keys
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/betagouv/aides-simplifiees-engine/api"
	"github.com/betagouv/aides-simplifiees-engine/condition"
	"github.com/betagouv/aides-simplifiees-engine/config"
	"github.com/betagouv/aides-simplifiees-engine/openfisca"
	"github.com/betagouv/aides-simplifiees-engine/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	configPath := flag.String("config", "", "YAML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides configuration)")
	dbPath := flag.String("db", "", "SQLite database path (overrides configuration)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DB = *dbPath
	}

	logger := cfg.Logger()
	slog.SetDefault(logger)

	// Fail at startup, not on the first request.
	registry := openfisca.Registry()
	logger.Info("mapping registry loaded", "keys", registry.Len())

	conditions, err := condition.New(condition.Config{
		Strict:    cfg.Conditions.Strict,
		CacheSize: cfg.Conditions.CacheSize,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	// Initialize store
	store, err := sqlite.New(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(api.Config{
		Store:      store,
		Conditions: conditions,
		Metrics:    api.MustNewMetrics(prometheus.DefaultRegisterer),
		Logger:     logger,
		Compiler: openfisca.Options{
			RejectUndefinedValues: cfg.Compiler.RejectUndefined,
			FailFast:              cfg.Compiler.FailFast,
			Logger:                logger,
		},
		LegacyFallback: cfg.Compiler.LegacyFallback,
	})

	// Create router
	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: cfg.CORS.Origins})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "db", cfg.DB)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
