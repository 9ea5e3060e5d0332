// Command api is the Combine Data API server.
//
// Usage:
//
//	combine-api
//	API_PORT=8080 combine-api

// @title Combine Data API
// @version 1.0.0
// @description Read API for draft-combine metric snapshots (ranks, percentiles, z-scores) and pairwise player similarity. Responses are served from the current promoted snapshot of each measurement source.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name Hoop Combine
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/hoopcombine/combine-data/internal/api"
	"github.com/hoopcombine/combine-data/internal/cache"
	"github.com/hoopcombine/combine-data/internal/config"
	"github.com/hoopcombine/combine-data/internal/db"
	"github.com/hoopcombine/combine-data/internal/listener"
	"github.com/hoopcombine/combine-data/internal/maintenance"
	"github.com/hoopcombine/combine-data/internal/snapshot"

	_ "github.com/hoopcombine/combine-data/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	// Flush the cache when the compute CLI promotes a snapshot
	go listener.Start(ctx, cfg.DatabaseURL, appCache, logger)

	// Prune superseded snapshot versions in the background
	go maintenance.Start(ctx, pool.Pool, maintenance.DefaultConfig(), logger)

	// Snapshot store resolves current snapshots for the read endpoints
	snaps := snapshot.New(pool.Pool, logger)

	// Create router
	router := api.NewRouter(pool.Pool, appCache, cfg, snaps)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Combine Data API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
