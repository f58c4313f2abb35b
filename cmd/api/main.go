// Package main is the entry point for the pp-server API server.
// It initializes the application, starts background workers, and handles graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pp-server/pp-server/internal/platform"
)

// main initializes and starts the HTTP server.
// It performs the following steps:
// 1. Configure structured logging with zerolog
// 2. Load and validate configuration from environment variables
// 3. Bootstrap the application (wire caches, resolver, store, calculator, and optionally Postgres/Redis)
// 4. Mount routes with the security middleware stack
// 5. Start the cache reaper (C7) and, when the durable profile is active, the recalc worker (C8)
// 6. Start the HTTP server in a goroutine
// 7. Wait for a shutdown signal and perform graceful shutdown
func main() {
	cfg := platform.LoadConfig()
	logger := platform.NewLogger(cfg.Environment)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger.Info().
		Str("osu_files_dir", cfg.OsuFilesDir).
		Bool("metadata_store_enabled", cfg.MetadataStoreEnabled()).
		Bool("queue_enabled", cfg.QueueEnabled()).
		Int64("beatmap_cache_max", cfg.BeatmapCacheMax).
		Msg("starting pp-server")

	ctx, cancelBoot := context.WithTimeout(context.Background(), 60*time.Second)
	app, cleanup, err := platform.Bootstrap(ctx, cfg, logger)
	cancelBoot()
	if err != nil {
		logger.Fatal().Err(err).Msg("bootstrap failed")
	}
	defer cleanup(context.Background())

	r := chi.NewRouter()
	platform.MountRoutes(r, app, cfg, logger)

	runCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	if cfg.AutoCleanCache {
		go app.Reaper.Run(runCtx)
	}
	if app.Worker != nil {
		go app.Worker.Run(runCtx)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.HTTPPort).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server crashed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	stopBackground()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
}
