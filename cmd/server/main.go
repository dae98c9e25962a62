// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

// Package main is the entry point for the Voltaic server.
//
// Voltaic is a self-hosted building energy analytics platform. Sensor
// gateways push readings to the intake endpoint; a NATS JetStream
// pipeline buffers them into DuckDB; the query API serves decimated
// chart series, range statistics, CSV exports, and a live WebSocket
// stream, all gated by configurable subscription tiers.
//
// # Startup order
//
//  1. Configuration: Koanf v2 layered sources (defaults, YAML file,
//     VOLTAIC_* environment variables)
//  2. Database: DuckDB storage for readings and devices
//  3. Telemetry pipeline (optional): embedded NATS server, JetStream
//     stream, publisher with circuit breaker, durable batch consumer
//  4. Export: Badger-backed job store and CSV worker pool
//  5. HTTP server: chi router with tier middleware
//
// All long-running services run under a suture supervisor tree and
// stop gracefully on SIGINT or SIGTERM.
//
// # Example
//
// Single-node deployment with the embedded broker:
//
//	export VOLTAIC_DATABASE_PATH=/var/lib/voltaic/voltaic.db
//	export VOLTAIC_NATS_ENABLED=true
//	export VOLTAIC_NATS_EMBEDDED_SERVER=true
//	./voltaic
//
// Development without a broker (readings write straight to DuckDB):
//
//	export VOLTAIC_NATS_ENABLED=false
//	./voltaic
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voltaic-labs/voltaic/internal/api"
	"github.com/voltaic-labs/voltaic/internal/cache"
	"github.com/voltaic-labs/voltaic/internal/config"
	"github.com/voltaic-labs/voltaic/internal/database"
	"github.com/voltaic-labs/voltaic/internal/export"
	"github.com/voltaic-labs/voltaic/internal/ingest"
	"github.com/voltaic-labs/voltaic/internal/logging"
	"github.com/voltaic-labs/voltaic/internal/middleware"
	"github.com/voltaic-labs/voltaic/internal/supervisor"
	"github.com/voltaic-labs/voltaic/internal/websocket"
)

// retentionSweepInterval is how often the retention sweeper checks for
// expired readings.
const retentionSweepInterval = time.Hour

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("starting Voltaic server")

	if err := run(cfg); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("server exited with error")
	}
	logging.Info().Msg("server stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing database")
		}
	}()
	logging.Info().Msg("database initialized")

	queryCache := cache.New(cfg.API.CacheTTL, cfg.API.CacheMaxEntries)
	hub := websocket.NewHub()
	gate := ingest.NewRateGate(cfg.Ingest.DeviceRateLimit, cfg.Ingest.DeviceRateBurst)

	jobStore, err := export.OpenStore(cfg.Export.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := jobStore.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing export job store")
		}
	}()

	runner, err := export.NewRunner(jobStore, db, cfg.Export)
	if err != nil {
		return err
	}

	var pipeline *telemetryPipeline
	var publisher api.ReadingPublisher
	if cfg.NATS.Enabled {
		pipeline, err = initTelemetryPipeline(ctx, cfg, db, hub)
		if err != nil {
			return err
		}
		defer pipeline.Close()
		publisher = pipeline.Publisher
		logging.Info().Str("url", cfg.NATS.URL).Msg("telemetry pipeline initialized")
	} else {
		logging.Info().Msg("telemetry pipeline disabled, intake writes directly to storage")
	}

	handler, err := api.NewHandler(cfg, api.Dependencies{
		DB:        db,
		Cache:     queryCache,
		Hub:       hub,
		Publisher: publisher,
		Gate:      gate,
		Exports:   runner,
		Perf:      middleware.NewPerformanceMonitor(1000),
	})
	if err != nil {
		return err
	}
	server := api.NewServer(cfg, api.NewRouter(cfg, handler))

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return err
	}

	tree.AddStreamingService(supervisor.NewHubService(hub))
	if pipeline != nil {
		tree.AddPipelineService(supervisor.NewConsumerService(pipeline.Consumer))
	}
	tree.AddPipelineService(supervisor.NewRetentionService(db, cfg.Database.RetentionDays, retentionSweepInterval))
	tree.AddAPIService(runner)
	tree.AddAPIService(server)

	logging.Info().Str("addr", server.Addr()).Msg("supervisor tree starting")
	return tree.Serve(ctx)
}
