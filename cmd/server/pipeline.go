// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/voltaic-labs/voltaic/internal/config"
	"github.com/voltaic-labs/voltaic/internal/database"
	"github.com/voltaic-labs/voltaic/internal/ingest"
	"github.com/voltaic-labs/voltaic/internal/logging"
	"github.com/voltaic-labs/voltaic/internal/websocket"
)

// telemetryPipeline bundles the NATS JetStream components: the
// optional embedded server, the stream-init connection, the intake
// publisher, and the durable batch consumer.
type telemetryPipeline struct {
	Embedded   *ingest.EmbeddedServer
	Publisher  *ingest.Publisher
	Consumer   *ingest.BatchConsumer
	conn       *nats.Conn
	subscriber *ingest.Subscriber
}

// initTelemetryPipeline starts the broker side of the intake path.
// When an embedded server is requested, cfg.NATS.URL is rewritten to
// its client URL so every downstream component connects to it.
func initTelemetryPipeline(ctx context.Context, cfg *config.Config, db *database.DB, hub *websocket.Hub) (*telemetryPipeline, error) {
	p := &telemetryPipeline{}

	if cfg.NATS.EmbeddedServer {
		embedded, err := ingest.NewEmbeddedServer(&cfg.NATS)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		p.Embedded = embedded
		cfg.NATS.URL = embedded.ClientURL()
	}

	conn, err := nats.Connect(cfg.NATS.URL, nats.Name("voltaic-stream-init"))
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	p.conn = conn

	js, err := jetstream.New(conn)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	streamInit, err := ingest.NewStreamInitializer(js, cfg.NATS.StreamRetentionDays)
	if err != nil {
		p.Close()
		return nil, err
	}
	if _, err := streamInit.EnsureStream(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ensure readings stream: %w", err)
	}

	wmLogger := ingest.NewWatermillLogger()

	publisher, err := ingest.NewPublisher(&cfg.NATS, wmLogger)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("create publisher: %w", err)
	}
	publisher.SetCircuitBreaker(ingest.NewCircuitBreaker("telemetry-publish", &cfg.Ingest))
	p.Publisher = publisher

	subscriber, err := ingest.NewSubscriber(&cfg.NATS, wmLogger)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("create subscriber: %w", err)
	}
	p.subscriber = subscriber

	consumer, err := ingest.NewBatchConsumer(subscriber, db, hub, ingest.ConsumerConfig{
		BatchSize:     cfg.NATS.BatchSize,
		FlushInterval: cfg.NATS.FlushInterval,
	})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("create batch consumer: %w", err)
	}
	consumer.SetCircuitBreaker(ingest.NewCircuitBreaker("storage-write", &cfg.Ingest))
	p.Consumer = consumer

	return p, nil
}

// Close tears the pipeline down in reverse dependency order. Safe to
// call on a partially initialized pipeline.
func (p *telemetryPipeline) Close() {
	if p.subscriber != nil {
		if err := p.subscriber.Close(); err != nil {
			logging.Warn().Err(err).Msg("error closing subscriber")
		}
	}
	if p.Publisher != nil {
		if err := p.Publisher.Close(); err != nil {
			logging.Warn().Err(err).Msg("error closing publisher")
		}
	}
	if p.conn != nil {
		p.conn.Close()
	}
	if p.Embedded != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := p.Embedded.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("error shutting down embedded NATS server")
		}
	}
}
