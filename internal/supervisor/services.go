// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package supervisor

import (
	"context"
	"time"

	"github.com/voltaic-labs/voltaic/internal/logging"
)

// ContextRunner matches *websocket.Hub's RunWithContext method without
// importing the websocket package.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// HubService wraps the WebSocket hub as a supervised service.
type HubService struct {
	hub ContextRunner
}

// NewHubService creates the hub service wrapper.
func NewHubService(hub ContextRunner) *HubService {
	return &HubService{hub: hub}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

func (s *HubService) String() string { return "websocket-hub" }

// ContextStarter matches *ingest.BatchConsumer's Start method.
type ContextStarter interface {
	Start(ctx context.Context) error
}

// ConsumerService wraps the JetStream batch consumer as a supervised
// service.
type ConsumerService struct {
	consumer ContextStarter
}

// NewConsumerService creates the consumer service wrapper.
func NewConsumerService(consumer ContextStarter) *ConsumerService {
	return &ConsumerService{consumer: consumer}
}

// Serve implements suture.Service. Start blocks until the context is
// canceled, flushing any buffered batch on the way out.
func (s *ConsumerService) Serve(ctx context.Context) error {
	return s.consumer.Start(ctx)
}

func (s *ConsumerService) String() string { return "batch-consumer" }

// RetentionStore is the slice of *database.DB the sweeper needs.
type RetentionStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Checkpoint(ctx context.Context) error
}

// RetentionService deletes readings older than the retention window on
// a fixed interval and checkpoints the database after each sweep.
type RetentionService struct {
	store         RetentionStore
	retentionDays int
	interval      time.Duration
}

// NewRetentionService creates the sweeper. retentionDays <= 0 disables
// deletion; the service then just blocks until shutdown so the tree
// shape stays the same.
func NewRetentionService(store RetentionStore, retentionDays int, interval time.Duration) *RetentionService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionService{
		store:         store,
		retentionDays: retentionDays,
		interval:      interval,
	}
}

// Serve implements suture.Service.
func (s *RetentionService) Serve(ctx context.Context) error {
	if s.retentionDays <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *RetentionService) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)

	deleted, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		logging.Warn().Err(err).Time("cutoff", cutoff).Msg("retention sweep failed")
		return
	}
	if deleted == 0 {
		return
	}

	logging.Info().
		Int64("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("retention sweep removed expired readings")

	if err := s.store.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("post-sweep checkpoint failed")
	}
}

func (s *RetentionService) String() string { return "retention-sweeper" }

// ServiceFunc adapts a plain function to suture.Service.
type ServiceFunc struct {
	Name string
	Run  func(ctx context.Context) error
}

// Serve implements suture.Service.
func (s ServiceFunc) Serve(ctx context.Context) error {
	return s.Run(ctx)
}

func (s ServiceFunc) String() string { return s.Name }
