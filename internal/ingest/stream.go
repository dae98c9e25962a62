// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamContext is the subset of jetstream.JetStream used by
// StreamInitializer, narrowed for testing.
type JetStreamContext interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// StreamInitializer ensures the readings stream exists with the right
// configuration before publishers and subscribers start.
type StreamInitializer struct {
	js            JetStreamContext
	retentionDays int
}

// NewStreamInitializer creates a stream initializer.
func NewStreamInitializer(js JetStreamContext, retentionDays int) (*StreamInitializer, error) {
	if js == nil {
		return nil, fmt.Errorf("JetStream context required")
	}
	if retentionDays < 1 {
		retentionDays = 7
	}

	return &StreamInitializer{
		js:            js,
		retentionDays: retentionDays,
	}, nil
}

// EnsureStream creates or updates the readings stream. Idempotent.
//
// File storage with LimitsPolicy retention: readings already persisted
// to DuckDB do not need to live on the stream, the retention window
// only covers consumer downtime.
func (s *StreamInitializer) EnsureStream(ctx context.Context) (jetstream.Stream, error) {
	streamCfg := jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{TopicReadings},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      time.Duration(s.retentionDays) * 24 * time.Hour,
		Duplicates:  2 * time.Minute,
		Replicas:    1,
		Storage:     jetstream.FileStorage,
		AllowDirect: true,
		Discard:     jetstream.DiscardOld,
	}

	_, err := s.js.Stream(ctx, StreamName)
	if err == nil {
		stream, err := s.js.UpdateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("update stream %s: %w", StreamName, err)
		}
		return stream, nil
	}

	if errors.Is(err, jetstream.ErrStreamNotFound) {
		stream, err := s.js.CreateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("create stream %s: %w", StreamName, err)
		}
		return stream, nil
	}

	return nil, fmt.Errorf("check stream %s: %w", StreamName, err)
}
