// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package database

import (
	"context"
	"fmt"
	"time"
)

// createTables creates the telemetry schema.
//
// readings.ts is stored as BIGINT unix milliseconds rather than
// TIMESTAMP so values round-trip exactly between ingest, storage, and
// the chart payload. The (device_id, sensor, ts) key plus ON CONFLICT
// DO NOTHING on insert makes pipeline replay idempotent.
func (db *DB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS readings (
			id UUID NOT NULL,
			device_id VARCHAR NOT NULL,
			sensor VARCHAR NOT NULL,
			ts BIGINT NOT NULL,
			value DOUBLE NOT NULL,
			anomaly BOOLEAN NOT NULL DEFAULT false,
			quality VARCHAR NOT NULL DEFAULT 'good',
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp,
			UNIQUE (device_id, sensor, ts)
		)`,
		`CREATE TABLE IF NOT EXISTS devices (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL DEFAULT '',
			building VARCHAR NOT NULL DEFAULT '',
			floor VARCHAR NOT NULL DEFAULT '',
			zone VARCHAR NOT NULL DEFAULT '',
			enabled BOOLEAN NOT NULL DEFAULT true,
			last_seen_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// createIndexes creates query indexes. The range query always filters
// on (device_id, sensor) and a ts window, so one composite index covers
// both the chart and the stats paths.
func (db *DB) createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_readings_range ON readings (device_id, sensor, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_readings_created ON readings (created_at)`,
	}

	for _, idx := range indexes {
		if _, err := db.conn.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
