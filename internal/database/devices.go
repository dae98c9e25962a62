// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/voltaic-labs/voltaic/internal/metrics"
	"github.com/voltaic-labs/voltaic/internal/models"
)

// UpsertDevice registers a device or updates its metadata. First
// ingest auto-registers unknown devices with an empty name.
func (db *DB) UpsertDevice(ctx context.Context, d *models.Device) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	const query = `
		INSERT INTO devices (id, name, building, floor, zone, enabled)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			building = excluded.building,
			floor = excluded.floor,
			zone = excluded.zone,
			enabled = excluded.enabled`

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, query, d.ID, d.Name, d.Building, d.Floor, d.Zone, d.Enabled)
	metrics.RecordDBQuery("INSERT", "devices", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert device: %w", err)
	}
	return nil
}

// EnsureDevice registers a device id if it is not already known,
// leaving existing metadata untouched.
func (db *DB) EnsureDevice(ctx context.Context, deviceID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	const query = `
		INSERT INTO devices (id, enabled)
		VALUES (?, true)
		ON CONFLICT DO NOTHING`

	stmt, err := db.getStmt(ctx, query)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = stmt.ExecContext(ctx, deviceID)
	metrics.RecordDBQuery("INSERT", "devices", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to ensure device: %w", err)
	}
	return nil
}

// TouchDeviceLastSeen updates a device's last_seen_at to now. Called
// per consumer batch, not per reading.
func (db *DB) TouchDeviceLastSeen(ctx context.Context, deviceID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	const query = `UPDATE devices SET last_seen_at = current_timestamp WHERE id = ?`

	stmt, err := db.getStmt(ctx, query)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = stmt.ExecContext(ctx, deviceID)
	metrics.RecordDBQuery("UPDATE", "devices", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to touch device: %w", err)
	}
	return nil
}

// GetDevice returns one device by id, or ErrNotFound.
func (db *DB) GetDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	const query = `
		SELECT id, name, building, floor, zone, enabled, last_seen_at, created_at
		FROM devices WHERE id = ?`

	start := time.Now()
	row := db.conn.QueryRowContext(ctx, query, deviceID)

	d, err := scanDevice(row)
	metrics.RecordDBQuery("SELECT", "devices", time.Since(start), err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return d, nil
}

// ListDevices returns all registered devices ordered by id.
func (db *DB) ListDevices(ctx context.Context) ([]*models.Device, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	const query = `
		SELECT id, name, building, floor, zone, enabled, last_seen_at, created_at
		FROM devices ORDER BY id`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query)
	metrics.RecordDBQuery("SELECT", "devices", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer closeQuietly(rows)

	devices := make([]*models.Device, 0, 16)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}

	return devices, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDevice(row rowScanner) (*models.Device, error) {
	var (
		d        models.Device
		lastSeen sql.NullTime
	)
	if err := row.Scan(&d.ID, &d.Name, &d.Building, &d.Floor, &d.Zone, &d.Enabled, &lastSeen, &d.CreatedAt); err != nil {
		return nil, err
	}
	if lastSeen.Valid {
		t := lastSeen.Time.UTC()
		d.LastSeenAt = &t
	}
	return &d, nil
}
