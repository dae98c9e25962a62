// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/voltaic-labs/voltaic/internal/decimate"
	"github.com/voltaic-labs/voltaic/internal/metrics"
	"github.com/voltaic-labs/voltaic/internal/models"
)

// defaultQueryLimit bounds range queries whose caller did not pick a
// ceiling. A two-year professional range at one-minute resolution is
// ~1.05M rows.
const defaultQueryLimit = 2_000_000

const insertReadingQuery = `
	INSERT INTO readings (id, device_id, sensor, ts, value, anomaly, quality)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT DO NOTHING`

// InsertReading writes a single reading. Duplicate (device_id, sensor,
// ts) triples are silently dropped, so replaying the ingest stream is
// safe.
func (db *DB) InsertReading(ctx context.Context, r *models.Reading) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	err := db.execInsertReading(ctx, r)
	metrics.RecordDBQuery("INSERT", "readings", time.Since(start), err)

	if err != nil && isConnectionError(err) {
		if rerr := db.reconnect(ctx); rerr != nil {
			return fmt.Errorf("insert failed and reconnect failed: %w", rerr)
		}
		err = db.execInsertReading(ctx, r)
	}
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	metrics.DBRowsInserted.Inc()
	return nil
}

func (db *DB) execInsertReading(ctx context.Context, r *models.Reading) error {
	stmt, err := db.getStmt(ctx, insertReadingQuery)
	if err != nil {
		return err
	}

	id := r.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	quality := r.Quality
	if quality == "" {
		quality = models.QualityGood
	}

	_, err = stmt.ExecContext(ctx,
		id.String(), r.DeviceID, r.Sensor, r.TS.UnixMilli(), r.Value, r.Anomaly, quality)
	return err
}

// InsertReadingBatch writes a batch of readings in a single
// transaction. The batch consumer flushes up to config
// nats.batch_size readings at a time through this path.
func (db *DB) InsertReadingBatch(ctx context.Context, readings []*models.Reading) error {
	if len(readings) == 0 {
		return nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	err := db.execInsertBatch(ctx, readings)
	metrics.RecordDBQuery("INSERT", "readings", time.Since(start), err)

	if err != nil && isConnectionError(err) {
		if rerr := db.reconnect(ctx); rerr != nil {
			return fmt.Errorf("batch insert failed and reconnect failed: %w", rerr)
		}
		err = db.execInsertBatch(ctx, readings)
	}
	if err != nil {
		return fmt.Errorf("failed to insert reading batch: %w", err)
	}

	metrics.DBRowsInserted.Add(float64(len(readings)))
	return nil
}

func (db *DB) execInsertBatch(ctx context.Context, readings []*models.Reading) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertReadingQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare batch statement: %w", err)
	}
	defer closeQuietly(stmt)

	for _, r := range readings {
		id := r.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		quality := r.Quality
		if quality == "" {
			quality = models.QualityGood
		}
		if _, err := stmt.ExecContext(ctx,
			id.String(), r.DeviceID, r.Sensor, r.TS.UnixMilli(), r.Value, r.Anomaly, quality); err != nil {
			return fmt.Errorf("failed to insert reading in batch: %w", err)
		}
	}

	return tx.Commit()
}

// QueryRange returns readings for one device/sensor in [from, to],
// ordered by timestamp, as a decimation-ready series. The result is
// bounded by limit; limit <= 0 applies defaultQueryLimit. Callers pass
// a ceiling well above their decimation target so min-max and anomaly
// preservation still see the shape of the range.
func (db *DB) QueryRange(ctx context.Context, deviceID, sensor string, from, to time.Time, limit int) (decimate.Series, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if limit <= 0 {
		limit = defaultQueryLimit
	}

	const query = `
		SELECT ts, value, anomaly
		FROM readings
		WHERE device_id = ? AND sensor = ? AND ts >= ? AND ts <= ?
		ORDER BY ts
		LIMIT ?`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, deviceID, sensor, from.UnixMilli(), to.UnixMilli(), limit)
	metrics.RecordDBQuery("SELECT", "readings", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query range: %w", err)
	}
	defer closeQuietly(rows)

	series := make(decimate.Series, 0, 1024)
	for rows.Next() {
		var p decimate.Point
		if err := rows.Scan(&p.TS, &p.Value, &p.Anomaly); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		series = append(series, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate range: %w", err)
	}

	return series, nil
}

// QueryRangeStats computes the dashboard summary for one device/sensor
// range in a single aggregate pass.
func (db *DB) QueryRangeStats(ctx context.Context, deviceID, sensor string, from, to time.Time) (*models.RangeStats, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	const query = `
		SELECT
			COUNT(*),
			COALESCE(MIN(value), 0),
			COALESCE(MAX(value), 0),
			COALESCE(AVG(value), 0),
			COALESCE(SUM(CASE WHEN anomaly THEN 1 ELSE 0 END), 0)
		FROM readings
		WHERE device_id = ? AND sensor = ? AND ts >= ? AND ts <= ?`

	stats := &models.RangeStats{
		DeviceID: deviceID,
		Sensor:   sensor,
		From:     from,
		To:       to,
	}

	start := time.Now()
	err := db.conn.QueryRowContext(ctx, query, deviceID, sensor, from.UnixMilli(), to.UnixMilli()).
		Scan(&stats.Count, &stats.Min, &stats.Max, &stats.Avg, &stats.Anomaly)
	metrics.RecordDBQuery("SELECT", "readings", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query range stats: %w", err)
	}

	return stats, nil
}

// StreamRange invokes fn for every reading in the range, ordered by
// timestamp. Used by the CSV export worker to avoid holding an entire
// professional-tier range (up to two years) in memory.
func (db *DB) StreamRange(ctx context.Context, deviceID, sensor string, from, to time.Time, maxRows int, fn func(*models.Reading) error) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	const query = `
		SELECT id, device_id, sensor, ts, value, anomaly, quality
		FROM readings
		WHERE device_id = ? AND sensor = ? AND ts >= ? AND ts <= ?
		ORDER BY ts
		LIMIT ?`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, deviceID, sensor, from.UnixMilli(), to.UnixMilli(), maxRows)
	metrics.RecordDBQuery("SELECT", "readings", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to query export range: %w", err)
	}
	defer closeQuietly(rows)

	count := 0
	for rows.Next() {
		var (
			r      models.Reading
			idStr  string
			tsUnix int64
		)
		if err := rows.Scan(&idStr, &r.DeviceID, &r.Sensor, &tsUnix, &r.Value, &r.Anomaly, &r.Quality); err != nil {
			return count, fmt.Errorf("failed to scan export reading: %w", err)
		}
		if id, err := uuid.Parse(idStr); err == nil {
			r.ID = id
		}
		r.TS = time.UnixMilli(tsUnix).UTC()

		if err := fn(&r); err != nil {
			return count, err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return count, fmt.Errorf("failed to iterate export range: %w", err)
	}

	return count, nil
}

// DeleteOlderThan removes readings with ts before the cutoff. Returns
// the number of rows removed. Used by the retention sweeper.
func (db *DB) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `DELETE FROM readings WHERE ts < ?`, cutoff.UnixMilli())
	metrics.RecordDBQuery("DELETE", "readings", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired readings: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil //nolint:nilerr // driver may not report affected rows
	}
	return affected, nil
}

// CountReadings returns the total number of stored readings.
func (db *DB) CountReadings(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count readings: %w", err)
	}
	return count, nil
}
