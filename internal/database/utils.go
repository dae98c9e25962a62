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
	"io"

	"github.com/voltaic-labs/voltaic/internal/logging"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("not found")

// closeQuietly closes a resource, ignoring the error. Used during
// cleanup paths where the original error matters more.
func closeQuietly(c io.Closer) {
	_ = c.Close()
}

// closeWithLog closes a resource and logs any error
func closeWithLog(c io.Closer, name string) {
	if err := c.Close(); err != nil {
		logging.Warn().Err(err).Str("resource", name).Msg("Failed to close resource")
	}
}

// getStmt returns a cached prepared statement, preparing it on first
// use. Statements live for the lifetime of the connection and are
// cleared on reconnect.
func (db *DB) getStmt(ctx context.Context, query string) (*sql.Stmt, error) {
	db.stmtCacheMu.RLock()
	stmt, ok := db.stmtCache[query]
	db.stmtCacheMu.RUnlock()
	if ok {
		return stmt, nil
	}

	db.stmtCacheMu.Lock()
	defer db.stmtCacheMu.Unlock()

	// Another goroutine may have prepared it while we waited.
	if stmt, ok := db.stmtCache[query]; ok {
		return stmt, nil
	}

	stmt, err := db.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	db.stmtCache[query] = stmt
	return stmt, nil
}
