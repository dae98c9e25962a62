// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package models

import (
	"time"

	"github.com/google/uuid"
)

// Export job states.
const (
	ExportPending = "pending"
	ExportRunning = "running"
	ExportDone    = "done"
	ExportFailed  = "failed"
)

// ExportSpec describes the range an export job should extract.
type ExportSpec struct {
	DeviceID string    `json:"device_id"`
	Sensor   string    `json:"sensor"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`

	// Points > 0 decimates the range before encoding; 0 exports raw.
	Points int    `json:"points,omitempty"`
	Method string `json:"method,omitempty"`
}

// ExportJob tracks one asynchronous CSV export.
type ExportJob struct {
	ID        uuid.UUID  `json:"id"`
	Requestor string     `json:"requestor,omitempty"` // API key fingerprint, not the key itself
	Spec      ExportSpec `json:"spec"`
	State     string     `json:"state"`
	Rows      int        `json:"rows,omitempty"`
	SizeBytes int        `json:"size_bytes,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	DoneAt    *time.Time `json:"done_at,omitempty"`
}
