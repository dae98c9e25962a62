// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

// Package models defines the domain records shared across Voltaic:
// sensor readings, devices, subscription tiers, chart payloads, export
// jobs, and the standard API response envelope.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Reading quality markers as reported by the ingesting gateway.
const (
	QualityGood      = "good"
	QualityEstimated = "estimated"
	QualityMissing   = "missing"
)

// Reading is a single sensor sample from a building device.
//
// The (DeviceID, Sensor, TS) triple is unique in storage; re-ingesting the
// same sample is a no-op, which makes pipeline replay safe.
type Reading struct {
	ID        uuid.UUID `json:"id"`
	DeviceID  string    `json:"device_id"`
	Sensor    string    `json:"sensor"` // metric name: power_w, energy_kwh, temp_c, ...
	TS        time.Time `json:"ts"`
	Value     float64   `json:"value"`
	Anomaly   bool      `json:"anomaly,omitempty"`
	Quality   string    `json:"quality,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Device is a registered data source (a meter or sensor gateway).
type Device struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Building   string     `json:"building,omitempty"`
	Floor      string     `json:"floor,omitempty"`
	Zone       string     `json:"zone,omitempty"`
	Enabled    bool       `json:"enabled"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
}

// RangeStats summarizes a sensor range for the dashboard header.
type RangeStats struct {
	DeviceID string    `json:"device_id"`
	Sensor   string    `json:"sensor"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Count    int64     `json:"count"`
	Min      float64   `json:"min"`
	Max      float64   `json:"max"`
	Avg      float64   `json:"avg"`
	Anomaly  int64     `json:"anomaly_count"`
}
