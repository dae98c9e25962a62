// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package models

import "time"

// ChartPoint is one display point: [unix millis, value].
// Serialized as a two-element array to keep chart payloads compact.
type ChartPoint [2]float64

// DecimationStats reports what the decimation pass did to a series.
type DecimationStats struct {
	Method        string `json:"method"`
	InputPoints   int    `json:"input_points"`
	OutputPoints  int    `json:"output_points"`
	AnomaliesKept int    `json:"anomalies_kept,omitempty"`
	NonFinite     int    `json:"non_finite_dropped,omitempty"`
	ElapsedMicros int64  `json:"elapsed_us"`
}

// ChartSeries is the payload for the interactive chart component.
//
// AnomalyIdx lists indices into Points whose source readings were flagged
// anomalous, so the client can mark them without a parallel array of
// booleans on every point.
type ChartSeries struct {
	DeviceID   string          `json:"device_id"`
	Sensor     string          `json:"sensor"`
	Unit       string          `json:"unit,omitempty"`
	From       time.Time       `json:"from"`
	To         time.Time       `json:"to"`
	Points     []ChartPoint    `json:"points"`
	AnomalyIdx []int           `json:"anomaly_idx,omitempty"`
	Decimation DecimationStats `json:"decimation"`
}
