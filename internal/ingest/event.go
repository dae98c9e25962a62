// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

// Package ingest implements the telemetry intake pipeline: readings
// accepted over HTTP are published to NATS JetStream, and a durable
// batch consumer writes them to DuckDB. The broker decouples intake
// burst rates from storage write throughput.
package ingest

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/voltaic-labs/voltaic/internal/models"
)

// TopicReadings is the JetStream subject for sensor readings.
const TopicReadings = "telemetry.readings"

// StreamName is the JetStream stream holding reading events.
const StreamName = "VOLTAIC_READINGS"

// ReadingEvent is the wire format for one sensor sample on the
// telemetry stream. TS is unix milliseconds.
type ReadingEvent struct {
	EventID  string  `json:"event_id"`
	DeviceID string  `json:"device_id"`
	Sensor   string  `json:"sensor"`
	TS       int64   `json:"ts"`
	Value    float64 `json:"value"`
	Anomaly  bool    `json:"anomaly,omitempty"`
	Quality  string  `json:"quality,omitempty"`
}

// NewReadingEvent builds an event from a reading. The event id is
// unique per publish attempt; broker-side deduplication keys on
// DedupKey instead.
func NewReadingEvent(r *models.Reading) *ReadingEvent {
	return &ReadingEvent{
		EventID:  uuid.New().String(),
		DeviceID: r.DeviceID,
		Sensor:   r.Sensor,
		TS:       r.TS.UnixMilli(),
		Value:    r.Value,
		Anomaly:  r.Anomaly,
		Quality:  r.Quality,
	}
}

// DedupKey identifies the sample, not the publish attempt. Used as the
// Nats-Msg-Id so a re-ingested reading for the same (device, sensor,
// ts) is dropped inside the stream's duplicate window, even when the
// client generated a fresh event id.
func (e *ReadingEvent) DedupKey() string {
	return fmt.Sprintf("%s:%s:%d", e.DeviceID, e.Sensor, e.TS)
}

// Validate checks the event is well-formed before publishing.
func (e *ReadingEvent) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("event id required")
	}
	if e.DeviceID == "" {
		return fmt.Errorf("device id required")
	}
	if e.Sensor == "" {
		return fmt.Errorf("sensor required")
	}
	if e.TS <= 0 {
		return fmt.Errorf("timestamp must be positive unix milliseconds, got %d", e.TS)
	}
	if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
		return fmt.Errorf("value must be finite, got %v", e.Value)
	}
	switch e.Quality {
	case "", models.QualityGood, models.QualityEstimated, models.QualityMissing:
	default:
		return fmt.Errorf("unknown quality %q", e.Quality)
	}
	return nil
}

// ToReading converts the event to the storage model.
func (e *ReadingEvent) ToReading() *models.Reading {
	quality := e.Quality
	if quality == "" {
		quality = models.QualityGood
	}

	r := &models.Reading{
		DeviceID: e.DeviceID,
		Sensor:   e.Sensor,
		TS:       time.UnixMilli(e.TS).UTC(),
		Value:    e.Value,
		Anomaly:  e.Anomaly,
		Quality:  quality,
	}
	if id, err := uuid.Parse(e.EventID); err == nil {
		r.ID = id
	}
	return r
}
