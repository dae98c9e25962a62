// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/voltaic-labs/voltaic/internal/ingest"
	"github.com/voltaic-labs/voltaic/internal/logging"
	"github.com/voltaic-labs/voltaic/internal/models"
)

// readingInput is one sample in an intake batch. TS is unix
// milliseconds. Value is a pointer so an explicit zero survives the
// required check.
type readingInput struct {
	DeviceID string   `json:"device_id" validate:"required,min=1,max=128"`
	Sensor   string   `json:"sensor" validate:"required,sensor_name"`
	TS       int64    `json:"ts" validate:"required,gt=0"`
	Value    *float64 `json:"value" validate:"required"`
	Anomaly  bool     `json:"anomaly"`
	Quality  string   `json:"quality" validate:"omitempty,oneof=good estimated missing"`
}

type intakeRequest struct {
	Readings []readingInput `json:"readings" validate:"required,min=1,dive"`
}

// PostReadings accepts a telemetry batch. With the NATS pipeline
// enabled the batch is published to JetStream and acknowledged with
// 202; the durable consumer persists it. Without the pipeline the
// batch is written to storage directly.
func (h *Handler) PostReadings(w http.ResponseWriter, r *http.Request) {
	var req intakeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid request body", err)
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	if max := h.cfg.Ingest.MaxBatchSize; max > 0 && len(req.Readings) > max {
		respondError(w, r, http.StatusBadRequest, CodeValidation,
			fmt.Sprintf("batch exceeds maximum size of %d readings", max), nil)
		return
	}

	if h.gate != nil {
		perDevice := make(map[string]int)
		for _, in := range req.Readings {
			perDevice[in.DeviceID]++
		}
		for deviceID, n := range perDevice {
			if !h.gate.AllowN(deviceID, n) {
				logging.Warn().
					Str("device_id", sanitizeLogValue(deviceID)).
					Int("readings", n).
					Msg("device rate limit exceeded")
				respondError(w, r, http.StatusTooManyRequests, CodeRateLimited,
					"device rate limit exceeded: "+sanitizeLogValue(deviceID), nil)
				return
			}
		}
	}

	events := make([]*ingest.ReadingEvent, 0, len(req.Readings))
	for _, in := range req.Readings {
		event := ingest.NewReadingEvent(&models.Reading{
			DeviceID: in.DeviceID,
			Sensor:   in.Sensor,
			TS:       time.UnixMilli(in.TS).UTC(),
			Value:    *in.Value,
			Anomaly:  in.Anomaly,
			Quality:  in.Quality,
		})
		if err := event.Validate(); err != nil {
			respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid reading", err)
			return
		}
		events = append(events, event)
	}

	mode := "pipeline"
	var err error
	if h.publisher != nil {
		err = h.publishBatch(r, events)
	} else {
		mode = "direct"
		err = h.storeBatch(r, events)
	}
	if err != nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeService, "failed to accept readings", err)
		return
	}

	respondJSON(w, http.StatusAccepted, successResponse(map[string]interface{}{
		"accepted": len(events),
		"mode":     mode,
	}, 0, false))
}

func (h *Handler) publishBatch(r *http.Request, events []*ingest.ReadingEvent) error {
	for _, event := range events {
		if err := h.publisher.PublishEvent(r.Context(), event); err != nil {
			return fmt.Errorf("publish reading: %w", err)
		}
	}
	return nil
}

// storeBatch is the no-broker path: register devices, write the batch,
// and feed the live stream that the consumer would otherwise drive.
func (h *Handler) storeBatch(r *http.Request, events []*ingest.ReadingEvent) error {
	ctx := r.Context()

	readings := make([]*models.Reading, 0, len(events))
	seen := make(map[string]bool)
	for _, event := range events {
		if !seen[event.DeviceID] {
			seen[event.DeviceID] = true
			if err := h.db.EnsureDevice(ctx, event.DeviceID); err != nil {
				return fmt.Errorf("ensure device: %w", err)
			}
		}
		readings = append(readings, event.ToReading())
	}

	if err := h.db.InsertReadingBatch(ctx, readings); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	for deviceID := range seen {
		if err := h.db.TouchDeviceLastSeen(ctx, deviceID); err != nil {
			logging.Warn().Err(err).Str("device_id", sanitizeLogValue(deviceID)).Msg("failed to touch device")
		}
	}

	if h.hub != nil {
		for _, reading := range readings {
			h.hub.BroadcastReading(reading)
		}
	}
	return nil
}
