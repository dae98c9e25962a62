// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/voltaic-labs/voltaic/internal/database"
	"github.com/voltaic-labs/voltaic/internal/models"
)

// deviceInput is the body of a device registration. Enabled is a
// pointer so an explicit false survives decoding; absent means true.
type deviceInput struct {
	ID       string `json:"id" validate:"required,min=1,max=128"`
	Name     string `json:"name" validate:"omitempty,max=256"`
	Building string `json:"building" validate:"omitempty,max=128"`
	Floor    string `json:"floor" validate:"omitempty,max=128"`
	Zone     string `json:"zone" validate:"omitempty,max=128"`
	Enabled  *bool  `json:"enabled"`
}

// ListDevices returns every registered device.
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	devices, err := h.db.ListDevices(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "device listing failed", err)
		return
	}

	respondJSON(w, http.StatusOK, successResponse(map[string]interface{}{
		"devices": devices,
		"count":   len(devices),
	}, time.Since(start), false))
}

// RegisterDevice creates or updates a device record. Intake
// auto-registers unknown devices with empty metadata; this endpoint
// fills in names and locations.
func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceInput
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid request body", err)
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	start := time.Now()
	err := h.db.UpsertDevice(r.Context(), &models.Device{
		ID:       req.ID,
		Name:     req.Name,
		Building: req.Building,
		Floor:    req.Floor,
		Zone:     req.Zone,
		Enabled:  enabled,
	})
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "device registration failed", err)
		return
	}

	device, err := h.db.GetDevice(r.Context(), req.ID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "device lookup failed", err)
		return
	}

	respondJSON(w, http.StatusCreated, successResponse(device, time.Since(start), false))
}

// GetDevice returns one device by id.
func (h *Handler) GetDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	if deviceID == "" {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "device id is required", nil)
		return
	}

	start := time.Now()
	device, err := h.db.GetDevice(r.Context(), deviceID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, CodeNotFound, "unknown device", nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "device lookup failed", err)
		return
	}

	respondJSON(w, http.StatusOK, successResponse(device, time.Since(start), false))
}
