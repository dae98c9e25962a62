// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/voltaic-labs/voltaic/internal/cache"
	"github.com/voltaic-labs/voltaic/internal/database"
	"github.com/voltaic-labs/voltaic/internal/decimate"
	"github.com/voltaic-labs/voltaic/internal/metrics"
	"github.com/voltaic-labs/voltaic/internal/models"
)

// sensorUnits maps well-known sensor names to display units.
var sensorUnits = map[string]string{
	"power_w":      "W",
	"energy_kwh":   "kWh",
	"temp_c":       "C",
	"humidity_pct": "%",
	"co2_ppm":      "ppm",
}

// seriesParams is a parsed and tier-clamped series query.
type seriesParams struct {
	DeviceID string
	Sensor   string
	From     time.Time
	To       time.Time
	Points   int
	Method   decimate.Method
	Epsilon  float64
}

// GetSeries returns a decimated chart series for one device sensor.
//
// Query parameters: device_id, sensor (required); from, to (RFC3339 or
// unix millis, default last 24h); points (decimation target); method
// (lttb, minmax, adaptive); epsilon (adaptive flatness threshold,
// 0 = automatic).
func (h *Handler) GetSeries(w http.ResponseWriter, r *http.Request) {
	params, ok := h.parseSeriesParams(w, r)
	if !ok {
		return
	}

	cacheKey := ""
	if h.cache != nil {
		cacheKey = seriesCacheKey("series", params)
		if cached, hit := h.cache.Get(cacheKey); hit {
			respondJSON(w, http.StatusOK, successResponse(cached, 0, true))
			return
		}
	}

	start := time.Now()
	series, err := h.db.QueryRange(r.Context(), params.DeviceID, params.Sensor, params.From, params.To, h.cfg.API.MaxQueryRows)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "range query failed", err)
		return
	}

	reduced, stats := decimate.Downsample(series, decimate.Options{
		Target:            params.Points,
		Method:            params.Method,
		Epsilon:           params.Epsilon,
		PreserveAnomalies: true,
	})
	metrics.RecordDecimation(string(params.Method), stats.InputPoints, stats.OutputPoints, stats.Elapsed)

	payload := buildChartSeries(params, reduced, stats)
	if h.cache != nil {
		h.cache.Set(cacheKey, payload)
	}

	respondJSON(w, http.StatusOK, successResponse(payload, time.Since(start), false))
}

// GetSeriesStats returns aggregate statistics for a range without
// decimation.
func (h *Handler) GetSeriesStats(w http.ResponseWriter, r *http.Request) {
	params, ok := h.parseSeriesParams(w, r)
	if !ok {
		return
	}

	cacheKey := ""
	if h.cache != nil {
		cacheKey = seriesCacheKey("series_stats", params)
		if cached, hit := h.cache.Get(cacheKey); hit {
			respondJSON(w, http.StatusOK, successResponse(cached, 0, true))
			return
		}
	}

	start := time.Now()
	stats, err := h.db.QueryRangeStats(r.Context(), params.DeviceID, params.Sensor, params.From, params.To)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "stats query failed", err)
		return
	}

	if h.cache != nil {
		h.cache.Set(cacheKey, stats)
	}
	respondJSON(w, http.StatusOK, successResponse(stats, time.Since(start), false))
}

// parseSeriesParams validates the query and applies tier limits. On
// failure the response has been written and ok is false.
func (h *Handler) parseSeriesParams(w http.ResponseWriter, r *http.Request) (seriesParams, bool) {
	var params seriesParams

	params.DeviceID = r.URL.Query().Get("device_id")
	params.Sensor = r.URL.Query().Get("sensor")
	if params.DeviceID == "" || params.Sensor == "" {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "device_id and sensor are required", nil)
		return params, false
	}

	if _, err := h.db.GetDevice(r.Context(), params.DeviceID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, CodeNotFound, "unknown device", nil)
		} else {
			respondError(w, r, http.StatusInternalServerError, CodeDatabase, "device lookup failed", err)
		}
		return params, false
	}

	to, set, err := getTimeParam(r, "to")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return params, false
	}
	if !set {
		to = time.Now().UTC()
	}
	from, set, err := getTimeParam(r, "from")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return params, false
	}
	if !set {
		from = to.Add(-24 * time.Hour)
	}
	if !to.After(from) {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "from must precede to", nil)
		return params, false
	}
	params.From, params.To = from, to

	tier := TierFromContext(r.Context())
	if tier.MaxRangeDays > 0 {
		maxRange := time.Duration(tier.MaxRangeDays) * 24 * time.Hour
		if to.Sub(from) > maxRange {
			metrics.APITierRejections.WithLabelValues(string(tier.Name), "range").Inc()
			respondError(w, r, http.StatusForbidden, CodeTierForbidden,
				fmt.Sprintf("requested range exceeds the %d day tier limit", tier.MaxRangeDays), nil)
			return params, false
		}
	}

	points := getIntParam(r, "points", h.cfg.API.DefaultChartPoints)
	if points < 0 {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "points must be non-negative", nil)
		return params, false
	}
	if tier.MaxChartPoints > 0 && points > tier.MaxChartPoints {
		points = tier.MaxChartPoints
	}
	if max := h.cfg.API.MaxChartPoints; max > 0 && points > max {
		points = max
	}
	params.Points = points

	method := decimate.MethodLTTB
	if raw := r.URL.Query().Get("method"); raw != "" {
		method = decimate.Method(raw)
		if !method.Valid() {
			respondError(w, r, http.StatusBadRequest, CodeValidation,
				"unknown decimation method: "+sanitizeLogValue(raw), nil)
			return params, false
		}
	}
	params.Method = method

	if raw := r.URL.Query().Get("epsilon"); raw != "" {
		epsilon, err := strconv.ParseFloat(raw, 64)
		if err != nil || epsilon < 0 {
			respondError(w, r, http.StatusBadRequest, CodeValidation,
				"epsilon must be a non-negative number", nil)
			return params, false
		}
		params.Epsilon = epsilon
	}

	return params, true
}

func buildChartSeries(params seriesParams, reduced decimate.Series, stats decimate.Stats) *models.ChartSeries {
	points := make([]models.ChartPoint, len(reduced))
	var anomalyIdx []int
	for i, p := range reduced {
		points[i] = models.ChartPoint{float64(p.TS), p.Value}
		if p.Anomaly {
			anomalyIdx = append(anomalyIdx, i)
		}
	}

	return &models.ChartSeries{
		DeviceID:   params.DeviceID,
		Sensor:     params.Sensor,
		Unit:       sensorUnits[params.Sensor],
		From:       params.From,
		To:         params.To,
		Points:     points,
		AnomalyIdx: anomalyIdx,
		Decimation: models.DecimationStats{
			Method:        string(params.Method),
			InputPoints:   stats.InputPoints,
			OutputPoints:  stats.OutputPoints,
			AnomaliesKept: stats.AnomaliesKept,
			NonFinite:     stats.NonFinite,
			ElapsedMicros: stats.Elapsed.Microseconds(),
		},
	}
}

func seriesCacheKey(kind string, params seriesParams) string {
	return cache.GenerateKey(kind, map[string]interface{}{
		"device_id": params.DeviceID,
		"sensor":    params.Sensor,
		"from":      params.From.UnixMilli(),
		"to":        params.To.UnixMilli(),
		"points":    params.Points,
		"method":    string(params.Method),
		"epsilon":   params.Epsilon,
	})
}
