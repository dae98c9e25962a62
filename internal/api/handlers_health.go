// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package api

import (
	"context"
	"net/http"
	"time"
)

// GetHealth is the liveness probe. It never touches dependencies.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, successResponse(map[string]interface{}{
		"status":   "ok",
		"uptime_s": int64(time.Since(h.started).Seconds()),
	}, 0, false))
}

// GetReadiness is the readiness probe: the server is ready when the
// database answers a ping.
func (h *Handler) GetReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeService, "database not reachable", err)
		return
	}

	respondJSON(w, http.StatusOK, successResponse(map[string]interface{}{
		"status": "ready",
	}, 0, false))
}

// GetHealthDetail reports the state of each subsystem for the ops
// dashboard.
func (h *Handler) GetHealthDetail(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	detail := map[string]interface{}{
		"status":   "ok",
		"uptime_s": int64(time.Since(h.started).Seconds()),
	}

	dbStatus := map[string]interface{}{"status": "ok"}
	if err := h.db.Ping(ctx); err != nil {
		detail["status"] = "degraded"
		dbStatus["status"] = "down"
		dbStatus["error"] = err.Error()
	} else if count, err := h.db.CountReadings(ctx); err == nil {
		dbStatus["readings"] = count
	}
	detail["database"] = dbStatus

	if h.cache != nil {
		stats := h.cache.GetStats()
		detail["cache"] = map[string]interface{}{
			"keys":     stats.TotalKeys,
			"hits":     stats.Hits,
			"misses":   stats.Misses,
			"hit_rate": h.cache.HitRate(),
		}
	}

	if h.hub != nil {
		detail["websocket"] = map[string]interface{}{
			"clients": h.hub.GetClientCount(),
		}
	}

	if h.exports != nil {
		if jobs, err := h.exports.Jobs(); err == nil {
			detail["export"] = map[string]interface{}{"jobs": len(jobs)}
		}
	}

	status := http.StatusOK
	if detail["status"] == "degraded" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, successResponse(detail, time.Since(start), false))
}

// GetPerformance exposes the sliding-window endpoint latency stats.
func (h *Handler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	if h.perf == nil {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "performance monitoring disabled", nil)
		return
	}

	respondJSON(w, http.StatusOK, successResponse(map[string]interface{}{
		"endpoints": h.perf.GetStats(),
	}, 0, false))
}
