// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/voltaic-labs/voltaic/internal/export"
	"github.com/voltaic-labs/voltaic/internal/logging"
	"github.com/voltaic-labs/voltaic/internal/metrics"
	"github.com/voltaic-labs/voltaic/internal/models"
)

// exportRequest is the body of a CSV export submission. Points > 0
// decimates the range before encoding; 0 exports raw rows.
type exportRequest struct {
	DeviceID string    `json:"device_id" validate:"required,min=1,max=128"`
	Sensor   string    `json:"sensor" validate:"required,sensor_name"`
	From     time.Time `json:"from" validate:"required"`
	To       time.Time `json:"to" validate:"required"`
	Points   int       `json:"points" validate:"omitempty,min=0,max=100000"`
	Method   string    `json:"method" validate:"omitempty,decimation_method"`
}

// CreateExportJob queues an asynchronous CSV export. The route is
// gated by RequireExport; the tier range cap still applies here.
func (h *Handler) CreateExportJob(w http.ResponseWriter, r *http.Request) {
	if h.exports == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeService, "export is not configured", nil)
		return
	}

	var req exportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid request body", err)
		return
	}
	if !validateRequest(w, &req) {
		return
	}
	if !req.To.After(req.From) {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "from must precede to", nil)
		return
	}

	tier := TierFromContext(r.Context())
	if tier.MaxRangeDays > 0 {
		maxRange := time.Duration(tier.MaxRangeDays) * 24 * time.Hour
		if req.To.Sub(req.From) > maxRange {
			metrics.APITierRejections.WithLabelValues(string(tier.Name), "range").Inc()
			respondError(w, r, http.StatusForbidden, CodeTierForbidden,
				fmt.Sprintf("requested range exceeds the %d day tier limit", tier.MaxRangeDays), nil)
			return
		}
	}

	job, err := h.exports.Submit(models.ExportSpec{
		DeviceID: req.DeviceID,
		Sensor:   req.Sensor,
		From:     req.From.UTC(),
		To:       req.To.UTC(),
		Points:   req.Points,
		Method:   req.Method,
	}, keyFingerprint(apiKeyFromRequest(r)))
	if err != nil {
		if errors.Is(err, export.ErrQueueFull) {
			respondError(w, r, http.StatusServiceUnavailable, CodeService, "export queue full, retry later", err)
			return
		}
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return
	}

	respondJSON(w, http.StatusAccepted, successResponse(job, 0, false))
}

// ExportCSV streams a CSV of the requested range directly in the
// response. Query parameters match GetSeries; points=0 exports raw
// rows (capped by the configured row limit) instead of decimating.
// Large extracts should go through the async job endpoints.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	if h.exports == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeService, "export is not configured", nil)
		return
	}

	params, ok := h.parseSeriesParams(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", params.DeviceID+"_"+params.Sensor+".csv"))

	rows, err := h.exports.WriteCSV(r.Context(), w, models.ExportSpec{
		DeviceID: params.DeviceID,
		Sensor:   params.Sensor,
		From:     params.From,
		To:       params.To,
		Points:   params.Points,
		Method:   string(params.Method),
	})
	if err != nil {
		// Headers are already sent; the truncated body is all we can
		// signal. Log with the row count reached.
		logging.Error().Err(err).
			Str("device_id", params.DeviceID).
			Str("sensor", params.Sensor).
			Int("rows_written", rows).
			Msg("synchronous csv export failed mid-stream")
	}
}

// ListExportJobs returns all export jobs, newest first.
func (h *Handler) ListExportJobs(w http.ResponseWriter, r *http.Request) {
	if h.exports == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeService, "export is not configured", nil)
		return
	}

	jobs, err := h.exports.Jobs()
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "export job listing failed", err)
		return
	}

	respondJSON(w, http.StatusOK, successResponse(map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	}, 0, false))
}

// GetExportJob returns one export job by id.
func (h *Handler) GetExportJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupExportJob(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, successResponse(job, 0, false))
}

// DownloadExport streams the finished CSV file.
func (h *Handler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupExportJob(w, r)
	if !ok {
		return
	}

	if job.State != models.ExportDone {
		respondError(w, r, http.StatusConflict, CodeService,
			fmt.Sprintf("export job is %s, not done", job.State), nil)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", job.ID.String()+".csv"))
	http.ServeFile(w, r, h.exports.FilePath(job.ID))
}

func (h *Handler) lookupExportJob(w http.ResponseWriter, r *http.Request) (*models.ExportJob, bool) {
	if h.exports == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeService, "export is not configured", nil)
		return nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid job id", nil)
		return nil, false
	}

	job, err := h.exports.Job(id)
	if err != nil {
		if errors.Is(err, export.ErrJobNotFound) {
			respondError(w, r, http.StatusNotFound, CodeNotFound, "unknown export job", nil)
			return nil, false
		}
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "export job lookup failed", err)
		return nil, false
	}
	return job, true
}
