// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/voltaic-labs/voltaic/internal/logging"
	"github.com/voltaic-labs/voltaic/internal/middleware"
	"github.com/voltaic-labs/voltaic/internal/models"
	"github.com/voltaic-labs/voltaic/internal/validation"
)

// respondJSON writes a response envelope. Successful GETs carry a weak
// cache policy plus an ETag so dashboards polling the same range can
// revalidate cheaply.
func respondJSON(w http.ResponseWriter, statusCode int, response *models.APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal API response")
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if statusCode == http.StatusOK {
		w.Header().Set("Cache-Control", "public, max-age=60")
		w.Header().Set("Vary", "Accept-Encoding")
		w.Header().Set("ETag", generateETag(data))
	} else {
		w.Header().Set("Cache-Control", "no-store")
	}

	w.WriteHeader(statusCode)
	_, _ = w.Write(data)
}

// generateETag hashes the response body with FNV-1a.
func generateETag(data []byte) string {
	hash := uint32(2166136261)
	for _, b := range data {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return fmt.Sprintf(`"%08x"`, hash)
}

// respondError writes an error envelope and logs the failure with the
// request id. err may be nil when the condition is purely client-side.
func respondError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string, err error) {
	ev := logging.Warn()
	if statusCode >= http.StatusInternalServerError {
		ev = logging.Error()
	}
	ev.Err(err).
		Str("request_id", middleware.GetRequestID(r.Context())).
		Str("code", code).
		Int("status", statusCode).
		Str("path", sanitizeLogValue(r.URL.Path)).
		Msg(message)

	respondJSON(w, statusCode, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: code, Message: message},
	})
}

// successResponse wraps a payload in the standard envelope.
func successResponse(data interface{}, queryTime time.Duration, cached bool) *models.APIResponse {
	return &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: queryTime.Milliseconds(),
			Cached:      cached,
		},
	}
}

// decodeJSON decodes a request body with a hard size cap.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 4<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// validateRequest runs struct validation and writes the 400 response on
// failure. Returns true when the request is valid.
func validateRequest(w http.ResponseWriter, s interface{}) bool {
	verr := validation.ValidateStruct(s)
	if verr == nil {
		return true
	}

	apiErr := verr.ToAPIError()
	respondJSON(w, http.StatusBadRequest, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error: &models.APIError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		},
	})
	return false
}

// getIntParam reads an integer query parameter, falling back to def on
// absence or garbage.
func getIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// getTimeParam reads a timestamp query parameter as RFC3339 or unix
// milliseconds. The second return is false when the parameter is absent.
func getTimeParam(r *http.Request, name string) (time.Time, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, false, nil
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC(), true, nil
	}
	return time.Time{}, true, fmt.Errorf("parameter %q must be RFC3339 or unix milliseconds", name)
}

// sanitizeLogValue strips control characters from user-supplied strings
// before they reach the log stream.
func sanitizeLogValue(s string) string {
	if s == "" {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			fmt.Fprintf(&b, "\\x%02x", r)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
