// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/voltaic-labs/voltaic/internal/logging"
	"github.com/voltaic-labs/voltaic/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

func TestGenerateETag(t *testing.T) {
	a := generateETag([]byte(`{"status":"success"}`))
	b := generateETag([]byte(`{"status":"success"}`))
	c := generateETag([]byte(`{"status":"error"}`))

	if a != b {
		t.Errorf("same payload produced different ETags: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different payloads produced the same ETag")
	}
	if !strings.HasPrefix(a, `"`) || !strings.HasSuffix(a, `"`) || len(a) != 10 {
		t.Errorf("ETag %s is not a quoted 8-hex-digit tag", a)
	}
}

func TestRespondJSONSuccessHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	respondJSON(rec, http.StatusOK, successResponse(map[string]string{"k": "v"}, 5*time.Millisecond, false))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=60" {
		t.Errorf("Cache-Control = %q", got)
	}
	if rec.Header().Get("ETag") == "" {
		t.Error("missing ETag on 200 response")
	}

	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("Status = %q", resp.Status)
	}
	if resp.Metadata.QueryTimeMS != 5 {
		t.Errorf("QueryTimeMS = %d, want 5", resp.Metadata.QueryTimeMS)
	}
}

func TestRespondJSONErrorHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/series", nil)
	respondError(rec, req, http.StatusBadRequest, CodeValidation, "bad input", nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
	if rec.Header().Get("ETag") != "" {
		t.Error("error response carries an ETag")
	}

	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Status != "error" || resp.Error == nil {
		t.Fatalf("response = %+v, want error envelope", resp)
	}
	if resp.Error.Code != CodeValidation {
		t.Errorf("Error.Code = %q, want %q", resp.Error.Code, CodeValidation)
	}
}

func TestGetIntParam(t *testing.T) {
	tests := []struct {
		name  string
		query string
		def   int
		want  int
	}{
		{"present", "points=250", 100, 250},
		{"absent", "", 100, 100},
		{"garbage", "points=abc", 100, 100},
		{"negative", "points=-5", 100, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			if got := getIntParam(req, "points", tt.def); got != tt.want {
				t.Errorf("getIntParam() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetTimeParam(t *testing.T) {
	t.Run("rfc3339", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?from=2026-03-01T12:00:00Z", nil)
		got, set, err := getTimeParam(req, "from")
		if err != nil || !set {
			t.Fatalf("getTimeParam() = set %v, err %v", set, err)
		}
		want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("time = %v, want %v", got, want)
		}
	})

	t.Run("unix millis", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?from=1772366400000", nil)
		got, set, err := getTimeParam(req, "from")
		if err != nil || !set {
			t.Fatalf("getTimeParam() = set %v, err %v", set, err)
		}
		if got.UnixMilli() != 1772366400000 {
			t.Errorf("time = %v", got)
		}
	})

	t.Run("absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		_, set, err := getTimeParam(req, "from")
		if set || err != nil {
			t.Errorf("getTimeParam() = set %v, err %v, want absent", set, err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?from=yesterday", nil)
		_, set, err := getTimeParam(req, "from")
		if !set || err == nil {
			t.Error("getTimeParam() accepted garbage")
		}
	})
}

func TestSanitizeLogValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean", "bldg-a-meter-1", "bldg-a-meter-1"},
		{"newline injection", "a\nfake log line", "a\\x0afake log line"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLogValue(tt.input); got != tt.want {
				t.Errorf("sanitizeLogValue(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
