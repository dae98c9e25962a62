// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/voltaic-labs/voltaic/internal/config"
	"github.com/voltaic-labs/voltaic/internal/models"
)

func testTiersConfig() config.TiersConfig {
	return config.TiersConfig{
		Default: string(models.TierFree),
		Keys: map[string]string{
			"pro-key-1":  string(models.TierProfessional),
			"free-key-1": string(models.TierFree),
		},
	}
}

func resolveTier(t *testing.T, tiers config.TiersConfig, mutate func(*http.Request)) models.Tier {
	t.Helper()

	var got models.Tier
	handler := TierResolver(&tiers)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = TierFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/series", nil)
	if mutate != nil {
		mutate(req)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestTierResolver(t *testing.T) {
	tiers := testTiersConfig()

	t.Run("professional key", func(t *testing.T) {
		tier := resolveTier(t, tiers, func(r *http.Request) {
			r.Header.Set(apiKeyHeader, "pro-key-1")
		})
		if tier.Name != models.TierProfessional {
			t.Errorf("tier = %q, want professional", tier.Name)
		}
		if !tier.ExportEnabled || !tier.LiveEnabled {
			t.Error("professional tier missing capabilities")
		}
	})

	t.Run("unknown key falls back to default", func(t *testing.T) {
		tier := resolveTier(t, tiers, func(r *http.Request) {
			r.Header.Set(apiKeyHeader, "no-such-key")
		})
		if tier.Name != models.TierFree {
			t.Errorf("tier = %q, want free", tier.Name)
		}
	})

	t.Run("missing key falls back to default", func(t *testing.T) {
		tier := resolveTier(t, tiers, nil)
		if tier.Name != models.TierFree {
			t.Errorf("tier = %q, want free", tier.Name)
		}
		if tier.ExportEnabled || tier.LiveEnabled {
			t.Error("free tier should not carry export or live capabilities")
		}
	})

	t.Run("query parameter key", func(t *testing.T) {
		var got models.Tier
		handler := TierResolver(&tiers)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = TierFromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/ws?api_key=pro-key-1", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if got.Name != models.TierProfessional {
			t.Errorf("tier = %q, want professional", got.Name)
		}
	})
}

func TestTierResolverRequireKey(t *testing.T) {
	tiers := testTiersConfig()
	tiers.RequireKey = true

	handler := TierResolver(&tiers)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/series", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing key status = %d, want 401", rec.Code)
	}
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != CodeUnauthorized {
		t.Errorf("error = %+v, want UNAUTHORIZED", resp.Error)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/series", nil)
	req.Header.Set(apiKeyHeader, "no-such-key")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown key status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/series", nil)
	req.Header.Set(apiKeyHeader, "free-key-1")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("known key status = %d, want 204", rec.Code)
	}
}

func TestTierFromContextDefault(t *testing.T) {
	tier := TierFromContext(context.Background())
	if tier.Name != models.TierFree {
		t.Errorf("tier = %q, want free when resolver did not run", tier.Name)
	}
}

func TestRequireExport(t *testing.T) {
	tiers := testTiersConfig()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := TierResolver(&tiers)(RequireExport(next))

	t.Run("free tier rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/export/jobs", nil))

		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
		var resp models.APIResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if resp.Error == nil || resp.Error.Code != CodeTierForbidden {
			t.Errorf("error = %+v, want TIER_FORBIDDEN", resp.Error)
		}
	})

	t.Run("professional tier allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/export/jobs", nil)
		req.Header.Set(apiKeyHeader, "pro-key-1")
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
	})
}

func TestRequireLive(t *testing.T) {
	tiers := testTiersConfig()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := TierResolver(&tiers)(RequireLive(next))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("free tier ws status = %d, want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?api_key=pro-key-1", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("professional ws status = %d, want 204", rec.Code)
	}
}

func TestKeyFingerprint(t *testing.T) {
	fp := keyFingerprint("pro-key-1")
	if fp == "" || fp == "pro-key-1" {
		t.Errorf("fingerprint %q must be non-empty and not the key", fp)
	}
	if fp != keyFingerprint("pro-key-1") {
		t.Error("fingerprint is not stable")
	}
	if len(fp) != 16 {
		t.Errorf("fingerprint length = %d, want 16 hex chars", len(fp))
	}
	if keyFingerprint("") != "" {
		t.Error("empty key should produce empty fingerprint")
	}
}

func TestTierFromConfigOverrides(t *testing.T) {
	tiers := testTiersConfig()
	tiers.Free = config.TierLimitsConfig{
		MaxChartPoints:  250,
		MaxRangeDays:    7,
		RateLimitPerMin: 30,
	}

	tier := tierFromConfig(&tiers, string(models.TierFree))
	if tier.MaxChartPoints != 250 || tier.MaxRangeDays != 7 || tier.RateLimitPerMin != 30 {
		t.Errorf("configured limits not applied: %+v", tier)
	}

	// Empty professional section keeps the built-in defaults.
	pro := tierFromConfig(&tiers, string(models.TierProfessional))
	builtin := models.ProfessionalTier()
	if pro != builtin {
		t.Errorf("professional tier = %+v, want built-in %+v", pro, builtin)
	}
}
