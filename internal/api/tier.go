// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/voltaic-labs/voltaic/internal/config"
	"github.com/voltaic-labs/voltaic/internal/metrics"
	"github.com/voltaic-labs/voltaic/internal/models"
)

// apiKeyHeader carries the subscription key on data routes.
const apiKeyHeader = "X-API-Key"

type tierContextKey struct{}

// TierResolver resolves the request's API key to a subscription tier
// and stores it in the request context. Missing or unknown keys fall
// back to the configured default tier (public dashboard mode) unless
// require_key is set, in which case they are rejected with 401.
func TierResolver(tiers *config.TiersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := apiKeyFromRequest(r)
			if tiers.RequireKey && !tiers.KnownKey(key) {
				respondError(w, r, http.StatusUnauthorized, CodeUnauthorized,
					"a valid API key is required", nil)
				return
			}
			tier := tierFromConfig(tiers, tiers.TierForKey(key))
			ctx := context.WithValue(r.Context(), tierContextKey{}, tier)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TierFromContext returns the resolved tier, defaulting to free when
// the resolver did not run.
func TierFromContext(ctx context.Context) models.Tier {
	if tier, ok := ctx.Value(tierContextKey{}).(models.Tier); ok {
		return tier
	}
	return models.FreeTier()
}

// RequireExport gates CSV export routes on the tier's export
// capability.
func RequireExport(next http.Handler) http.Handler {
	return requireCapability(next, "export", func(t models.Tier) bool { return t.ExportEnabled })
}

// RequireLive gates the WebSocket stream on the tier's live capability.
func RequireLive(next http.Handler) http.Handler {
	return requireCapability(next, "live", func(t models.Tier) bool { return t.LiveEnabled })
}

func requireCapability(next http.Handler, capability string, allowed func(models.Tier) bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tier := TierFromContext(r.Context())
		if !allowed(tier) {
			metrics.APITierRejections.WithLabelValues(string(tier.Name), capability).Inc()
			respondError(w, r, http.StatusForbidden, CodeTierForbidden,
				"subscription tier does not include "+capability, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// apiKeyFromRequest reads the key from the header, falling back to the
// api_key query parameter for browser WebSocket clients that cannot
// set headers.
func apiKeyFromRequest(r *http.Request) string {
	if key := r.Header.Get(apiKeyHeader); key != "" {
		return key
	}
	return r.URL.Query().Get("api_key")
}

// keyFingerprint returns a short stable identifier for an API key so
// logs and job records never carry the key itself.
func keyFingerprint(key string) string {
	if key == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// tierFromConfig maps configured limits onto a tier, keeping the
// built-in defaults when the config section is empty.
func tierFromConfig(tiers *config.TiersConfig, name string) models.Tier {
	base := models.TierByName(models.TierName(name))

	limits := tiers.Limits(name)
	if limits == (config.TierLimitsConfig{}) {
		return base
	}

	return models.Tier{
		Name:            base.Name,
		MaxChartPoints:  limits.MaxChartPoints,
		MaxRangeDays:    limits.MaxRangeDays,
		RateLimitPerMin: limits.RateLimitPerMin,
		ExportEnabled:   limits.ExportEnabled,
		LiveEnabled:     limits.LiveEnabled,
	}
}
