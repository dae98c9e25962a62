// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/voltaic-labs/voltaic/internal/config"
	"github.com/voltaic-labs/voltaic/internal/metrics"
	"github.com/voltaic-labs/voltaic/internal/models"
)

// healthRateLimit caps unauthenticated health probes per IP.
const healthRateLimit = 120

// ChiMiddleware builds the router-level middleware from configuration.
type ChiMiddleware struct {
	cfg         *config.Config
	corsHandler func(http.Handler) http.Handler
}

// NewChiMiddleware creates the middleware factory.
func NewChiMiddleware(cfg *config.Config) *ChiMiddleware {
	origins := cfg.API.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &ChiMiddleware{
		cfg: cfg,
		corsHandler: cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", apiKeyHeader},
			ExposedHeaders:   []string{"ETag", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           86400,
		}),
	}
}

// CORS returns the configured CORS handler.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.corsHandler
}

// SecurityHeaders sets the baseline response headers on every route.
// HSTS is only sent in production, where TLS terminates upstream.
func (m *ChiMiddleware) SecurityHeaders(next http.Handler) http.Handler {
	production := m.cfg.IsProduction()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if production {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// HealthRateLimit returns a permissive per-IP limiter for the health
// surface.
func (m *ChiMiddleware) HealthRateLimit() func(http.Handler) http.Handler {
	return httprate.Limit(healthRateLimit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimitExceeded),
	)
}

// TierRateLimit enforces the per-tier request budget on data routes.
// Requests are keyed by API key fingerprint, falling back to client IP
// for anonymous callers. Must run after TierResolver.
func (m *ChiMiddleware) TierRateLimit() func(http.Handler) http.Handler {
	freeLimit := tierFromConfig(&m.cfg.Tiers, string(models.TierFree)).RateLimitPerMin
	proLimit := tierFromConfig(&m.cfg.Tiers, string(models.TierProfessional)).RateLimitPerMin

	free := httprate.Limit(freeLimit, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(rateLimitExceeded),
	)
	pro := httprate.Limit(proLimit, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(rateLimitExceeded),
	)

	return func(next http.Handler) http.Handler {
		freeNext := free(next)
		proNext := pro(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if TierFromContext(r.Context()).Name == models.TierProfessional {
				proNext.ServeHTTP(w, r)
				return
			}
			freeNext.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) (string, error) {
	if key := apiKeyFromRequest(r); key != "" {
		return keyFingerprint(key), nil
	}
	return httprate.KeyByIP(r)
}

func rateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		endpoint = rctx.RoutePattern()
	}
	metrics.APIRateLimitHits.WithLabelValues(endpoint).Inc()
	respondError(w, r, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded", nil)
}
