// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voltaic-labs/voltaic/internal/config"
	"github.com/voltaic-labs/voltaic/internal/middleware"
	"github.com/voltaic-labs/voltaic/internal/models"
)

// NewRouter assembles the chi router: global middleware, the health
// surface, the tier-gated data routes, the WebSocket stream, and the
// Prometheus scrape endpoint.
func NewRouter(cfg *config.Config, h *Handler) *chi.Mux {
	m := NewChiMiddleware(cfg)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(m.SecurityHeaders)
	r.Use(m.CORS())
	r.Use(middleware.Compression)
	if h.perf != nil {
		r.Use(h.perf.Middleware)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Health endpoints stay outside the tier budget so probes
		// never compete with data traffic.
		r.Group(func(r chi.Router) {
			r.Use(m.HealthRateLimit())
			r.Get("/health", h.GetHealth)
			r.Get("/health/ready", h.GetReadiness)
			r.Get("/health/detail", h.GetHealthDetail)
			r.Get("/health/performance", h.GetPerformance)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.PrometheusMetrics)
			r.Use(TierResolver(&cfg.Tiers))
			r.Use(m.TierRateLimit())

			r.Post("/readings", h.PostReadings)
			r.Get("/series", h.GetSeries)
			r.Get("/series/stats", h.GetSeriesStats)
			r.Get("/devices", h.ListDevices)
			r.Post("/devices", h.RegisterDevice)
			r.Get("/devices/{id}", h.GetDevice)

			r.Route("/export", func(r chi.Router) {
				r.Use(RequireExport)
				r.Get("/csv", h.ExportCSV)
				r.Post("/jobs", h.CreateExportJob)
				r.Get("/jobs", h.ListExportJobs)
				r.Get("/jobs/{id}", h.GetExportJob)
				r.Get("/jobs/{id}/download", h.DownloadExport)
			})
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(TierResolver(&cfg.Tiers))
		r.Use(RequireLive)
		r.Get("/ws", h.ServeWS)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusNotFound, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error:    &models.APIError{Code: CodeNotFound, Message: "route not found"},
		})
	})

	return r
}
