// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/voltaic-labs/voltaic/internal/cache"
	"github.com/voltaic-labs/voltaic/internal/config"
	"github.com/voltaic-labs/voltaic/internal/database"
	"github.com/voltaic-labs/voltaic/internal/export"
	"github.com/voltaic-labs/voltaic/internal/ingest"
	"github.com/voltaic-labs/voltaic/internal/middleware"
	"github.com/voltaic-labs/voltaic/internal/websocket"
)

// ReadingPublisher pushes accepted readings onto the telemetry stream.
// Satisfied by *ingest.Publisher; nil when the NATS pipeline is
// disabled, in which case intake writes straight to storage.
type ReadingPublisher interface {
	PublishEvent(ctx context.Context, event *ingest.ReadingEvent) error
}

// Dependencies carries the services the handler set operates on.
type Dependencies struct {
	DB        *database.DB
	Cache     *cache.Cache
	Hub       *websocket.Hub
	Publisher ReadingPublisher
	Gate      *ingest.RateGate
	Exports   *export.Runner
	Perf      *middleware.PerformanceMonitor
}

// Handler owns all HTTP endpoint implementations.
type Handler struct {
	cfg       *config.Config
	db        *database.DB
	cache     *cache.Cache
	hub       *websocket.Hub
	publisher ReadingPublisher
	gate      *ingest.RateGate
	exports   *export.Runner
	perf      *middleware.PerformanceMonitor
	upgrader  gorillaws.Upgrader
	started   time.Time
}

// NewHandler wires the handler set. DB is required; every other
// dependency degrades the corresponding endpoint when absent.
func NewHandler(cfg *config.Config, deps Dependencies) (*Handler, error) {
	if cfg == nil {
		return nil, errors.New("handler requires configuration")
	}
	if deps.DB == nil {
		return nil, errors.New("handler requires a database")
	}

	h := &Handler{
		cfg:       cfg,
		db:        deps.DB,
		cache:     deps.Cache,
		hub:       deps.Hub,
		publisher: deps.Publisher,
		gate:      deps.Gate,
		exports:   deps.Exports,
		perf:      deps.Perf,
		started:   time.Now().UTC(),
	}
	h.upgrader = gorillaws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkWSOrigin,
	}
	return h, nil
}

// checkWSOrigin mirrors the CORS origin list for WebSocket upgrades.
// Requests without an Origin header (non-browser clients) are allowed.
func (h *Handler) checkWSOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.cfg.API.CORSOrigins) == 0 {
		return true
	}
	for _, allowed := range h.cfg.API.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
