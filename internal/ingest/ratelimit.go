// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package ingest

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/voltaic-labs/voltaic/internal/metrics"
)

// RateGate enforces a per-device token bucket on the intake path. A
// misbehaving gateway flooding one device id cannot starve the stream
// for every other device.
type RateGate struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*deviceLimiter
}

type deviceLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateGate creates a gate allowing perSecond readings per device
// with the given burst.
func NewRateGate(perSecond float64, burst int) *RateGate {
	g := &RateGate{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*deviceLimiter),
	}

	go g.evictLoop()

	return g
}

// Allow reports whether a reading from the device may be accepted now.
func (g *RateGate) Allow(deviceID string) bool {
	g.mu.Lock()
	dl, ok := g.limiters[deviceID]
	if !ok {
		dl = &deviceLimiter{limiter: rate.NewLimiter(g.limit, g.burst)}
		g.limiters[deviceID] = dl
	}
	dl.lastSeen = time.Now()
	g.mu.Unlock()

	allowed := dl.limiter.Allow()
	if !allowed {
		metrics.IngestRateLimited.WithLabelValues(deviceID).Inc()
	}
	return allowed
}

// AllowN reports whether n readings from the device may be accepted
// now. Used for batch intake: the whole batch is admitted or rejected.
func (g *RateGate) AllowN(deviceID string, n int) bool {
	g.mu.Lock()
	dl, ok := g.limiters[deviceID]
	if !ok {
		dl = &deviceLimiter{limiter: rate.NewLimiter(g.limit, g.burst)}
		g.limiters[deviceID] = dl
	}
	dl.lastSeen = time.Now()
	g.mu.Unlock()

	allowed := dl.limiter.AllowN(time.Now(), n)
	if !allowed {
		metrics.IngestRateLimited.WithLabelValues(deviceID).Inc()
	}
	return allowed
}

// evictLoop drops limiters for devices idle longer than an hour so the
// map does not grow with every device id ever seen.
func (g *RateGate) evictLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-time.Hour)
		g.mu.Lock()
		for id, dl := range g.limiters {
			if dl.lastSeen.Before(cutoff) {
				delete(g.limiters, id)
			}
		}
		g.mu.Unlock()
	}
}
