// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

// Package decimate reduces large ordered time series to a bounded number
// of display points while preserving visual shape.
//
// # Algorithms
//
//   - LTTB: Largest Triangle Three Buckets, the default for line charts.
//   - MinMax: per-bucket extremes, best for spiky electrical load data.
//   - Adaptive: error-controlled sampling that collapses flat regions and
//     spends the freed budget on high-variance regions.
//
// All transforms are pure and deterministic: they never mutate the input,
// never synthesize values, and produce a timestamp-ordered subsequence of
// the input. First and last points are always retained.
//
// # Thread Safety
//
// The package holds no state; every function is safe for concurrent use.
package decimate

import (
	"math"
	"sort"
	"time"
)

// Point is a single timestamped sample.
type Point struct {
	// TS is the sample timestamp in unix milliseconds.
	TS int64

	// Value is the sample value.
	Value float64

	// Anomaly marks samples flagged by upstream anomaly detection.
	Anomaly bool
}

// Series is a sequence of points ordered by TS ascending.
// Duplicate timestamps are allowed and handled stably (by input order).
type Series []Point

// Method selects a decimation algorithm.
type Method string

const (
	// MethodLTTB selects Largest Triangle Three Buckets.
	MethodLTTB Method = "lttb"

	// MethodMinMax selects per-bucket min/max retention.
	MethodMinMax Method = "minmax"

	// MethodAdaptive selects variance-weighted adaptive sampling.
	MethodAdaptive Method = "adaptive"
)

// Valid reports whether m names a known algorithm.
func (m Method) Valid() bool {
	switch m {
	case MethodLTTB, MethodMinMax, MethodAdaptive:
		return true
	}
	return false
}

// Options configures a Downsample call.
type Options struct {
	// Target is the maximum number of output points. Values <= 0 or
	// >= len(series) return the input unchanged.
	Target int

	// Method selects the algorithm. Empty defaults to LTTB.
	Method Method

	// Epsilon is the flatness threshold for MethodAdaptive. Zero means
	// auto: 1% of the series value range per bucket.
	Epsilon float64

	// PreserveAnomalies re-injects every anomaly-flagged input point into
	// the output. The output may then exceed Target by at most the number
	// of anomalies in the range.
	PreserveAnomalies bool
}

// Stats reports what a Downsample pass did.
type Stats struct {
	InputPoints   int
	OutputPoints  int
	AnomaliesKept int
	NonFinite     int
	Elapsed       time.Duration
}

// Downsample reduces series to at most opts.Target points using the
// selected method. Non-finite values (NaN, ±Inf) are dropped before
// selection and counted in Stats.NonFinite.
func Downsample(series Series, opts Options) (Series, Stats) {
	start := time.Now()

	stats := Stats{InputPoints: len(series)}

	clean, dropped := sanitize(series)
	stats.NonFinite = dropped

	method := opts.Method
	if method == "" {
		method = MethodLTTB
	}

	var picked []int
	switch {
	case opts.Target <= 0 || opts.Target >= len(clean):
		picked = allIndices(len(clean))
	case len(clean) < 3 || opts.Target <= 2:
		picked = endpointIndices(len(clean))
	default:
		switch method {
		case MethodMinMax:
			picked = minmaxIndices(clean, opts.Target)
		case MethodAdaptive:
			picked = adaptiveIndices(clean, opts.Target, opts.Epsilon)
		default:
			picked = lttbIndices(clean, opts.Target)
		}
	}

	if opts.PreserveAnomalies {
		var kept int
		picked, kept = mergeAnomalies(clean, picked)
		stats.AnomaliesKept = kept
	}

	out := make(Series, len(picked))
	for i, idx := range picked {
		out[i] = clean[idx]
	}

	stats.OutputPoints = len(out)
	stats.Elapsed = time.Since(start)
	return out, stats
}

// sanitize returns a copy of series with non-finite values removed,
// along with the number of dropped points. When nothing is dropped the
// copy shares no backing array with the input, preserving immutability.
func sanitize(series Series) (Series, int) {
	clean := make(Series, 0, len(series))
	dropped := 0
	for _, p := range series {
		if isFinite(p.Value) {
			clean = append(clean, p)
		} else {
			dropped++
		}
	}
	return clean, dropped
}

// mergeAnomalies unions anomaly-flagged indices into the picked set,
// keeping the result sorted and deduplicated. Returns the merged indices
// and the number of anomalies added beyond the original selection.
func mergeAnomalies(series Series, picked []int) ([]int, int) {
	selected := make(map[int]bool, len(picked))
	for _, idx := range picked {
		selected[idx] = true
	}

	added := 0
	for i, p := range series {
		if p.Anomaly && !selected[i] {
			picked = append(picked, i)
			selected[i] = true
			added++
		}
	}

	if added > 0 {
		sort.Ints(picked)
	}
	return picked, added
}

// allIndices returns [0, 1, ..., n-1].
func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// endpointIndices returns the first and last index for n >= 2, all
// indices for n < 2.
func endpointIndices(n int) []int {
	if n < 2 {
		return allIndices(n)
	}
	return []int{0, n - 1}
}

// isFinite reports whether v is neither NaN nor infinite.
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
