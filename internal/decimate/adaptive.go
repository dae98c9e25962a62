// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package decimate

import (
	"math"
	"sort"
)

// Adaptive downsamples series to at most target points with an
// error-controlled budget: the interior is partitioned into coarse
// buckets, buckets whose value range falls below epsilon collapse to a
// single representative, and the freed budget is redistributed to
// high-variance buckets in proportion to their range.
//
// An epsilon <= 0 selects an automatic threshold of 1% of the series
// value range. A constant series therefore decimates to evenly spaced
// points.
func Adaptive(series Series, target int, epsilon float64) Series {
	if target <= 0 || target >= len(series) {
		out := make(Series, len(series))
		copy(out, series)
		return out
	}
	if len(series) < 3 || target <= 2 {
		return pick(series, endpointIndices(len(series)))
	}
	return pick(series, adaptiveIndices(series, target, epsilon))
}

// bucketSpan is one coarse partition of the series interior.
type bucketSpan struct {
	start, end int // index range [start, end)
	valueRange float64
	slots      int
}

// adaptiveIndices selects at most target indices using variance-weighted
// budgeting. Caller guarantees len(series) >= 3 and 3 <= target < len(series).
func adaptiveIndices(series Series, target int, epsilon float64) []int {
	n := len(series)
	interior := target - 2

	if epsilon <= 0 {
		epsilon = autoEpsilon(series)
	}

	// Coarse partition: half as many buckets as the interior budget, so
	// active buckets have headroom to claim extra slots.
	buckets := interior / 2
	if buckets < 1 {
		buckets = 1
	}
	spans := partition(series, buckets)

	distributeSlots(spans, interior, epsilon)

	idx := make([]int, 0, target)
	idx = append(idx, 0)
	prev := 0

	for i, sp := range spans {
		if sp.start >= sp.end || sp.slots <= 0 {
			continue
		}

		// Third triangle vertex: the mean of the following span, or the
		// last point for the final span.
		avgTS, avgVal := float64(series[n-1].TS), series[n-1].Value
		if i+1 < len(spans) {
			avgTS, avgVal = bucketMean(series, spans[i+1].start, spans[i+1].end, n-1)
		}

		selected := selectInSpan(series, sp, prev, avgTS, avgVal)
		idx = append(idx, selected...)
		if len(selected) > 0 {
			prev = selected[len(selected)-1]
		}
	}

	idx = append(idx, n-1)

	// Slot arithmetic keeps us under budget, but guard regardless.
	if len(idx) > target {
		idx = idx[:target-1]
		idx = append(idx, n-1)
	}
	return idx
}

// autoEpsilon returns 1% of the finite value range of the series.
func autoEpsilon(series Series) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range series {
		if !isFinite(p.Value) {
			continue
		}
		lo = math.Min(lo, p.Value)
		hi = math.Max(hi, p.Value)
	}
	if hi <= lo {
		return 0
	}
	return (hi - lo) * 0.01
}

// partition splits the interior [1, n-1) into count spans and computes
// each span's finite value range.
func partition(series Series, count int) []bucketSpan {
	n := len(series)
	size := float64(n-2) / float64(count)

	spans := make([]bucketSpan, 0, count)
	for i := 0; i < count; i++ {
		start := 1 + int(math.Floor(float64(i)*size))
		end := 1 + int(math.Floor(float64(i+1)*size))
		if end > n-1 {
			end = n - 1
		}
		if start >= end {
			continue
		}

		lo, hi := math.Inf(1), math.Inf(-1)
		for j := start; j < end; j++ {
			if !isFinite(series[j].Value) {
				continue
			}
			lo = math.Min(lo, series[j].Value)
			hi = math.Max(hi, series[j].Value)
		}
		r := 0.0
		if hi > lo {
			r = hi - lo
		}
		spans = append(spans, bucketSpan{start: start, end: end, valueRange: r})
	}
	return spans
}

// distributeSlots assigns the interior budget across spans: flat spans
// (range <= epsilon) get one slot, active spans share the remainder in
// proportion to their value range. Distribution is deterministic:
// largest fractional remainder first, span index as tiebreak.
func distributeSlots(spans []bucketSpan, budget int, epsilon float64) {
	var active []int
	var totalRange float64

	for i := range spans {
		spans[i].slots = 1
		if spans[i].valueRange > epsilon {
			active = append(active, i)
			totalRange += spans[i].valueRange
		}
	}

	extra := budget - len(spans)
	if extra <= 0 || len(active) == 0 || totalRange == 0 {
		return
	}

	type remainder struct {
		span int
		frac float64
	}
	remainders := make([]remainder, 0, len(active))
	assigned := 0

	for _, i := range active {
		share := float64(extra) * spans[i].valueRange / totalRange
		whole := int(math.Floor(share))
		// A span never needs more slots than it has points.
		capacity := spans[i].end - spans[i].start - spans[i].slots
		if whole > capacity {
			whole = capacity
		}
		spans[i].slots += whole
		assigned += whole
		remainders = append(remainders, remainder{span: i, frac: share - float64(whole)})
	}

	sort.Slice(remainders, func(a, b int) bool {
		if remainders[a].frac != remainders[b].frac {
			return remainders[a].frac > remainders[b].frac
		}
		return remainders[a].span < remainders[b].span
	})

	for _, r := range remainders {
		if assigned >= extra {
			break
		}
		capacity := spans[r.span].end - spans[r.span].start - spans[r.span].slots
		if capacity <= 0 {
			continue
		}
		spans[r.span].slots++
		assigned++
	}
}

// selectInSpan picks sp.slots indices inside the span, sorted ascending.
// One slot uses the LTTB triangle pick; two or more keep the extremes and
// fill the rest with evenly spaced points.
func selectInSpan(series Series, sp bucketSpan, prev int, avgTS, avgVal float64) []int {
	if sp.slots == 1 {
		return []int{largestTrianglePick(series, sp.start, sp.end, prev, avgTS, avgVal)}
	}

	chosen := make(map[int]bool, sp.slots)

	minIdx, maxIdx := sp.start, sp.start
	for j := sp.start; j < sp.end; j++ {
		if !isFinite(series[j].Value) {
			continue
		}
		if series[j].Value < series[minIdx].Value || !isFinite(series[minIdx].Value) {
			minIdx = j
		}
		if series[j].Value > series[maxIdx].Value || !isFinite(series[maxIdx].Value) {
			maxIdx = j
		}
	}
	chosen[minIdx] = true
	chosen[maxIdx] = true

	// Fill remaining slots with evenly spaced points for temporal coverage.
	span := sp.end - sp.start
	for k := 0; len(chosen) < sp.slots && k < span; k++ {
		j := sp.start + k*span/sp.slots
		chosen[j] = true
	}

	out := make([]int, 0, len(chosen))
	for j := range chosen {
		out = append(out, j)
	}
	sort.Ints(out)
	if len(out) > sp.slots {
		out = out[:sp.slots]
	}
	return out
}

// largestTrianglePick returns the index in [start, end) forming the
// largest triangle with the previously selected point and the (avgTS,
// avgVal) vertex. Mirrors the LTTB selection step.
func largestTrianglePick(series Series, start, end, prev int, avgTS, avgVal float64) int {
	pTS := float64(series[prev].TS)
	pVal := series[prev].Value

	best := start
	bestArea := -1.0
	for j := start; j < end; j++ {
		if !isFinite(series[j].Value) {
			continue
		}
		area := math.Abs((pTS-avgTS)*(series[j].Value-pVal) -
			(pTS-float64(series[j].TS))*(avgVal-pVal))
		if area > bestArea {
			bestArea = area
			best = j
		}
	}
	return best
}
