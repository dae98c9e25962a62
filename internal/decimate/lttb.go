// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package decimate

import "math"

// LTTB downsamples series to target points using Largest Triangle Three
// Buckets (Steinarsson 2013). The first and last points are always
// retained. For target >= len(series) or target <= 0 a copy of the input
// is returned; for target <= 2 only the endpoints are returned.
//
// Callers with possibly non-finite values should go through Downsample,
// which strips them first; LTTB itself treats non-finite candidates as
// never the best pick.
func LTTB(series Series, target int) Series {
	if target <= 0 || target >= len(series) {
		out := make(Series, len(series))
		copy(out, series)
		return out
	}
	if len(series) < 3 || target <= 2 {
		return pick(series, endpointIndices(len(series)))
	}
	return pick(series, lttbIndices(series, target))
}

// lttbIndices selects target indices from series using LTTB.
// Caller guarantees len(series) >= 3 and 3 <= target < len(series).
func lttbIndices(series Series, target int) []int {
	n := len(series)
	idx := make([]int, 0, target)
	idx = append(idx, 0)

	// Interior points are partitioned into target-2 equal buckets.
	bucketSize := float64(n-2) / float64(target-2)
	prev := 0

	for i := 0; i < target-2; i++ {
		start := 1 + int(math.Floor(float64(i)*bucketSize))
		end := 1 + int(math.Floor(float64(i+1)*bucketSize))
		if end > n-1 {
			end = n - 1
		}

		// Average of the next bucket forms the third triangle vertex.
		// The final bucket pairs with the last point.
		nextStart := end
		nextEnd := 1 + int(math.Floor(float64(i+2)*bucketSize))
		if nextEnd > n-1 {
			nextEnd = n - 1
		}
		avgTS, avgVal := bucketMean(series, nextStart, nextEnd, n-1)

		// Pick the bucket point forming the largest triangle with the
		// previously selected point and the next-bucket average.
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

		idx = append(idx, best)
		prev = best
	}

	idx = append(idx, n-1)
	return idx
}

// bucketMean returns the mean timestamp and value over series[start:end].
// An empty or fully non-finite bucket falls back to the point at fallback.
func bucketMean(series Series, start, end, fallback int) (float64, float64) {
	var sumTS, sumVal float64
	count := 0
	for j := start; j < end; j++ {
		if !isFinite(series[j].Value) {
			continue
		}
		sumTS += float64(series[j].TS)
		sumVal += series[j].Value
		count++
	}
	if count == 0 {
		return float64(series[fallback].TS), series[fallback].Value
	}
	return sumTS / float64(count), sumVal / float64(count)
}

// pick materializes the points at the given indices.
func pick(series Series, indices []int) Series {
	out := make(Series, len(indices))
	for i, idx := range indices {
		out[i] = series[idx]
	}
	return out
}
