// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package decimate

import "math"

// MinMax downsamples series to at most target points by retaining the
// minimum and maximum of each bucket, in timestamp order, plus the first
// and last points. This preserves spikes and dropouts that LTTB's
// triangle heuristic can smooth over, which matters for electrical load
// profiles where a single demand spike is the interesting feature.
func MinMax(series Series, target int) Series {
	if target <= 0 || target >= len(series) {
		out := make(Series, len(series))
		copy(out, series)
		return out
	}
	if len(series) < 3 || target <= 2 {
		return pick(series, endpointIndices(len(series)))
	}
	return pick(series, minmaxIndices(series, target))
}

// minmaxIndices selects at most target indices: endpoints plus per-bucket
// extremes. Caller guarantees len(series) >= 3 and 3 <= target < len(series).
func minmaxIndices(series Series, target int) []int {
	n := len(series)

	// Two picks per bucket. A budget of one interior point (target == 3)
	// degenerates to the single most extreme interior point.
	interior := target - 2
	if interior < 2 {
		return []int{0, mostExtremeIndex(series, 1, n-1), n - 1}
	}

	buckets := interior / 2
	bucketSize := float64(n-2) / float64(buckets)

	idx := make([]int, 0, target)
	idx = append(idx, 0)

	for i := 0; i < buckets; i++ {
		start := 1 + int(math.Floor(float64(i)*bucketSize))
		end := 1 + int(math.Floor(float64(i+1)*bucketSize))
		if end > n-1 {
			end = n - 1
		}
		if start >= end {
			continue
		}

		minIdx, maxIdx := start, start
		for j := start; j < end; j++ {
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

		if minIdx == maxIdx {
			idx = append(idx, minIdx)
			continue
		}
		// Preserve timestamp order of the two extremes.
		if minIdx < maxIdx {
			idx = append(idx, minIdx, maxIdx)
		} else {
			idx = append(idx, maxIdx, minIdx)
		}
	}

	idx = append(idx, n-1)
	return idx
}

// mostExtremeIndex returns the index in [start, end) whose value deviates
// most from the straight line between the series endpoints.
func mostExtremeIndex(series Series, start, end int) int {
	n := len(series)
	x0, y0 := float64(series[0].TS), series[0].Value
	x1, y1 := float64(series[n-1].TS), series[n-1].Value

	best := start
	bestDev := -1.0
	for j := start; j < end; j++ {
		if !isFinite(series[j].Value) {
			continue
		}
		// Interpolated endpoint line value at this timestamp.
		var lineVal float64
		if x1 == x0 {
			lineVal = (y0 + y1) / 2
		} else {
			t := (float64(series[j].TS) - x0) / (x1 - x0)
			lineVal = y0 + t*(y1-y0)
		}
		dev := math.Abs(series[j].Value - lineVal)
		if dev > bestDev {
			bestDev = dev
			best = j
		}
	}
	return best
}
