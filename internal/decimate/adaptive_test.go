// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package decimate

import (
	"math"
	"testing"
)

func TestAdaptive(t *testing.T) {
	tests := []struct {
		name    string
		series  Series
		target  int
		epsilon float64
	}{
		{"empty series", Series{}, 100, 0},
		{"single point", genSeries(1), 100, 0},
		{"target above length", genSeries(50), 100, 0},
		{"target two", genSeries(50), 2, 0},
		{"basic reduction auto epsilon", genSeries(10_000), 500, 0},
		{"explicit epsilon", genSeries(10_000), 500, 5.0},
		{"tiny target", genSeries(1000), 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Adaptive(tt.series, tt.target, tt.epsilon)

			wantMax := tt.target
			if tt.target <= 0 || tt.target >= len(tt.series) {
				wantMax = len(tt.series)
			}
			if len(out) > wantMax {
				t.Fatalf("len(out) = %d, want <= %d", len(out), wantMax)
			}
			assertSubsequence(t, tt.series, out)
			assertEndpoints(t, tt.series, out)
			for i := 1; i < len(out); i++ {
				if out[i].TS < out[i-1].TS {
					t.Fatalf("output not ordered at %d", i)
				}
			}
		})
	}
}

func TestAdaptiveConstantSeriesEvenSpacing(t *testing.T) {
	s := genSeries(10_000)
	for i := range s {
		s[i].Value = 17.5
	}

	out := Adaptive(s, 100, 0)
	if len(out) < 3 {
		t.Fatalf("len(out) = %d, want >= 3", len(out))
	}
	if len(out) > 100 {
		t.Fatalf("len(out) = %d, want <= 100", len(out))
	}

	// Every bucket is flat, so representatives should land roughly one
	// per bucket: gaps must stay within 3x the ideal spacing.
	ideal := float64(s[len(s)-1].TS-s[0].TS) / float64(len(out)-1)
	for i := 1; i < len(out); i++ {
		gap := float64(out[i].TS - out[i-1].TS)
		if gap > 3*ideal {
			t.Errorf("gap %d->%d is %v, want <= %v", i-1, i, gap, 3*ideal)
		}
	}
}

func TestAdaptiveSpendsBudgetOnVariance(t *testing.T) {
	// First half flat, second half a large oscillation. The active half
	// should receive the clear majority of the interior points.
	n := 10_000
	s := make(Series, n)
	for i := 0; i < n; i++ {
		v := 100.0
		if i >= n/2 {
			v = 100 + 500*math.Sin(float64(i)/10)
		}
		s[i] = Point{TS: int64(i) * 1000, Value: v}
	}

	out := Adaptive(s, 200, 0)

	mid := s[n/2].TS
	var flat, active int
	for _, p := range out[1 : len(out)-1] {
		if p.TS < mid {
			flat++
		} else {
			active++
		}
	}
	if active <= flat*2 {
		t.Errorf("active half got %d points vs %d flat, want a strong majority", active, flat)
	}
}

func TestAdaptiveDeterministic(t *testing.T) {
	s := genSeries(5000)
	a := Adaptive(s, 250, 0)
	b := Adaptive(s, 250, 0)

	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("point %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}
