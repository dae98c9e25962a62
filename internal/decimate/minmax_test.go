// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package decimate

import "testing"

func TestMinMax(t *testing.T) {
	tests := []struct {
		name   string
		series Series
		target int
		maxLen int
		minLen int
	}{
		{"empty series", Series{}, 100, 0, 0},
		{"single point", genSeries(1), 100, 1, 1},
		{"target above length returns all", genSeries(50), 100, 50, 50},
		{"target two returns endpoints", genSeries(50), 2, 2, 2},
		{"target three", genSeries(100), 3, 3, 3},
		{"basic reduction", genSeries(10_000), 500, 500, 100},
		{"odd target", genSeries(1000), 99, 99, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := MinMax(tt.series, tt.target)
			if len(out) > tt.maxLen {
				t.Fatalf("len(out) = %d, want <= %d", len(out), tt.maxLen)
			}
			if len(out) < tt.minLen {
				t.Fatalf("len(out) = %d, want >= %d", len(out), tt.minLen)
			}
			assertSubsequence(t, tt.series, out)
			assertEndpoints(t, tt.series, out)
		})
	}
}

func TestMinMaxPreservesExtremes(t *testing.T) {
	// A demand spike and a dropout in an otherwise flat profile must both
	// survive, whatever buckets they land in.
	s := genSeries(2000)
	for i := range s {
		s[i].Value = 250
	}
	s[313].Value = 9000 // spike
	s[1601].Value = 0   // dropout

	out := MinMax(s, 40)

	var gotSpike, gotDropout bool
	for _, p := range out {
		if p.Value == 9000 {
			gotSpike = true
		}
		if p.Value == 0 {
			gotDropout = true
		}
	}
	if !gotSpike {
		t.Error("spike not retained")
	}
	if !gotDropout {
		t.Error("dropout not retained")
	}
}

func TestMinMaxExtremeOrderWithinBucket(t *testing.T) {
	// Max before min in the same bucket: output must stay timestamp-ordered.
	s := Series{
		{TS: 0, Value: 5},
		{TS: 1, Value: 100},
		{TS: 2, Value: -100},
		{TS: 3, Value: 5},
		{TS: 4, Value: 5},
		{TS: 5, Value: 5},
	}

	out := MinMax(s, 4)
	for i := 1; i < len(out); i++ {
		if out[i].TS < out[i-1].TS {
			t.Fatalf("output not ordered at %d", i)
		}
	}
}

func TestMinMaxTargetThreeKeepsMostExtreme(t *testing.T) {
	s := genSeries(500)
	for i := range s {
		s[i].Value = 10
	}
	s[250].Value = 777

	out := MinMax(s, 3)
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	if out[1].Value != 777 {
		t.Errorf("interior pick = %v, want the extreme 777", out[1].Value)
	}
}

func TestMinMaxConstantSeries(t *testing.T) {
	s := genSeries(1000)
	for i := range s {
		s[i].Value = 42
	}

	out := MinMax(s, 100)
	if len(out) > 100 {
		t.Fatalf("len(out) = %d, want <= 100", len(out))
	}
	for _, p := range out {
		if p.Value != 42 {
			t.Fatalf("unexpected value %v in constant series output", p.Value)
		}
	}
}
