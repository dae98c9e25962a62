// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package decimate

import (
	"math"
	"testing"
)

// genSeries builds n points of a noisy-looking but deterministic load
// curve sampled once per minute.
func genSeries(n int) Series {
	s := make(Series, n)
	for i := 0; i < n; i++ {
		s[i] = Point{
			TS:    int64(i) * 60_000,
			Value: 100 + 40*math.Sin(float64(i)/25) + 10*math.Sin(float64(i)/3),
		}
	}
	return s
}

// assertSubsequence verifies out is a timestamp-ordered subsequence of in.
func assertSubsequence(t *testing.T, in, out Series) {
	t.Helper()
	j := 0
	for _, p := range out {
		found := false
		for ; j < len(in); j++ {
			if in[j].TS == p.TS && in[j].Value == p.Value {
				found = true
				j++
				break
			}
		}
		if !found {
			t.Fatalf("output point (%d, %v) is not a subsequence match of input", p.TS, p.Value)
		}
	}
}

func assertEndpoints(t *testing.T, in, out Series) {
	t.Helper()
	if len(in) == 0 || len(out) == 0 {
		return
	}
	if out[0] != in[0] {
		t.Errorf("first point not retained: got %v, want %v", out[0], in[0])
	}
	if out[len(out)-1] != in[len(in)-1] {
		t.Errorf("last point not retained: got %v, want %v", out[len(out)-1], in[len(in)-1])
	}
}

func TestLTTB(t *testing.T) {
	tests := []struct {
		name    string
		series  Series
		target  int
		wantLen int
	}{
		{"empty series", Series{}, 100, 0},
		{"single point", genSeries(1), 100, 1},
		{"two points", genSeries(2), 100, 2},
		{"target zero returns all", genSeries(50), 0, 50},
		{"negative target returns all", genSeries(50), -5, 50},
		{"target above length returns all", genSeries(50), 100, 50},
		{"target equals length returns all", genSeries(50), 50, 50},
		{"target two returns endpoints", genSeries(50), 2, 2},
		{"basic reduction", genSeries(10_000), 500, 500},
		{"small reduction", genSeries(10), 5, 5},
		{"target three", genSeries(100), 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := LTTB(tt.series, tt.target)
			if len(out) != tt.wantLen {
				t.Fatalf("len(out) = %d, want %d", len(out), tt.wantLen)
			}
			assertSubsequence(t, tt.series, out)
			assertEndpoints(t, tt.series, out)
		})
	}
}

func TestLTTBDeterministic(t *testing.T) {
	s := genSeries(5000)
	a := LTTB(s, 300)
	b := LTTB(s, 300)

	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("point %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestLTTBDoesNotMutateInput(t *testing.T) {
	s := genSeries(1000)
	orig := make(Series, len(s))
	copy(orig, s)

	_ = LTTB(s, 100)

	for i := range s {
		if s[i] != orig[i] {
			t.Fatalf("input mutated at %d: %v vs %v", i, s[i], orig[i])
		}
	}
}

func TestLTTBPreservesPeak(t *testing.T) {
	// Flat series with a single large spike: the spike forms the largest
	// triangle in its bucket and must survive decimation.
	s := genSeries(1000)
	for i := range s {
		s[i].Value = 10
	}
	s[487].Value = 5000

	out := LTTB(s, 50)

	found := false
	for _, p := range out {
		if p.Value == 5000 {
			found = true
			break
		}
	}
	if !found {
		t.Error("spike value not retained by LTTB")
	}
}

func TestLTTBOrdering(t *testing.T) {
	out := LTTB(genSeries(10_000), 777)
	for i := 1; i < len(out); i++ {
		if out[i].TS < out[i-1].TS {
			t.Fatalf("output not ordered at %d: %d < %d", i, out[i].TS, out[i-1].TS)
		}
	}
}
