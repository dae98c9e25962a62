// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package ingest

import (
	"math"
	"testing"
	"time"

	"github.com/voltaic-labs/voltaic/internal/models"
)

func validEvent() *ReadingEvent {
	return &ReadingEvent{
		EventID:  "7e6bdd7e-6a06-4a3e-8f4a-9de9c0a8fd01",
		DeviceID: "bldg-a-meter-1",
		Sensor:   "power_w",
		TS:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli(),
		Value:    2450.5,
		Quality:  models.QualityGood,
	}
}

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ReadingEvent)
		wantErr bool
	}{
		{"valid", func(e *ReadingEvent) {}, false},
		{"empty quality defaults ok", func(e *ReadingEvent) { e.Quality = "" }, false},
		{"estimated quality", func(e *ReadingEvent) { e.Quality = models.QualityEstimated }, false},
		{"missing event id", func(e *ReadingEvent) { e.EventID = "" }, true},
		{"missing device", func(e *ReadingEvent) { e.DeviceID = "" }, true},
		{"missing sensor", func(e *ReadingEvent) { e.Sensor = "" }, true},
		{"zero ts", func(e *ReadingEvent) { e.TS = 0 }, true},
		{"negative ts", func(e *ReadingEvent) { e.TS = -5 }, true},
		{"NaN value", func(e *ReadingEvent) { e.Value = math.NaN() }, true},
		{"Inf value", func(e *ReadingEvent) { e.Value = math.Inf(1) }, true},
		{"unknown quality", func(e *ReadingEvent) { e.Quality = "suspect" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			tt.mutate(e)
			err := e.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestNewReadingEventRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 30, 15, 0, time.UTC)
	r := &models.Reading{
		DeviceID: "d1",
		Sensor:   "temp_c",
		TS:       ts,
		Value:    21.5,
		Anomaly:  true,
		Quality:  models.QualityEstimated,
	}

	event := NewReadingEvent(r)
	if event.EventID == "" {
		t.Error("NewReadingEvent() assigned no event id")
	}
	if err := event.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	back := event.ToReading()
	if !back.TS.Equal(ts) {
		t.Errorf("TS = %v, want %v", back.TS, ts)
	}
	if back.DeviceID != "d1" || back.Sensor != "temp_c" || back.Value != 21.5 {
		t.Errorf("round trip mismatch: %+v", back)
	}
	if !back.Anomaly {
		t.Error("anomaly flag lost in round trip")
	}
	if back.Quality != models.QualityEstimated {
		t.Errorf("Quality = %q, want estimated", back.Quality)
	}
}

func TestDedupKey(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &models.Reading{DeviceID: "bldg-a-meter-1", Sensor: "power_w", TS: ts, Value: 2450.5}

	// Re-ingesting the same sample yields fresh event ids but the same
	// dedup key, so the stream's duplicate window drops the replay.
	first := NewReadingEvent(r)
	second := NewReadingEvent(r)
	if first.EventID == second.EventID {
		t.Error("event ids should differ per publish attempt")
	}
	if first.DedupKey() != second.DedupKey() {
		t.Errorf("DedupKey() = %q vs %q, want equal for identical samples", first.DedupKey(), second.DedupKey())
	}

	want := "bldg-a-meter-1:power_w:" + "1772366400000"
	if got := first.DedupKey(); got != want {
		t.Errorf("DedupKey() = %q, want %q", got, want)
	}

	// A different timestamp is a different sample.
	later := *r
	later.TS = ts.Add(time.Minute)
	if NewReadingEvent(&later).DedupKey() == first.DedupKey() {
		t.Error("DedupKey() identical for distinct timestamps")
	}
}

func TestToReadingDefaultsQuality(t *testing.T) {
	e := validEvent()
	e.Quality = ""

	r := e.ToReading()
	if r.Quality != models.QualityGood {
		t.Errorf("Quality = %q, want good default", r.Quality)
	}
}
