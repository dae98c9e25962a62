// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package ingest

import (
	"strings"
	"testing"
)

func TestSerializeDeserialize(t *testing.T) {
	event := validEvent()
	event.Anomaly = true

	data, err := SerializeEvent(event)
	if err != nil {
		t.Fatalf("SerializeEvent() error: %v", err)
	}

	got, err := DeserializeEvent(data)
	if err != nil {
		t.Fatalf("DeserializeEvent() error: %v", err)
	}

	if *got != *event {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, event)
	}
}

func TestSerializeRejectsInvalid(t *testing.T) {
	event := validEvent()
	event.DeviceID = ""

	if _, err := SerializeEvent(event); err == nil {
		t.Error("SerializeEvent() = nil error for invalid event")
	}
}

func TestDeserializeMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"garbage", []byte("not json")},
		{"truncated", []byte(`{"device_id": "d1", "sen`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DeserializeEvent(tt.data); err == nil {
				t.Error("DeserializeEvent() = nil error for malformed input")
			}
		})
	}
}

func TestSerializeOmitsEmptyOptionalFields(t *testing.T) {
	event := validEvent()
	event.Anomaly = false
	event.Quality = "good"

	data, err := SerializeEvent(event)
	if err != nil {
		t.Fatalf("SerializeEvent() error: %v", err)
	}
	if strings.Contains(string(data), "anomaly") {
		t.Errorf("false anomaly flag serialized: %s", data)
	}
}
