// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"disabled", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInitJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf, Timestamp: true})
	defer Init(DefaultConfig())

	Info().Str("device", "bldg-a-7").Msg("reading accepted")

	out := buf.String()
	if !strings.Contains(out, `"device":"bldg-a-7"`) {
		t.Errorf("output missing structured field: %s", out)
	}
	if !strings.Contains(out, `"message":"reading accepted"`) {
		t.Errorf("output missing message field: %s", out)
	}
	if !strings.Contains(out, `"level":"info"`) {
		t.Errorf("output missing level field: %s", out)
	}
}

func TestInitDefaultsApplied(t *testing.T) {
	var buf bytes.Buffer
	// Empty level and format should fall back to info/json.
	Init(Config{Output: &buf, Timestamp: true})
	defer Init(DefaultConfig())

	Debug().Msg("should be suppressed")
	Info().Msg("should appear")

	out := buf.String()
	if strings.Contains(out, "should be suppressed") {
		t.Error("debug message emitted at default info level")
	}
	if !strings.Contains(out, "should appear") {
		t.Error("info message not emitted at default level")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf, Timestamp: false})
	defer Init(DefaultConfig())

	ingest := WithComponent("ingest")
	ingest.Info().Msg("flush complete")

	if !strings.Contains(buf.String(), `"component":"ingest"`) {
		t.Errorf("component field missing: %s", buf.String())
	}
}

func TestSetLevelString(t *testing.T) {
	SetLevelString("error")
	defer SetLevelString("info")

	if GetLevel() != zerolog.ErrorLevel {
		t.Errorf("GetLevel() = %v, want error", GetLevel())
	}
}

func TestNewTestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTestLogger(&buf)
	logger.Info().Msg("captured")

	if !strings.Contains(buf.String(), "captured") {
		t.Errorf("test logger did not write to buffer: %s", buf.String())
	}
}
