// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package database

import (
	"context"
	"errors"
	"testing"

	"github.com/voltaic-labs/voltaic/internal/models"
)

func TestUpsertAndGetDevice(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	d := &models.Device{
		ID:       "bldg-a-meter-1",
		Name:     "Main feed meter",
		Building: "A",
		Floor:    "1",
		Zone:     "electrical-room",
		Enabled:  true,
	}
	if err := db.UpsertDevice(ctx, d); err != nil {
		t.Fatalf("UpsertDevice() error: %v", err)
	}

	got, err := db.GetDevice(ctx, "bldg-a-meter-1")
	if err != nil {
		t.Fatalf("GetDevice() error: %v", err)
	}
	if got.Name != "Main feed meter" || got.Building != "A" || !got.Enabled {
		t.Errorf("GetDevice() = %+v, metadata mismatch", got)
	}
	if got.LastSeenAt != nil {
		t.Error("LastSeenAt set before any ingest")
	}

	// Upsert updates metadata in place.
	d.Name = "Renamed meter"
	d.Enabled = false
	if err := db.UpsertDevice(ctx, d); err != nil {
		t.Fatalf("second UpsertDevice() error: %v", err)
	}
	got, _ = db.GetDevice(ctx, "bldg-a-meter-1")
	if got.Name != "Renamed meter" || got.Enabled {
		t.Errorf("upsert did not update: %+v", got)
	}
}

func TestGetDeviceNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetDevice(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDevice(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestEnsureDevicePreservesMetadata(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.UpsertDevice(ctx, &models.Device{ID: "d1", Name: "named", Enabled: true}); err != nil {
		t.Fatalf("UpsertDevice() error: %v", err)
	}
	if err := db.EnsureDevice(ctx, "d1"); err != nil {
		t.Fatalf("EnsureDevice() error: %v", err)
	}

	got, err := db.GetDevice(ctx, "d1")
	if err != nil {
		t.Fatalf("GetDevice() error: %v", err)
	}
	if got.Name != "named" {
		t.Errorf("EnsureDevice overwrote name: %q", got.Name)
	}

	// Unknown id gets auto-registered.
	if err := db.EnsureDevice(ctx, "d2"); err != nil {
		t.Fatalf("EnsureDevice(new) error: %v", err)
	}
	if _, err := db.GetDevice(ctx, "d2"); err != nil {
		t.Errorf("GetDevice(d2) after EnsureDevice error: %v", err)
	}
}

func TestTouchDeviceLastSeen(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.EnsureDevice(ctx, "d1"); err != nil {
		t.Fatalf("EnsureDevice() error: %v", err)
	}
	if err := db.TouchDeviceLastSeen(ctx, "d1"); err != nil {
		t.Fatalf("TouchDeviceLastSeen() error: %v", err)
	}

	got, err := db.GetDevice(ctx, "d1")
	if err != nil {
		t.Fatalf("GetDevice() error: %v", err)
	}
	if got.LastSeenAt == nil {
		t.Error("LastSeenAt still nil after touch")
	}
}

func TestListDevices(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		if err := db.EnsureDevice(ctx, id); err != nil {
			t.Fatalf("EnsureDevice(%s) error: %v", id, err)
		}
	}

	devices, err := db.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("len(devices) = %d, want 3", len(devices))
	}
	// Ordered by id.
	if devices[0].ID != "a" || devices[2].ID != "c" {
		t.Errorf("devices not ordered by id: %v, %v, %v", devices[0].ID, devices[1].ID, devices[2].ID)
	}
}
