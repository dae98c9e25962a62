// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package export

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/voltaic-labs/voltaic/internal/models"
)

func openTestStore(t *testing.T) *JobStore {
	t.Helper()
	store, err := OpenInMemoryStore()
	if err != nil {
		t.Fatalf("OpenInMemoryStore() error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testJob(state string, createdAt time.Time) *models.ExportJob {
	return &models.ExportJob{
		ID: uuid.New(),
		Spec: models.ExportSpec{
			DeviceID: "bldg-a-meter-1",
			Sensor:   "power_w",
			From:     createdAt.Add(-24 * time.Hour),
			To:       createdAt,
		},
		State:     state,
		CreatedAt: createdAt,
	}
}

func TestStorePutGet(t *testing.T) {
	store := openTestStore(t)

	job := testJob(models.ExportPending, time.Now().UTC())
	if err := store.Put(job); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, err := store.Get(job.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.ID != job.ID || got.State != models.ExportPending {
		t.Errorf("Get() = %+v, want %+v", got, job)
	}
	if got.Spec.DeviceID != "bldg-a-meter-1" {
		t.Errorf("Spec.DeviceID = %q", got.Spec.DeviceID)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get(uuid.New())
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Get() error = %v, want ErrJobNotFound", err)
	}
}

func TestStorePutOverwrites(t *testing.T) {
	store := openTestStore(t)

	job := testJob(models.ExportPending, time.Now().UTC())
	if err := store.Put(job); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	job.State = models.ExportDone
	job.Rows = 1200
	if err := store.Put(job); err != nil {
		t.Fatalf("Put() update error: %v", err)
	}

	got, err := store.Get(job.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.State != models.ExportDone || got.Rows != 1200 {
		t.Errorf("updated job = %+v", got)
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := store.Put(testJob(models.ExportPending, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Put() error: %v", err)
		}
	}

	jobs, err := store.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("List() returned %d jobs, want 3", len(jobs))
	}
	for i := 1; i < len(jobs); i++ {
		if jobs[i].CreatedAt.After(jobs[i-1].CreatedAt) {
			t.Errorf("jobs not sorted newest first: %v after %v", jobs[i].CreatedAt, jobs[i-1].CreatedAt)
		}
	}
}

func TestStoreDelete(t *testing.T) {
	store := openTestStore(t)

	job := testJob(models.ExportDone, time.Now().UTC())
	if err := store.Put(job); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if err := store.Delete(job.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := store.Get(job.ID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Get() after delete = %v, want ErrJobNotFound", err)
	}

	// Deleting again is a no-op.
	if err := store.Delete(job.ID); err != nil {
		t.Errorf("Delete() of missing job = %v, want nil", err)
	}
}

func TestStoreExpiredBefore(t *testing.T) {
	store := openTestStore(t)

	now := time.Now().UTC()
	old := testJob(models.ExportDone, now.Add(-48*time.Hour))
	oldPending := testJob(models.ExportPending, now.Add(-48*time.Hour))
	fresh := testJob(models.ExportDone, now)

	for _, job := range []*models.ExportJob{old, oldPending, fresh} {
		if err := store.Put(job); err != nil {
			t.Fatalf("Put() error: %v", err)
		}
	}

	expired, err := store.ExpiredBefore(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("ExpiredBefore() error: %v", err)
	}
	if len(expired) != 2 {
		t.Fatalf("ExpiredBefore() = %v, want the two old jobs", expired)
	}
	got := map[uuid.UUID]bool{expired[0]: true, expired[1]: true}
	if !got[old.ID] || !got[oldPending.ID] {
		t.Errorf("ExpiredBefore() = %v, want %v and stale pending %v", expired, old.ID, oldPending.ID)
	}
	for _, id := range expired {
		if id == fresh.ID {
			t.Error("fresh job reported as expired")
		}
	}
}

func TestStoreCount(t *testing.T) {
	store := openTestStore(t)

	for i := 0; i < 4; i++ {
		if err := store.Put(testJob(models.ExportPending, time.Now().UTC())); err != nil {
			t.Fatalf("Put() error: %v", err)
		}
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if count != 4 {
		t.Errorf("Count() = %d, want 4", count)
	}
}
