// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeRunner struct {
	called atomic.Bool
}

func (f *fakeRunner) RunWithContext(ctx context.Context) error {
	f.called.Store(true)
	<-ctx.Done()
	return ctx.Err()
}

func TestHubService(t *testing.T) {
	runner := &fakeRunner{}
	svc := NewHubService(runner)

	if svc.String() != "websocket-hub" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
	if !runner.called.Load() {
		t.Error("hub RunWithContext was not invoked")
	}
}

type fakeStarter struct {
	err error
}

func (f *fakeStarter) Start(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestConsumerService(t *testing.T) {
	boom := errors.New("subscribe failed")
	svc := NewConsumerService(&fakeStarter{err: boom})

	if err := svc.Serve(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Serve() = %v, want propagated start error", err)
	}
	if svc.String() != "batch-consumer" {
		t.Errorf("String() = %q", svc.String())
	}
}

type fakeRetentionStore struct {
	deletes     atomic.Int32
	checkpoints atomic.Int32
	deleted     int64
	err         error
}

func (f *fakeRetentionStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.deletes.Add(1)
	return f.deleted, f.err
}

func (f *fakeRetentionStore) Checkpoint(ctx context.Context) error {
	f.checkpoints.Add(1)
	return nil
}

func TestRetentionServiceSweeps(t *testing.T) {
	store := &fakeRetentionStore{deleted: 42}
	svc := NewRetentionService(store, 90, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for store.deletes.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("sweeper did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-errCh

	if store.checkpoints.Load() == 0 {
		t.Error("sweep with deletions did not checkpoint")
	}
}

func TestRetentionServiceNoCheckpointWhenEmpty(t *testing.T) {
	store := &fakeRetentionStore{deleted: 0}
	svc := NewRetentionService(store, 90, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for store.deletes.Load() < 1 {
		select {
		case <-deadline:
			t.Fatal("sweeper did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-errCh

	if store.checkpoints.Load() != 0 {
		t.Error("empty sweep triggered a checkpoint")
	}
}

func TestRetentionServiceDisabled(t *testing.T) {
	store := &fakeRetentionStore{}
	svc := NewRetentionService(store, 0, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	<-errCh

	if store.deletes.Load() != 0 {
		t.Error("disabled sweeper still deleted")
	}
}

func TestServiceFunc(t *testing.T) {
	ran := false
	svc := ServiceFunc{
		Name: "one-shot",
		Run: func(ctx context.Context) error {
			ran = true
			return nil
		},
	}

	if err := svc.Serve(context.Background()); err != nil {
		t.Errorf("Serve() error: %v", err)
	}
	if !ran || svc.String() != "one-shot" {
		t.Errorf("ServiceFunc did not run or misnamed: ran=%v name=%q", ran, svc.String())
	}
}
