// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voltaic-labs/voltaic/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

// mockService implements suture.Service with controllable behavior.
type mockService struct {
	name       string
	startCount atomic.Int32
	stopCount  atomic.Int32
	failCount  atomic.Int32
	maxFails   int32
	mu         sync.Mutex
	err        error
}

func newMockService(name string) *mockService {
	return &mockService{name: name}
}

func (m *mockService) Serve(ctx context.Context) error {
	m.startCount.Add(1)
	defer m.stopCount.Add(1)

	m.mu.Lock()
	err := m.err
	maxFails := m.maxFails
	m.mu.Unlock()

	if maxFails > 0 && m.failCount.Add(1) <= maxFails {
		return errors.New("simulated failure")
	}
	if err != nil {
		return err
	}

	<-ctx.Done()
	return ctx.Err()
}

func (m *mockService) String() string { return m.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultTreeConfig(t *testing.T) {
	cfg := DefaultTreeConfig()
	if cfg.FailureThreshold != 5.0 {
		t.Errorf("FailureThreshold = %v, want 5.0", cfg.FailureThreshold)
	}
	if cfg.FailureDecay != 30.0 {
		t.Errorf("FailureDecay = %v, want 30.0", cfg.FailureDecay)
	}
	if cfg.FailureBackoff != 15*time.Second {
		t.Errorf("FailureBackoff = %v, want 15s", cfg.FailureBackoff)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestNewTreeAppliesDefaults(t *testing.T) {
	tree, err := NewTree(testLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("NewTree() error: %v", err)
	}
	if tree.config.FailureThreshold != 5.0 || tree.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("zero config not defaulted: %+v", tree.config)
	}
	if tree.Root() == nil {
		t.Error("Root() returned nil")
	}
}

func TestTreeRunsServices(t *testing.T) {
	tree, err := NewTree(testLogger(), DefaultTreeConfig())
	if err != nil {
		t.Fatalf("NewTree() error: %v", err)
	}

	pipeline := newMockService("pipeline-svc")
	streaming := newMockService("streaming-svc")
	apiSvc := newMockService("api-svc")
	tree.AddPipelineService(pipeline)
	tree.AddStreamingService(streaming)
	tree.AddAPIService(apiSvc)

	ctx, cancel := context.WithCancel(context.Background())
	done := tree.ServeBackground(ctx)

	deadline := time.After(2 * time.Second)
	for pipeline.startCount.Load() == 0 || streaming.startCount.Load() == 0 || apiSvc.startCount.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("services did not start")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop after cancel")
	}

	if pipeline.stopCount.Load() == 0 || streaming.stopCount.Load() == 0 || apiSvc.stopCount.Load() == 0 {
		t.Error("services were not stopped on shutdown")
	}
}

func TestTreeRestartsFailedService(t *testing.T) {
	tree, err := NewTree(testLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureDecay:     30,
		FailureBackoff:   50 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("NewTree() error: %v", err)
	}

	svc := newMockService("flaky")
	svc.maxFails = 2
	tree.AddPipelineService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := tree.ServeBackground(ctx)

	deadline := time.After(3 * time.Second)
	for svc.startCount.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("service restarted %d times, want 3 starts", svc.startCount.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestTreeRemoveAndWait(t *testing.T) {
	tree, err := NewTree(testLogger(), DefaultTreeConfig())
	if err != nil {
		t.Fatalf("NewTree() error: %v", err)
	}

	// Remove/RemoveAndWait address the root supervisor, so the token
	// must come from a root-level add.
	svc := newMockService("removable")
	token := tree.Root().Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := tree.ServeBackground(ctx)

	deadline := time.After(2 * time.Second)
	for svc.startCount.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("service did not start")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := tree.RemoveAndWait(token, time.Second); err != nil {
		t.Errorf("RemoveAndWait() error: %v", err)
	}
	if svc.stopCount.Load() == 0 {
		t.Error("removed service was not stopped")
	}

	cancel()
	<-done
}
