// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New(time.Minute, 0)

	c.Set("k1", "v1")
	got, ok := c.Get("k1")
	if !ok {
		t.Fatal("Get(k1) miss, want hit")
	}
	if got != "v1" {
		t.Errorf("Get(k1) = %v, want v1", got)
	}

	if _, ok := c.Get("absent"); ok {
		t.Error("Get(absent) hit, want miss")
	}
}

func TestExpiration(t *testing.T) {
	c := New(time.Minute, 0)

	c.SetWithTTL("short", 42, 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Error("expired entry still readable")
	}

	stats := c.GetStats()
	if stats.Evictions < 1 {
		t.Errorf("Evictions = %d, want >= 1", stats.Evictions)
	}
}

func TestMaxEntriesEviction(t *testing.T) {
	c := New(time.Minute, 3)

	c.SetWithTTL("a", 1, 10*time.Second)
	c.SetWithTTL("b", 2, 20*time.Second)
	c.SetWithTTL("c", 3, 30*time.Second)
	c.SetWithTTL("d", 4, 40*time.Second)

	// "a" expires soonest, so it should have been evicted for "d".
	if _, ok := c.Get("a"); ok {
		t.Error("entry closest to expiry survived capacity eviction")
	}
	for _, key := range []string{"b", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("entry %q missing after eviction", key)
		}
	}
}

func TestOverwriteAtCapacityKeepsKey(t *testing.T) {
	c := New(time.Minute, 2)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3) // overwrite, no eviction needed

	if _, ok := c.Get("b"); !ok {
		t.Error("overwrite at capacity evicted another key")
	}
	got, _ := c.Get("a")
	if got != 3 {
		t.Errorf("Get(a) = %v, want 3", got)
	}
}

func TestDeleteAndClear(t *testing.T) {
	c := New(time.Minute, 0)

	c.Set("k1", 1)
	c.Set("k2", 2)
	c.Delete("k1")
	if _, ok := c.Get("k1"); ok {
		t.Error("deleted entry still readable")
	}

	c.Clear()
	if _, ok := c.Get("k2"); ok {
		t.Error("entry survived Clear")
	}
	if stats := c.GetStats(); stats.TotalKeys != 0 {
		t.Errorf("TotalKeys = %d after Clear, want 0", stats.TotalKeys)
	}
}

func TestHitRate(t *testing.T) {
	c := New(time.Minute, 0)

	c.Set("k", 1)
	c.Get("k")
	c.Get("k")
	c.Get("miss")

	// 2 hits, 1 miss
	want := 2.0 / 3.0 * 100.0
	if got := c.HitRate(); got < want-0.01 || got > want+0.01 {
		t.Errorf("HitRate() = %v, want ~%v", got, want)
	}
}

func TestCleanupRemovesExpired(t *testing.T) {
	c := New(time.Minute, 0)

	c.SetWithTTL("gone", 1, time.Nanosecond)
	c.Set("stays", 2)
	time.Sleep(time.Millisecond)
	c.cleanup()

	stats := c.GetStats()
	if stats.TotalKeys != 1 {
		t.Errorf("TotalKeys = %d after cleanup, want 1", stats.TotalKeys)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New(time.Minute, 128)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", j%32)
				c.Set(key, n)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
}

func TestGenerateKey(t *testing.T) {
	type params struct {
		DeviceID string
		Points   int
	}

	k1 := GenerateKey("series", params{"d1", 500})
	k2 := GenerateKey("series", params{"d1", 500})
	k3 := GenerateKey("series", params{"d1", 501})
	k4 := GenerateKey("stats", params{"d1", 500})

	if k1 != k2 {
		t.Error("identical params produced different keys")
	}
	if k1 == k3 {
		t.Error("different params produced identical keys")
	}
	if k1 == k4 {
		t.Error("different methods produced identical keys")
	}
}
