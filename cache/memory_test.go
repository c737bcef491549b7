package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryLayer_BasicOperations(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLayer(MemoryConfig{MaxSize: 1024})

	if err := m.Set(ctx, "k", "value", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, found, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("Get missed a stored key")
	}
	if value != "value" {
		t.Errorf("value mismatch: got %v, want value", value)
	}

	found, err = m.Exists(ctx, "k")
	if err != nil || !found {
		t.Errorf("Exists returned %v/%v, want true/nil", found, err)
	}

	if err := m.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if found, _ := m.Exists(ctx, "k"); found {
		t.Error("key still exists after remove")
	}
	if m.CurrentSize() != 0 {
		t.Errorf("size not zero after remove: %d", m.CurrentSize())
	}
}

func TestMemoryLayer_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLayer(MemoryConfig{MaxSize: 1024})

	m.Set(ctx, "k", "first", 0)
	m.Set(ctx, "k", "second", 0)

	value, found, _ := m.Get(ctx, "k")
	if !found || value != "second" {
		t.Errorf("expected second write to win, got %v/%v", value, found)
	}
	if m.Len() != 1 {
		t.Errorf("replace grew the layer: %d entries", m.Len())
	}
}

func TestMemoryLayer_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLayer(MemoryConfig{MaxSize: 1024})

	m.Set(ctx, "short", "v", 10*time.Millisecond)
	m.Set(ctx, "keep", "v", 0)
	before := m.CurrentSize()

	time.Sleep(20 * time.Millisecond)

	if _, found, _ := m.Get(ctx, "short"); found {
		t.Error("expired entry still visible")
	}
	// lazy purge frees the entry's estimated size
	freed := before - m.CurrentSize()
	if freed != DefaultSizeEstimator("v") {
		t.Errorf("purge freed %d bytes, want %d", freed, DefaultSizeEstimator("v"))
	}
	if _, found, _ := m.Get(ctx, "keep"); !found {
		t.Error("entry without TTL expired")
	}
}

func TestMemoryLayer_ExistsPurgesExpired(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLayer(MemoryConfig{MaxSize: 1024})

	m.Set(ctx, "k", "v", 5*time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	if found, _ := m.Exists(ctx, "k"); found {
		t.Error("Exists reported an expired entry")
	}
	if m.Len() != 0 {
		t.Errorf("expired entry not purged: %d entries", m.Len())
	}
}

func TestMemoryLayer_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	// flat 500 bytes per value, budget fits exactly two
	m := NewMemoryLayer(MemoryConfig{
		MaxSize:   1100,
		Estimator: func(any) int64 { return 500 },
	})

	m.Set(ctx, "a", 1, 0)
	m.Set(ctx, "b", 2, 0)
	m.Set(ctx, "c", 3, 0)

	if found, _ := m.Exists(ctx, "a"); found {
		t.Error("oldest entry survived eviction")
	}
	for _, key := range []string{"b", "c"} {
		if found, _ := m.Exists(ctx, key); !found {
			t.Errorf("entry %q evicted out of order", key)
		}
	}
	if m.CurrentSize() > m.MaxSize() {
		t.Errorf("size %d exceeds budget %d after Set", m.CurrentSize(), m.MaxSize())
	}
	if m.Evictions() != 1 {
		t.Errorf("expected 1 eviction, got %d", m.Evictions())
	}
}

func TestMemoryLayer_EvictsUntilNewEntryFits(t *testing.T) {
	ctx := context.Background()
	// budget fits one entry, so each Set pushes the previous one out
	m := NewMemoryLayer(MemoryConfig{
		MaxSize:   600,
		Estimator: func(any) int64 { return 500 },
	})

	m.Set(ctx, "a", 1, 0)
	m.Set(ctx, "b", 2, 0)
	m.Set(ctx, "c", 3, 0)

	for _, key := range []string{"a", "b"} {
		if found, _ := m.Exists(ctx, key); found {
			t.Errorf("entry %q survived past the budget", key)
		}
	}
	if found, _ := m.Exists(ctx, "c"); !found {
		t.Error("newest entry missing after eviction")
	}
	if m.CurrentSize() > m.MaxSize() {
		t.Errorf("size %d exceeds budget %d after Set", m.CurrentSize(), m.MaxSize())
	}
	if m.Evictions() != 2 {
		t.Errorf("expected 2 evictions, got %d", m.Evictions())
	}
}

func TestMemoryLayer_ReadRefreshesRecency(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLayer(MemoryConfig{
		MaxSize:   1100,
		Estimator: func(any) int64 { return 500 },
	})

	m.Set(ctx, "a", 1, 0)
	m.Set(ctx, "b", 2, 0)

	// touching "a" makes "b" the eviction victim
	m.Get(ctx, "a")
	m.Set(ctx, "c", 3, 0)

	if found, _ := m.Exists(ctx, "a"); !found {
		t.Error("recently read entry was evicted")
	}
	if found, _ := m.Exists(ctx, "b"); found {
		t.Error("least recently used entry survived")
	}
}

func TestMemoryLayer_ValueTooLarge(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLayer(MemoryConfig{MaxSize: 100})

	err := m.Set(ctx, "big", struct{}{}, 0) // flat 500-byte estimate
	if !errors.Is(err, ErrValueTooLarge) {
		t.Errorf("expected ErrValueTooLarge, got %v", err)
	}
	if m.Len() != 0 {
		t.Error("rejected value was stored anyway")
	}
}

func TestMemoryLayer_ReplaceEvictsOnGrowth(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLayer(MemoryConfig{MaxSize: 1000})

	m.Set(ctx, "a", "aa", 0)                      // 104 bytes
	m.Set(ctx, "b", "bb", 0)                      // 104 bytes
	m.Set(ctx, "b", string(make([]rune, 450)), 0) // 1000 bytes, forces "a" out

	if found, _ := m.Exists(ctx, "a"); found {
		t.Error("growth on replace did not evict")
	}
	if m.CurrentSize() > m.MaxSize() {
		t.Errorf("size %d exceeds budget %d after replace", m.CurrentSize(), m.MaxSize())
	}
}

func TestMemoryLayer_Clear(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLayer(MemoryConfig{MaxSize: 10 * 1024})

	for i := 0; i < 5; i++ {
		m.Set(ctx, fmt.Sprintf("key-%d", i), i, 0)
	}

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("entries survived Clear: %d", m.Len())
	}
	if m.CurrentSize() != 0 {
		t.Errorf("size not reset by Clear: %d", m.CurrentSize())
	}
}

func TestMemoryLayer_Defaults(t *testing.T) {
	m := NewMemoryLayer(MemoryConfig{})

	def := DefaultMemoryConfig()
	if m.Name() != def.Name {
		t.Errorf("name default: got %s, want %s", m.Name(), def.Name)
	}
	if m.MaxSize() != def.MaxSize {
		t.Errorf("budget default: got %d, want %d", m.MaxSize(), def.MaxSize)
	}
}

func TestMemoryLayer_Pulses(t *testing.T) {
	ctx := context.Background()
	stream := NewPulseStream()

	var mu sync.Mutex
	var kinds []PulseKind
	stream.Connect(func(p Pulse) {
		mu.Lock()
		kinds = append(kinds, p.Kind)
		mu.Unlock()
	})

	m := NewMemoryLayer(MemoryConfig{MaxSize: 1024, Pulses: stream})
	m.Set(ctx, "k", "v", 0)
	m.Get(ctx, "k")
	m.Get(ctx, "nope")
	m.Remove(ctx, "k")

	mu.Lock()
	defer mu.Unlock()
	want := []PulseKind{PulseWrite, PulseHit, PulseMiss, PulseInvalidation}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d pulses, got %d: %v", len(want), len(kinds), kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("pulse %d: got %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestMemoryLayer_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLayer(MemoryConfig{MaxSize: 64 * 1024})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				key := fmt.Sprintf("worker-%d-key-%d", id, j)
				if err := m.Set(ctx, key, j, 0); err != nil {
					t.Errorf("Set failed: %v", err)
				}
				m.Get(ctx, key)
				if j%5 == 0 {
					m.Remove(ctx, key)
				}
			}
		}(i)
	}
	wg.Wait()

	if m.CurrentSize() < 0 {
		t.Errorf("size went negative: %d", m.CurrentSize())
	}
	if m.CurrentSize() > m.MaxSize() {
		t.Errorf("size %d exceeds budget %d", m.CurrentSize(), m.MaxSize())
	}
}

func BenchmarkMemoryLayer_Set(b *testing.B) {
	ctx := context.Background()
	m := NewMemoryLayer(MemoryConfig{MaxSize: 64 * 1024 * 1024})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Set(ctx, fmt.Sprintf("key-%d", i%10000), "value", 0)
	}
}

func BenchmarkMemoryLayer_Get(b *testing.B) {
	ctx := context.Background()
	m := NewMemoryLayer(MemoryConfig{MaxSize: 64 * 1024 * 1024})
	for i := 0; i < 10000; i++ {
		m.Set(ctx, fmt.Sprintf("key-%d", i), "value", 0)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Get(ctx, fmt.Sprintf("key-%d", i%10000))
	}
}
