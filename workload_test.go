package main

import (
	"context"
	"testing"
	"time"

	"github.com/dgnsrekt/cascade/cache"
)

func TestWorkload_IssuesTraffic(t *testing.T) {
	manager := cache.New(cache.Config{})
	w := newWorkload(manager, 2000, 50, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	if err := w.run(ctx); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if w.Operations() == 0 {
		t.Error("workload issued no operations")
	}

	// traffic must have moved the counters
	total := uint64(0)
	for _, s := range manager.Stats() {
		total += s.Hits + s.Misses
	}
	if total == 0 {
		t.Error("workload left the stats untouched")
	}
}

func TestWorkload_Defaults(t *testing.T) {
	manager := cache.New(cache.Config{})
	w := newWorkload(manager, 0, 0, 0)

	if w.RunID() == "" {
		t.Error("missing run id")
	}
	if w.keys != 200 {
		t.Errorf("default key space: got %d, want 200", w.keys)
	}
}

func TestWorkload_SetRate(t *testing.T) {
	manager := cache.New(cache.Config{})
	w := newWorkload(manager, 10, 10, 0)

	w.setRate(500)
	if got := float64(w.limiter.Limit()); got != 500 {
		t.Errorf("rate not applied: %f", got)
	}

	w.setRate(0) // ignored
	if got := float64(w.limiter.Limit()); got != 500 {
		t.Errorf("zero rate should be ignored, got %f", got)
	}
}
