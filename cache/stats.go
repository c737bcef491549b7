package cache

import "sync"

// LayerStats is a point-in-time view of one layer's counters
type LayerStats struct {
	Hits    uint64  // reads that found the key
	Misses  uint64  // reads that did not
	HitRate float64 // Hits / (Hits + Misses), 0 before any reads
}

// Tracker accumulates hit and miss counts per layer name. All methods are
// safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	layers map[string]*layerCounters
}

type layerCounters struct {
	hits   uint64
	misses uint64
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		layers: make(map[string]*layerCounters),
	}
}

// RecordHit counts a successful read on the named layer
func (t *Tracker) RecordHit(layer string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.counters(layer).hits++
}

// RecordMiss counts a failed read on the named layer
func (t *Tracker) RecordMiss(layer string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.counters(layer).misses++
}

// HitRate returns the named layer's hit ratio, 0 when the layer has not
// been read yet
func (t *Tracker) HitRate(layer string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.layers[layer]
	if !ok {
		return 0
	}
	return hitRate(c.hits, c.misses)
}

// Snapshot returns a copy of every layer's counters. The result is
// detached; later reads do not mutate it.
func (t *Tracker) Snapshot() map[string]LayerStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := make(map[string]LayerStats, len(t.layers))
	for name, c := range t.layers {
		snap[name] = LayerStats{
			Hits:    c.hits,
			Misses:  c.misses,
			HitRate: hitRate(c.hits, c.misses),
		}
	}
	return snap
}

// counters returns the named layer's counters, creating them on first use.
// Callers must hold t.mu.
func (t *Tracker) counters(layer string) *layerCounters {
	c, ok := t.layers[layer]
	if !ok {
		c = &layerCounters{}
		t.layers[layer] = c
	}
	return c
}

func hitRate(hits, misses uint64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
