package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
)

// Manager fronts an ordered stack of layers. Reads walk the stack fastest
// first and populate faster layers on a hit; writes fan out according to
// the configured strategy. A failing layer is logged and skipped on the
// read path, never surfaced to the caller.
type Manager struct {
	layers   []Layer // ascending priority, index 0 is fastest
	strategy WriteStrategy
	stats    *Tracker
	pulses   *PulseStream
}

// New creates a manager over the given layers, ordered by priority. With
// no layers a single default in-memory layer is created.
func New(cfg Config, layers ...Layer) *Manager {
	pulses := cfg.Pulses
	if pulses == nil {
		pulses = NewPulseStream()
	}

	if len(layers) == 0 {
		mc := DefaultMemoryConfig()
		mc.Pulses = pulses
		layers = []Layer{NewMemoryLayer(mc)}
	}

	ordered := make([]Layer, len(layers))
	copy(ordered, layers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	m := &Manager{
		layers:   ordered,
		strategy: cfg.Strategy,
		stats:    NewTracker(),
		pulses:   pulses,
	}

	for _, l := range m.layers {
		log.Debug("cache layer registered", "layer", describeLayer(l))
	}
	return m
}

// Strategy returns the configured write strategy
func (m *Manager) Strategy() WriteStrategy { return m.strategy }

// Pulses returns the activity stream shared by the manager and its layers
func (m *Manager) Pulses() *PulseStream { return m.pulses }

// Stats returns a snapshot of per-layer hit and miss counters
func (m *Manager) Stats() map[string]LayerStats { return m.stats.Snapshot() }

// HitRate returns the named layer's hit ratio
func (m *Manager) HitRate(layer string) float64 { return m.stats.HitRate(layer) }

// Layers returns a descriptive snapshot of every layer, fastest first
func (m *Manager) Layers() []LayerInfo {
	infos := make([]LayerInfo, len(m.layers))
	for i, l := range m.layers {
		infos[i] = describeLayer(l)
	}
	return infos
}

// Get returns the value for key from the fastest layer that holds it,
// copying it into every faster layer on the way out. Layers scanned
// before the hit are each counted as a miss.
func (m *Manager) Get(ctx context.Context, key string) (any, bool) {
	if key == "" {
		log.Warn("cache get with empty key")
		return nil, false
	}

	for i, layer := range m.layers {
		value, found, err := layer.Get(ctx, key)
		if err != nil {
			log.Warn("cache read failed", "layer", layer.Name(), "key", key, "error", err)
			m.stats.RecordMiss(layer.Name())
			continue
		}
		if !found {
			m.stats.RecordMiss(layer.Name())
			continue
		}

		m.stats.RecordHit(layer.Name())
		m.populateFaster(ctx, i, key, value)
		return value, true
	}
	return nil, false
}

// populateFaster writes a value found at layer index hit into every
// faster layer so the next read stops sooner
func (m *Manager) populateFaster(ctx context.Context, hit int, key string, value any) {
	for _, layer := range m.layers[:hit] {
		if err := layer.Set(ctx, key, value, 0); err != nil {
			if errors.Is(err, ErrValueTooLarge) {
				log.Debug("skipping populate, value too large", "layer", layer.Name(), "key", key)
				continue
			}
			log.Warn("cache populate failed", "layer", layer.Name(), "key", key, "error", err)
		}
	}
}

// Set stores a value according to the write strategy. A successful call
// publishes a single write pulse regardless of how many layers were
// touched; when every layer rejected the value as too large, nothing was
// stored and no pulse is published.
func (m *Manager) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if key == "" {
		log.Warn("cache set with empty key")
		return ErrInvalidKey
	}
	if value == nil {
		log.Warn("cache set with nil value", "key", key)
		return ErrNilValue
	}

	var stored bool
	var err error
	switch m.strategy {
	case FastestOnly:
		stored, err = m.writeFastest(ctx, key, value, ttl)
	case WriteBehind:
		stored, err = m.writeBehind(ctx, key, value, ttl)
	default:
		stored, err = m.writeThrough(ctx, key, value, ttl)
	}
	if err != nil {
		return err
	}

	if stored {
		m.pulses.Publish(newPulse(m.layers[0].Name(), PulseWrite, key))
	}
	return nil
}

// writeThrough writes every layer in order. The first failure stops the
// fan-out and is returned; layers already written keep the value. A layer
// rejecting the value as too large is skipped, not failed. Reports whether
// any layer stored the value.
func (m *Manager) writeThrough(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	var stored bool
	for _, layer := range m.layers {
		if err := layer.Set(ctx, key, value, ttl); err != nil {
			if errors.Is(err, ErrValueTooLarge) {
				log.Debug("skipping layer, value too large", "layer", layer.Name(), "key", key)
				continue
			}
			return stored, fmt.Errorf("write %s: %w", layer.Name(), err)
		}
		stored = true
	}
	return stored, nil
}

// writeFastest writes only the fastest layer
func (m *Manager) writeFastest(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	layer := m.layers[0]
	if err := layer.Set(ctx, key, value, ttl); err != nil {
		if errors.Is(err, ErrValueTooLarge) {
			log.Debug("skipping layer, value too large", "layer", layer.Name(), "key", key)
			return false, nil
		}
		return false, fmt.Errorf("write %s: %w", layer.Name(), err)
	}
	return true, nil
}

// writeBehind writes the fastest layer synchronously and the remaining
// layers from a detached goroutine. Background failures are logged and
// never reach the caller; the goroutine outlives the caller's context.
// When the fastest layer rejected the value, the write pulse is deferred
// to the first slower layer that takes it.
func (m *Manager) writeBehind(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	stored, err := m.writeFastest(ctx, key, value, ttl)
	if err != nil {
		return stored, err
	}

	rest := m.layers[1:]
	if len(rest) == 0 {
		return stored, nil
	}

	announce := !stored
	bgCtx := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("write-behind panicked", "key", key, "panic", r)
			}
		}()

		for _, layer := range rest {
			if err := layer.Set(bgCtx, key, value, ttl); err != nil {
				if errors.Is(err, ErrValueTooLarge) {
					log.Debug("skipping layer, value too large", "layer", layer.Name(), "key", key)
					continue
				}
				log.Error("write-behind failed", "layer", layer.Name(), "key", key, "error", err)
				continue
			}
			if announce {
				m.pulses.Publish(newPulse(layer.Name(), PulseWrite, key))
				announce = false
			}
		}
	}()
	return stored, nil
}

// GetOrCreate returns the cached value for key, or runs factory and
// caches its result. Concurrent callers missing on the same key may each
// run the factory; the last write wins.
func (m *Manager) GetOrCreate(ctx context.Context, key string, factory func(context.Context) (any, error), ttl time.Duration) (any, error) {
	if key == "" {
		log.Warn("cache get-or-create with empty key")
		return nil, ErrInvalidKey
	}

	if value, found := m.Get(ctx, key); found {
		return value, nil
	}

	value, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("cache factory: %w", err)
	}
	if value == nil {
		log.Warn("cache factory returned nil", "key", key)
		return nil, ErrNilValue
	}

	if err := m.Set(ctx, key, value, ttl); err != nil {
		return nil, err
	}
	return value, nil
}

// Remove deletes a key from every layer. Layer failures are logged and
// the removal continues; a single invalidation pulse is published.
func (m *Manager) Remove(ctx context.Context, key string) error {
	if key == "" {
		log.Warn("cache remove with empty key")
		return ErrInvalidKey
	}

	for _, layer := range m.layers {
		if err := layer.Remove(ctx, key); err != nil {
			log.Warn("cache remove failed", "layer", layer.Name(), "key", key, "error", err)
		}
	}

	m.pulses.Publish(newPulse(m.layers[0].Name(), PulseInvalidation, key))
	return nil
}

// Exists reports whether any layer holds the key. Failing layers are
// logged and skipped.
func (m *Manager) Exists(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}

	for _, layer := range m.layers {
		found, err := layer.Exists(ctx, key)
		if err != nil {
			log.Warn("cache exists failed", "layer", layer.Name(), "key", key, "error", err)
			continue
		}
		if found {
			return true
		}
	}
	return false
}

// Clear empties every layer. Failures are logged and the sweep continues.
func (m *Manager) Clear(ctx context.Context) error {
	for _, layer := range m.layers {
		if err := layer.Clear(ctx); err != nil {
			log.Warn("cache clear failed", "layer", layer.Name(), "error", err)
		}
	}
	return nil
}
