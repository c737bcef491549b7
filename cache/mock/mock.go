// Package mock provides a scriptable cache layer for demos and tests. It
// stands in for external collaborators like Redis- or Mongo-backed layers:
// same contract as the in-memory layer, plus injectable latency and
// failures.
package mock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/cascade/cache"
)

// Layer implements cache.Layer over a plain map with simulated latency.
type Layer struct {
	name     string
	priority int
	latency  time.Duration
	maxSize  int64
	size     int64 // atomic
	estimate cache.SizeEstimator

	// Control for testing
	delay     time.Duration
	failErr   error
	pulses    *cache.PulseStream
	callCount int64 // atomic, every operation

	mu    sync.RWMutex
	items map[string]*entry
}

type entry struct {
	value     any
	size      int64
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Config holds mock layer settings.
type Config struct {
	Name     string
	Priority int
	Latency  time.Duration // advertised and simulated per operation
	MaxSize  int64         // advertised only, the mock never evicts
	Pulses   *cache.PulseStream // optional stream for hit/miss/write pulses
}

// New creates a mock layer.
func New(cfg Config) *Layer {
	if cfg.Name == "" {
		cfg.Name = "mock"
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1 << 30
	}
	return &Layer{
		name:     cfg.Name,
		priority: cfg.Priority,
		latency:  cfg.Latency,
		maxSize:  cfg.MaxSize,
		estimate: cache.DefaultSizeEstimator,
		delay:    cfg.Latency,
		pulses:   cfg.Pulses,
		items:    make(map[string]*entry),
	}
}

// Name returns the layer name.
func (l *Layer) Name() string { return l.name }

// Priority returns the layer's order among its peers.
func (l *Layer) Priority() int { return l.priority }

// ExpectedLatency returns the advertised access latency.
func (l *Layer) ExpectedLatency() time.Duration { return l.latency }

// MaxSize returns the advertised byte budget. The mock reports sizes but
// does not evict, so CurrentSize may exceed it.
func (l *Layer) MaxSize() int64 { return l.maxSize }

// CurrentSize returns the estimated bytes currently stored.
func (l *Layer) CurrentSize() int64 { return atomic.LoadInt64(&l.size) }

// Get returns the value for key after the configured delay.
func (l *Layer) Get(ctx context.Context, key string) (any, bool, error) {
	if err := l.simulate(ctx); err != nil {
		return nil, false, err
	}

	l.mu.Lock()
	e, ok := l.items[key]
	if ok && e.expired(time.Now()) {
		l.removeLocked(key, e)
		ok = false
	}
	var value any
	if ok {
		value = e.value
	}
	l.mu.Unlock()

	if ok {
		l.emit(cache.PulseHit, key)
		return value, true, nil
	}
	l.emit(cache.PulseMiss, key)
	return nil, false, nil
}

// Set stores a value after the configured delay.
func (l *Layer) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := l.simulate(ctx); err != nil {
		return err
	}

	e := &entry{
		value: value,
		size:  l.estimate(value),
	}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	l.mu.Lock()
	if old, ok := l.items[key]; ok {
		atomic.AddInt64(&l.size, e.size-old.size)
	} else {
		atomic.AddInt64(&l.size, e.size)
	}
	l.items[key] = e
	l.mu.Unlock()

	l.emit(cache.PulseWrite, key)
	return nil
}

// Remove deletes a key after the configured delay.
func (l *Layer) Remove(ctx context.Context, key string) error {
	if err := l.simulate(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	e, ok := l.items[key]
	if ok {
		l.removeLocked(key, e)
	}
	l.mu.Unlock()

	if ok {
		l.emit(cache.PulseInvalidation, key)
	}
	return nil
}

// Exists reports whether a live entry holds the key.
func (l *Layer) Exists(ctx context.Context, key string) (bool, error) {
	if err := l.simulate(ctx); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.items[key]
	if !ok {
		return false, nil
	}
	if e.expired(time.Now()) {
		l.removeLocked(key, e)
		return false, nil
	}
	return true, nil
}

// Clear drops every entry.
func (l *Layer) Clear(ctx context.Context) error {
	if err := l.simulate(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = make(map[string]*entry)
	atomic.StoreInt64(&l.size, 0)
	return nil
}

// Len returns the number of live entries.
func (l *Layer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// removeLocked drops an entry. Callers must hold l.mu.
func (l *Layer) removeLocked(key string, e *entry) {
	delete(l.items, key)
	atomic.AddInt64(&l.size, -e.size)
}

// emit publishes a pulse when a stream is attached.
func (l *Layer) emit(kind cache.PulseKind, key string) {
	if l.pulses == nil {
		return
	}
	l.pulses.Publish(cache.Pulse{
		Layer: l.name,
		Kind:  kind,
		Key:   key,
		Time:  time.Now().UTC(),
	})
}

// simulate counts the call, applies the configured failure, and sleeps out
// the delay while honoring ctx cancellation.
func (l *Layer) simulate(ctx context.Context) error {
	atomic.AddInt64(&l.callCount, 1)

	l.mu.RLock()
	failErr := l.failErr
	delay := l.delay
	l.mu.RUnlock()

	if failErr != nil {
		return failErr
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Test control methods

// SetDelay overrides the simulated per-operation delay.
func (l *Layer) SetDelay(delay time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.delay = delay
}

// SetFailure makes every operation fail with err.
func (l *Layer) SetFailure(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failErr = err
}

// ClearFailure resets the layer to normal operation.
func (l *Layer) ClearFailure() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failErr = nil
}

// CallCount returns how many operations the layer has seen.
func (l *Layer) CallCount() int {
	return int(atomic.LoadInt64(&l.callCount))
}
