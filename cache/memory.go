package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// MemoryLayer is an in-process cache layer with LRU eviction and lazy TTL
// expiry. Entry sizes come from a pluggable estimator and the total is
// kept within a byte budget.
type MemoryLayer struct {
	name      string
	priority  int
	latency   time.Duration
	maxSize   int64
	size      int64 // bytes in use, read atomically
	evictions int64 // entries evicted, read atomically
	estimate  SizeEstimator
	pulses    *PulseStream

	mu       sync.Mutex
	items    map[string]*list.Element
	eviction *list.List // front is most recently used
}

// memoryEntry is a single stored value
type memoryEntry struct {
	key       string
	value     any
	size      int64
	expiresAt time.Time // zero means no expiry
	lastUsed  time.Time
}

// expired reports whether the entry's TTL has lapsed
func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryLayer creates an in-memory layer. Zero-value config fields fall
// back to DefaultMemoryConfig.
func NewMemoryLayer(cfg MemoryConfig) *MemoryLayer {
	def := DefaultMemoryConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.Latency <= 0 {
		cfg.Latency = def.Latency
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = def.MaxSize
	}
	if cfg.Estimator == nil {
		cfg.Estimator = DefaultSizeEstimator
	}

	return &MemoryLayer{
		name:     cfg.Name,
		priority: cfg.Priority,
		latency:  cfg.Latency,
		maxSize:  cfg.MaxSize,
		estimate: cfg.Estimator,
		pulses:   cfg.Pulses,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
	}
}

// Name returns the layer name
func (m *MemoryLayer) Name() string { return m.name }

// Priority returns the layer's position among its peers, lower is faster
func (m *MemoryLayer) Priority() int { return m.priority }

// ExpectedLatency returns the advertised access latency
func (m *MemoryLayer) ExpectedLatency() time.Duration { return m.latency }

// MaxSize returns the byte budget
func (m *MemoryLayer) MaxSize() int64 { return m.maxSize }

// CurrentSize returns the estimated bytes currently stored
func (m *MemoryLayer) CurrentSize() int64 { return atomic.LoadInt64(&m.size) }

// Evictions returns how many entries have been evicted for space
func (m *MemoryLayer) Evictions() int64 { return atomic.LoadInt64(&m.evictions) }

// Len returns the number of live entries
func (m *MemoryLayer) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Get returns the value for key. Expired entries are purged and reported
// as absent.
func (m *MemoryLayer) Get(_ context.Context, key string) (any, bool, error) {
	now := time.Now()

	m.mu.Lock()
	elem, ok := m.items[key]
	if !ok {
		m.mu.Unlock()
		m.emit(PulseMiss, key)
		return nil, false, nil
	}
	entry := elem.Value.(*memoryEntry)
	if entry.expired(now) {
		m.removeElement(elem)
		m.mu.Unlock()
		m.emit(PulseMiss, key)
		return nil, false, nil
	}
	entry.lastUsed = now
	m.eviction.MoveToFront(elem)
	value := entry.value
	m.mu.Unlock()

	m.emit(PulseHit, key)
	return value, true, nil
}

// Set stores a value, evicting cold entries until it fits. Values larger
// than the whole budget are rejected with ErrValueTooLarge.
func (m *MemoryLayer) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	size := m.estimate(value)
	if size > m.maxSize {
		log.Warn("value exceeds layer budget",
			"layer", m.name, "key", key, "size", size, "max", m.maxSize)
		return ErrValueTooLarge
	}

	now := time.Now()
	entry := &memoryEntry{
		key:      key,
		value:    value,
		size:     size,
		lastUsed: now,
	}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}

	m.mu.Lock()
	if elem, found := m.items[key]; found {
		old := elem.Value.(*memoryEntry)
		atomic.AddInt64(&m.size, size-old.size)
		elem.Value = entry
		m.eviction.MoveToFront(elem)
		// a larger replacement can overflow the budget
		for atomic.LoadInt64(&m.size) > m.maxSize && m.eviction.Len() > 0 {
			m.evictOldest()
		}
		m.mu.Unlock()

		m.emit(PulseWrite, key)
		return nil
	}

	// evict cold entries until the new value fits
	for atomic.LoadInt64(&m.size)+size > m.maxSize && m.eviction.Len() > 0 {
		m.evictOldest()
	}
	m.items[key] = m.eviction.PushFront(entry)
	atomic.AddInt64(&m.size, size)
	m.mu.Unlock()

	m.emit(PulseWrite, key)
	return nil
}

// Remove deletes a key. Removing an absent key is a no-op.
func (m *MemoryLayer) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	elem, found := m.items[key]
	if found {
		m.removeElement(elem)
	}
	m.mu.Unlock()

	if found {
		m.emit(PulseInvalidation, key)
	}
	return nil
}

// Exists reports whether a live entry holds the key. Expired entries are
// purged on the way.
func (m *MemoryLayer) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, found := m.items[key]
	if !found {
		return false, nil
	}
	if elem.Value.(*memoryEntry).expired(time.Now()) {
		m.removeElement(elem)
		return false, nil
	}
	return true, nil
}

// Clear drops every entry
func (m *MemoryLayer) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]*list.Element)
	m.eviction.Init()
	atomic.StoreInt64(&m.size, 0)
	return nil
}

// evictOldest removes the least recently used entry. Callers must hold
// m.mu.
func (m *MemoryLayer) evictOldest() {
	elem := m.eviction.Back()
	if elem == nil {
		return
	}
	entry := elem.Value.(*memoryEntry)
	m.removeElement(elem)
	atomic.AddInt64(&m.evictions, 1)
	log.Debug("evicted cache entry", "layer", m.name, "key", entry.key, "size", entry.size)
}

// removeElement unlinks an entry and releases its budget. Callers must
// hold m.mu.
func (m *MemoryLayer) removeElement(elem *list.Element) {
	entry := elem.Value.(*memoryEntry)
	m.eviction.Remove(elem)
	delete(m.items, entry.key)
	atomic.AddInt64(&m.size, -entry.size)
}

// emit publishes a pulse when a stream is attached
func (m *MemoryLayer) emit(kind PulseKind, key string) {
	if m.pulses == nil {
		return
	}
	m.pulses.Publish(newPulse(m.name, kind, key))
}
