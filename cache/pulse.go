package cache

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// PulseKind identifies the cache event a pulse describes
type PulseKind int

const (
	// PulseHit marks a read that found its key
	PulseHit PulseKind = iota
	// PulseMiss marks a read that found nothing
	PulseMiss
	// PulseWrite marks a stored value
	PulseWrite
	// PulseInvalidation marks an explicit removal
	PulseInvalidation
)

// String returns a human-readable pulse kind
func (k PulseKind) String() string {
	switch k {
	case PulseHit:
		return "hit"
	case PulseMiss:
		return "miss"
	case PulseWrite:
		return "write"
	case PulseInvalidation:
		return "invalidation"
	default:
		return "unknown"
	}
}

// Pulse is a single cache activity event
type Pulse struct {
	Layer string    // name of the layer the event happened on
	Kind  PulseKind // what happened
	Key   string    // key involved
	Time  time.Time // when it happened, UTC
}

// PulseStream fans cache activity out to registered observers. Delivery is
// synchronous on the publishing goroutine; observers that block slow the
// cache down, observers that panic are recovered and logged.
type PulseStream struct {
	mu        sync.RWMutex
	nextID    int
	observers map[int]func(Pulse)
}

// NewPulseStream creates an empty pulse stream
func NewPulseStream() *PulseStream {
	return &PulseStream{
		observers: make(map[int]func(Pulse)),
	}
}

// Connect registers an observer and returns its subscription ID
func (s *PulseStream) Connect(fn func(Pulse)) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	return id
}

// Disconnect removes a previously registered observer. Unknown IDs are
// ignored.
func (s *PulseStream) Disconnect(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.observers, id)
}

// Publish delivers a pulse to every connected observer
func (s *PulseStream) Publish(p Pulse) {
	s.mu.RLock()
	observers := make([]func(Pulse), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.RUnlock()

	for _, fn := range observers {
		s.deliver(fn, p)
	}
}

// deliver invokes a single observer, containing any panic
func (s *PulseStream) deliver(fn func(Pulse), p Pulse) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("pulse observer panicked", "kind", p.Kind, "key", p.Key, "panic", r)
		}
	}()
	fn(p)
}

// newPulse stamps a pulse with the current time
func newPulse(layer string, kind PulseKind, key string) Pulse {
	return Pulse{
		Layer: layer,
		Kind:  kind,
		Key:   key,
		Time:  time.Now().UTC(),
	}
}
