// Package monitor turns the cache's pulse stream into a decaying activity
// signal per layer, suitable for live visualization. It is a pure observer:
// nothing here feeds back into cache behavior.
package monitor

import (
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/cascade/cache"
)

// Defaults for monitor construction.
const (
	// DefaultWaveformSize is the ring capacity per channel.
	DefaultWaveformSize = 60

	// DefaultDecayRate is how many activity units drain per second.
	DefaultDecayRate = 3.0
)

// Channel is one of the fixed display lanes activity is bucketed into.
type Channel int

const (
	// ChannelL1 collects pulses from the fastest, in-memory layer.
	ChannelL1 Channel = iota
	// ChannelL2 collects pulses from a mid-speed layer such as Redis.
	ChannelL2
	// ChannelL3 collects pulses from a slow, durable layer such as Mongo.
	ChannelL3

	numChannels
)

// String returns the channel label.
func (c Channel) String() string {
	switch c {
	case ChannelL1:
		return "L1"
	case ChannelL2:
		return "L2"
	case ChannelL3:
		return "L3"
	default:
		return "unknown"
	}
}

// channelFor maps a layer name onto a display channel by substring.
// Names matching no channel return false and are ignored.
func channelFor(layer string) (Channel, bool) {
	switch {
	case strings.Contains(layer, "L1"), strings.Contains(layer, "Memory"):
		return ChannelL1, true
	case strings.Contains(layer, "L2"), strings.Contains(layer, "Redis"):
		return ChannelL2, true
	case strings.Contains(layer, "L3"), strings.Contains(layer, "Mongo"):
		return ChannelL3, true
	default:
		return 0, false
	}
}

// intensity maps a pulse kind onto how much it bumps a channel's activity.
func intensity(kind cache.PulseKind) float64 {
	switch kind {
	case cache.PulseHit:
		return 0.8
	case cache.PulseMiss:
		return 0.3
	case cache.PulseWrite:
		return 1.0
	case cache.PulseInvalidation:
		return 0.5
	default:
		return 0
	}
}

// Config holds monitor construction settings.
type Config struct {
	WaveformSize int     // ring capacity per channel, 0 for default
	DecayRate    float64 // activity units drained per second, 0 for default
}

// Monitor accumulates pulse activity per channel and decays it over time.
// Pulse handling and Update may run on different goroutines; one mutex
// guards all levels, rings, and counters.
type Monitor struct {
	mu        sync.Mutex
	levels    [numChannels]float64
	waves     [numChannels]*Waveform
	decayRate float64

	eventsInWindow  int
	eventsPerSecond int
	windowStart     time.Time

	stream *cache.PulseStream
	subID  int
}

// New creates a monitor. Zero-value config fields fall back to defaults.
func New(cfg Config) *Monitor {
	if cfg.WaveformSize <= 0 {
		cfg.WaveformSize = DefaultWaveformSize
	}
	if cfg.DecayRate <= 0 {
		cfg.DecayRate = DefaultDecayRate
	}

	m := &Monitor{
		decayRate:   cfg.DecayRate,
		windowStart: time.Now(),
	}
	for i := range m.waves {
		m.waves[i] = NewWaveform(cfg.WaveformSize)
	}
	return m
}

// Connect subscribes the monitor to a pulse stream. Connecting while
// already connected swaps streams.
func (m *Monitor) Connect(stream *cache.PulseStream) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream != nil {
		m.stream.Disconnect(m.subID)
	}
	m.stream = stream
	m.subID = stream.Connect(m.handlePulse)
}

// Disconnect unsubscribes from the current stream. Safe to call when not
// connected.
func (m *Monitor) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream == nil {
		return
	}
	m.stream.Disconnect(m.subID)
	m.stream = nil
}

// handlePulse bumps the matching channel and counts the event. Runs on the
// publisher's goroutine.
func (m *Monitor) handlePulse(p cache.Pulse) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.eventsInWindow++

	ch, ok := channelFor(p.Layer)
	if !ok {
		return
	}
	m.levels[ch] += intensity(p.Kind)
	if m.levels[ch] > 1.0 {
		m.levels[ch] = 1.0
	}
}

// Update advances the monitor by dt: decays every channel, records one
// waveform sample per channel, and rolls the events-per-second window once
// a wall-clock second has passed.
func (m *Monitor) Update(dt time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	drain := m.decayRate * dt.Seconds()
	for i := range m.levels {
		m.levels[i] -= drain
		if m.levels[i] < 0 {
			m.levels[i] = 0
		}
		m.waves[i].Push(m.levels[i])
	}

	if now := time.Now(); now.Sub(m.windowStart) >= time.Second {
		m.eventsPerSecond = m.eventsInWindow
		m.eventsInWindow = 0
		m.windowStart = now
	}
}

// Activity returns a channel's current level in [0, 1].
func (m *Monitor) Activity(ch Channel) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch < 0 || ch >= numChannels {
		return 0
	}
	return m.levels[ch]
}

// Waveform returns a channel's recorded samples oldest first.
func (m *Monitor) Waveform(ch Channel) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch < 0 || ch >= numChannels {
		return nil
	}
	return m.waves[ch].Ordered()
}

// EventsPerSecond returns the pulse count from the last completed window.
func (m *Monitor) EventsPerSecond() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventsPerSecond
}
