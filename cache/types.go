package cache

import (
	"errors"
	"time"
)

// Common errors for cache operations
var (
	// ErrInvalidKey indicates an empty or otherwise unusable key
	ErrInvalidKey = errors.New("invalid cache key")

	// ErrNilValue indicates an attempt to store a nil value
	ErrNilValue = errors.New("nil cache value")

	// ErrValueTooLarge indicates a value that exceeds a layer's total budget
	ErrValueTooLarge = errors.New("value too large for cache layer")
)

// WriteStrategy controls how Set fans out across layers
type WriteStrategy int

const (
	// WriteThrough writes every layer synchronously, slowest first to fail
	WriteThrough WriteStrategy = iota
	// FastestOnly writes the fastest layer and lets reads populate the rest
	FastestOnly
	// WriteBehind writes the fastest layer synchronously and the rest in
	// the background
	WriteBehind
)

// String returns a human-readable strategy name
func (s WriteStrategy) String() string {
	switch s {
	case WriteThrough:
		return "write-through"
	case FastestOnly:
		return "fastest-only"
	case WriteBehind:
		return "write-behind"
	default:
		return "unknown"
	}
}

// ParseWriteStrategy maps a config string to a WriteStrategy.
// Unrecognized values fall back to WriteThrough.
func ParseWriteStrategy(s string) WriteStrategy {
	switch s {
	case "fastest-only", "fastest":
		return FastestOnly
	case "write-behind", "behind":
		return WriteBehind
	default:
		return WriteThrough
	}
}

// Config holds manager-level settings
type Config struct {
	Strategy WriteStrategy // write fan-out behavior
	Pulses   *PulseStream  // optional shared stream; created when nil
}

// DefaultConfig returns sensible manager defaults
func DefaultConfig() Config {
	return Config{
		Strategy: WriteThrough,
	}
}

// MemoryConfig holds settings for the in-memory layer
type MemoryConfig struct {
	Name      string        // layer name, reported in stats and pulses
	Priority  int           // ordering among layers, lower is faster
	Latency   time.Duration // advertised access latency
	MaxSize   int64         // total budget in bytes
	Estimator SizeEstimator // per-value size estimate, nil for default
	Pulses    *PulseStream  // optional stream for hit/miss/write pulses
}

// DefaultMemoryConfig returns sensible defaults for the in-memory layer
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Name:     "L1-Memory",
		Priority: 0,
		Latency:  time.Microsecond,
		MaxSize:  100 * 1024 * 1024, // 100MB
	}
}
