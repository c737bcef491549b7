package cache

import "unicode/utf8"

// Size estimate constants
const (
	// entryOverhead covers map, list, and bookkeeping costs per entry
	entryOverhead = 100

	// bytesPerRune approximates in-memory string storage per character
	bytesPerRune = 2

	// defaultValueSize is the flat estimate for non-string values
	defaultValueSize = 500
)

// SizeEstimator reports the approximate in-memory cost of a value in bytes.
// Estimates only need to be consistent, not exact; the memory layer uses
// them to enforce its budget.
type SizeEstimator func(value any) int64

// DefaultSizeEstimator sizes strings by character count and charges a flat
// rate for everything else.
func DefaultSizeEstimator(value any) int64 {
	if s, ok := value.(string); ok {
		return entryOverhead + bytesPerRune*int64(utf8.RuneCountInString(s))
	}
	return defaultValueSize
}
