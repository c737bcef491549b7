package monitor

// Waveform is a fixed-size ring of activity samples. The newest sample
// overwrites the oldest once the ring is full. It carries no lock of its
// own; the Monitor serializes all access behind its mutex.
type Waveform struct {
	samples []float64
	head    int // next write position
	filled  int // samples written, capped at capacity
}

// NewWaveform creates a ring holding up to capacity samples.
func NewWaveform(capacity int) *Waveform {
	if capacity <= 0 {
		capacity = DefaultWaveformSize
	}
	return &Waveform{
		samples: make([]float64, capacity),
	}
}

// Push appends a sample, overwriting the oldest once full.
func (w *Waveform) Push(sample float64) {
	w.samples[w.head] = sample
	w.head = (w.head + 1) % len(w.samples)
	if w.filled < len(w.samples) {
		w.filled++
	}
}

// Ordered returns the samples oldest first. The result is a copy.
func (w *Waveform) Ordered() []float64 {
	out := make([]float64, w.filled)
	if w.filled == 0 {
		return out
	}

	// oldest sits at head once the ring has wrapped
	start := 0
	if w.filled == len(w.samples) {
		start = w.head
	}
	for i := 0; i < w.filled; i++ {
		out[i] = w.samples[(start+i)%len(w.samples)]
	}
	return out
}

// Len returns the number of samples written so far.
func (w *Waveform) Len() int { return w.filled }

// Capacity returns the ring size.
func (w *Waveform) Capacity() int { return len(w.samples) }
