package cache

import "testing"

func TestDefaultSizeEstimator(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int64
	}{
		{"empty string", "", 100},
		{"ascii string", "hello", 110},
		{"multibyte string", "héllo", 110}, // runes, not bytes
		{"int", 42, 500},
		{"struct", struct{}{}, 500},
		{"byte slice", []byte("data"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultSizeEstimator(tt.value); got != tt.want {
				t.Errorf("estimate(%v) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}
