package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Layer is a single cache tier. A layer reports absence through the Get
// boolean, not through an error; errors signal the layer itself failed.
// Implementations must be safe for concurrent use.
type Layer interface {
	Name() string
	Priority() int
	ExpectedLatency() time.Duration
	MaxSize() int64
	CurrentSize() int64
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context) error
}

// LayerInfo is a descriptive snapshot of one layer
type LayerInfo struct {
	Name            string
	Priority        int
	ExpectedLatency time.Duration
	MaxSize         int64
	CurrentSize     int64
}

// String formats the snapshot for logs
func (li LayerInfo) String() string {
	return fmt.Sprintf("%s p%d %s %s/%s",
		li.Name,
		li.Priority,
		li.ExpectedLatency,
		humanize.IBytes(uint64(li.CurrentSize)),
		humanize.IBytes(uint64(li.MaxSize)),
	)
}

// describeLayer snapshots a layer's descriptive fields
func describeLayer(l Layer) LayerInfo {
	return LayerInfo{
		Name:            l.Name(),
		Priority:        l.Priority(),
		ExpectedLatency: l.ExpectedLatency(),
		MaxSize:         l.MaxSize(),
		CurrentSize:     l.CurrentSize(),
	}
}
