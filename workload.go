package main

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/cascade/cache"
)

const workloadWorkers = 4

// workload drives mixed cache traffic at a fixed rate so the dashboard has
// something to show. Key popularity follows a zipf curve, which keeps the
// fast layer hot and still leaks misses down the stack.
type workload struct {
	manager *cache.Manager
	limiter *rate.Limiter
	keys    int
	ttl     time.Duration
	runID   string
	ops     int64 // atomic
}

// newWorkload creates a driver issuing about opsPerSec operations per
// second over a key space of the given size.
func newWorkload(manager *cache.Manager, opsPerSec float64, keys int, ttl time.Duration) *workload {
	if opsPerSec <= 0 {
		opsPerSec = 50
	}
	if keys <= 0 {
		keys = 200
	}
	return &workload{
		manager: manager,
		limiter: rate.NewLimiter(rate.Limit(opsPerSec), 1),
		keys:    keys,
		ttl:     ttl,
		runID:   uuid.NewString(),
	}
}

// RunID identifies this workload run in logs and reports.
func (w *workload) RunID() string { return w.runID }

// Operations returns how many operations have been issued so far.
func (w *workload) Operations() int64 { return atomic.LoadInt64(&w.ops) }

// setRate retunes the limiter mid-run. Non-positive rates are ignored.
func (w *workload) setRate(opsPerSec float64) {
	if opsPerSec > 0 {
		w.limiter.SetLimit(rate.Limit(opsPerSec))
	}
}

// run issues traffic until ctx is done. Context cancellation is the normal
// way to stop and is not reported as an error.
func (w *workload) run(ctx context.Context) error {
	log.Debug("workload starting", "run_id", w.runID, "keys", w.keys, "workers", workloadWorkers)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workloadWorkers; i++ {
		seed := time.Now().UnixNano() + int64(i)
		g.Go(func() error {
			return w.worker(ctx, rand.New(rand.NewSource(seed))) //nolint:gosec
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("workload: %w", err)
	}
	log.Debug("workload stopped", "run_id", w.runID, "operations", w.Operations())
	return nil
}

// worker loops one traffic generator until ctx is done.
func (w *workload) worker(ctx context.Context, rng *rand.Rand) error {
	zipf := rand.NewZipf(rng, 1.2, 1, uint64(w.keys-1))

	for {
		if err := w.limiter.Wait(ctx); err != nil {
			// ctx expired, or the next slot lies past its deadline
			return nil
		}

		key := fmt.Sprintf("item-%04d", zipf.Uint64())
		atomic.AddInt64(&w.ops, 1)

		switch p := rng.Intn(100); {
		case p < 55:
			w.manager.Get(ctx, key)
		case p < 80:
			if err := w.manager.Set(ctx, key, payload(key, rng), w.ttl); err != nil {
				log.Warn("workload set failed", "key", key, "error", err)
			}
		case p < 95:
			if _, err := w.manager.GetOrCreate(ctx, key, func(context.Context) (any, error) {
				return payload(key, rng), nil
			}, w.ttl); err != nil {
				log.Warn("workload get-or-create failed", "key", key, "error", err)
			}
		default:
			if err := w.manager.Remove(ctx, key); err != nil {
				log.Warn("workload remove failed", "key", key, "error", err)
			}
		}
	}
}

// payload builds a value with a little size variety.
func payload(key string, rng *rand.Rand) string {
	return fmt.Sprintf("%s:%0*d", key, 16+rng.Intn(64), rng.Int63())
}
