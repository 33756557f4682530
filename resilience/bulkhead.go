package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/flowforge/pipeline/metrics"
	"github.com/flowforge/pipeline/perr"
)

// BulkheadConfig configures the bulkhead (spec §4.8).
type BulkheadConfig struct {
	// Name identifies this policy for metrics and rejection errors.
	Name string

	// MaxConcurrentCalls is the maximum number of concurrent executions.
	// Default: 10.
	MaxConcurrentCalls int

	// MaxQueuedCalls bounds how many callers may wait for a slot once
	// MaxConcurrentCalls is saturated. Default: 0 (no queueing, fail
	// immediately when saturated).
	MaxQueuedCalls int

	// MaxWaitDuration is how long a queued caller waits before being
	// rejected. Default: no cap (wait until a slot frees or ctx is done).
	MaxWaitDuration time.Duration
}

// Bulkhead limits concurrent operations with a bounded wait queue.
type Bulkhead struct {
	config  BulkheadConfig
	tracker *metrics.Tracker

	mu        sync.Mutex
	active    int
	queued    int
	maxActive int
	slotFree  chan struct{} // buffered signal channel, one per free slot
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrentCalls <= 0 {
		config.MaxConcurrentCalls = 10
	}
	if config.Name == "" {
		config.Name = "bulkhead"
	}

	return &Bulkhead{
		config:   config,
		tracker:  metrics.NewTracker(config.Name, string(PatternBulkhead)),
		slotFree: make(chan struct{}, config.MaxConcurrentCalls),
	}
}

func (b *Bulkhead) Name() string    { return b.config.Name }
func (b *Bulkhead) Pattern() Pattern { return PatternBulkhead }
func (b *Bulkhead) Metrics() metrics.Snapshot {
	return b.tracker.Snapshot()
}
func (b *Bulkhead) Reset() {
	b.mu.Lock()
	b.maxActive = 0
	b.mu.Unlock()
	b.tracker.Reset()
}

// Acquire reserves a slot, queueing if the bulkhead is saturated and
// MaxQueuedCalls allows it. Returns a KindRejected error if both
// concurrency and queue capacity are exhausted, or if MaxWaitDuration
// elapses first.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	b.mu.Lock()
	if b.active < b.config.MaxConcurrentCalls {
		b.active++
		if b.active > b.maxActive {
			b.maxActive = b.active
		}
		b.mu.Unlock()
		return nil
	}
	if b.queued >= b.config.MaxQueuedCalls {
		b.mu.Unlock()
		return bulkheadRejectedErr(b.config.Name)
	}
	b.queued++
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.queued--
		b.mu.Unlock()
	}()

	var waitC <-chan time.Time
	if b.config.MaxWaitDuration > 0 {
		timer := time.NewTimer(b.config.MaxWaitDuration)
		defer timer.Stop()
		waitC = timer.C
	}

	for {
		select {
		case <-b.slotFree:
			b.mu.Lock()
			if b.active < b.config.MaxConcurrentCalls {
				b.active++
				if b.active > b.maxActive {
					b.maxActive = b.active
				}
				b.mu.Unlock()
				return nil
			}
			b.mu.Unlock()
			// Lost the race to another waiter; keep waiting.
		case <-waitC:
			return bulkheadRejectedErr(b.config.Name)
		case <-ctx.Done():
			return perr.Cancelled(ctx.Err())
		}
	}
}

// Release frees a slot, waking one queued waiter if any.
func (b *Bulkhead) Release() {
	b.mu.Lock()
	if b.active > 0 {
		b.active--
	}
	b.mu.Unlock()

	select {
	case b.slotFree <- struct{}{}:
	default:
	}
}

// Execute runs the operation within the bulkhead.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		b.tracker.RecordRejected()
		return err
	}
	defer b.Release()

	start := time.Now()
	err := op(ctx)
	durMs := float64(time.Since(start).Milliseconds())
	if err != nil {
		b.tracker.RecordFailure(durMs)
	} else {
		b.tracker.RecordSuccess(durMs)
	}
	return err
}

// BulkheadStats reports instantaneous occupancy, useful for health checks.
type BulkheadStats struct {
	Active        int
	MaxActive     int
	Queued        int
	MaxConcurrent int
	MaxQueued     int
}

// Stats returns current bulkhead occupancy.
func (b *Bulkhead) Stats() BulkheadStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BulkheadStats{
		Active:        b.active,
		MaxActive:     b.maxActive,
		Queued:        b.queued,
		MaxConcurrent: b.config.MaxConcurrentCalls,
		MaxQueued:     b.config.MaxQueuedCalls,
	}
}

var _ Policy = (*Bulkhead)(nil)
