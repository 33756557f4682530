package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/flowforge/pipeline/metrics"
	"github.com/flowforge/pipeline/perr"
)

// RateLimiterConfig configures the sliding-window segmented rate limiter
// (spec §4.8).
type RateLimiterConfig struct {
	// Name identifies this policy for metrics and rejection errors.
	Name string

	// MaxPermits is the number of admissions allowed per Window.
	// Default: 100.
	MaxPermits int

	// Window is the sliding window duration. Default: 1 second.
	Window time.Duration

	// SegmentsPerWindow partitions Window into buckets; current
	// utilization is the sum of admissions over the most recent
	// SegmentsPerWindow buckets. Must be >= 2. Default: 10.
	SegmentsPerWindow int

	// QueueLimit bounds how many callers may wait for capacity once
	// MaxPermits is saturated. Default: 0 (no queueing).
	QueueLimit int
}

// RateLimiter implements sliding-window segmented rate limiting: Window
// is divided into SegmentsPerWindow equal buckets, each counting
// admissions that landed in it; current utilization is the sum of
// buckets whose start falls within the trailing Window.
type RateLimiter struct {
	config  RateLimiterConfig
	tracker *metrics.Tracker

	segmentDuration time.Duration

	mu          sync.Mutex
	lastSeg     int64 // absolute segment index last advanced to
	haveLastSeg bool
	counts      []int // counts[i] = admissions in absolute segment i mod n
	queued      int
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.MaxPermits <= 0 {
		config.MaxPermits = 100
	}
	if config.Window <= 0 {
		config.Window = time.Second
	}
	if config.SegmentsPerWindow < 2 {
		config.SegmentsPerWindow = 10
	}
	if config.Name == "" {
		config.Name = "rate-limiter"
	}

	segDur := config.Window / time.Duration(config.SegmentsPerWindow)
	if segDur <= 0 {
		segDur = time.Millisecond
	}

	return &RateLimiter{
		config:          config,
		tracker:         metrics.NewTracker(config.Name, string(PatternRateLimiter)),
		segmentDuration: segDur,
		counts:          make([]int, config.SegmentsPerWindow),
	}
}

func (rl *RateLimiter) Name() string    { return rl.config.Name }
func (rl *RateLimiter) Pattern() Pattern { return PatternRateLimiter }
func (rl *RateLimiter) Metrics() metrics.Snapshot {
	return rl.tracker.Snapshot()
}
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	rl.haveLastSeg = false
	rl.counts = make([]int, rl.config.SegmentsPerWindow)
	rl.mu.Unlock()
	rl.tracker.Reset()
}

// advanceLocked rolls the ring forward to now's absolute segment,
// zeroing every bucket that has aged out of the window. Caller must hold
// rl.mu. Returns the absolute segment index for now.
func (rl *RateLimiter) advanceLocked(now time.Time) int64 {
	n := int64(rl.config.SegmentsPerWindow)
	current := now.UnixNano() / int64(rl.segmentDuration)

	if !rl.haveLastSeg {
		rl.counts = make([]int, n)
		rl.lastSeg = current
		rl.haveLastSeg = true
		return current
	}

	advanced := current - rl.lastSeg
	if advanced <= 0 {
		return current // same segment, or clock moved backward
	}
	if advanced >= n {
		rl.counts = make([]int, n)
	} else {
		for i := int64(1); i <= advanced; i++ {
			rl.counts[(rl.lastSeg+i)%n] = 0
		}
	}
	rl.lastSeg = current
	return current
}

// utilizationLocked sums admissions across all tracked segments, having
// first cleared any that aged out of the window. Caller must hold rl.mu.
func (rl *RateLimiter) utilizationLocked(now time.Time) int {
	rl.advanceLocked(now)
	total := 0
	for _, c := range rl.counts {
		total += c
	}
	return total
}

// tryAdmitLocked admits one call if capacity remains, incrementing the
// current segment. Caller must hold rl.mu.
func (rl *RateLimiter) tryAdmitLocked(now time.Time) bool {
	current := rl.advanceLocked(now)
	total := 0
	for _, c := range rl.counts {
		total += c
	}
	if total >= rl.config.MaxPermits {
		return false
	}
	n := int64(rl.config.SegmentsPerWindow)
	idx := ((current % n) + n) % n
	rl.counts[idx]++
	return true
}

// Allow reports whether a call may be admitted right now, without
// queueing.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.tryAdmitLocked(time.Now())
}

// Acquire admits the call if capacity is available, else queues up to
// QueueLimit callers (oldest first) until a segment frees capacity, else
// rejects with a KindRejected RateLimited error.
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	if rl.Allow() {
		return nil
	}

	rl.mu.Lock()
	if rl.queued >= rl.config.QueueLimit {
		rl.mu.Unlock()
		return rateLimitedErr(rl.config.Name)
	}
	rl.queued++
	rl.mu.Unlock()

	defer func() {
		rl.mu.Lock()
		rl.queued--
		rl.mu.Unlock()
	}()

	ticker := time.NewTicker(rl.segmentDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if rl.Allow() {
				return nil
			}
		case <-ctx.Done():
			return perr.Cancelled(ctx.Err())
		}
	}
}

// Execute runs the operation if admitted by the rate limiter.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := rl.Acquire(ctx); err != nil {
		rl.tracker.RecordRejected()
		return err
	}

	start := time.Now()
	err := op(ctx)
	durMs := float64(time.Since(start).Milliseconds())
	if err != nil {
		rl.tracker.RecordFailure(durMs)
	} else {
		rl.tracker.RecordSuccess(durMs)
	}
	return err
}

// Utilization returns the current count of admissions within the
// trailing window, for observability.
func (rl *RateLimiter) Utilization() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.utilizationLocked(time.Now())
}

var _ Policy = (*RateLimiter)(nil)
