// Package metrics provides the counters + rolling-average tracker shared
// by stages, resilience policies, and the pipeline executor.
package metrics

import (
	"sync"
	"sync/atomic"
)

// Snapshot is a read of a Tracker's counters and rolling average. Each
// counter is loaded atomically on its own; the counters are not read
// together under one lock.
// Field names match the stable metrics schema every pattern reports.
type Snapshot struct {
	Name               string
	Pattern            string
	Total              int64
	Successful         int64
	Failed             int64
	Rejected           int64
	Timeout            int64
	Retried            int64
	Fallback           int64
	FallbackFailed     int64
	Compensation       int64
	CompensationFailed int64
	AvgExecutionMs     float64
}

// Tracker accumulates execution counters and a rolling average duration
// for one named, pattern-tagged component (a stage, a resilience policy,
// or a pipeline as a whole).
//
// Contract:
//   - Concurrency: safe for concurrent use; counters are atomic.
//   - Snapshot: loads each counter atomically, one after another, and
//     derives nothing beyond what's stored. A record that runs while a
//     Snapshot is taken can show in some counters and not yet in others.
type Tracker struct {
	name    string
	pattern string

	total              atomic.Int64
	successful         atomic.Int64
	failed             atomic.Int64
	rejected           atomic.Int64
	timeoutCount       atomic.Int64
	retried            atomic.Int64
	fallback           atomic.Int64
	fallbackFailed     atomic.Int64
	compensation       atomic.Int64
	compensationFailed atomic.Int64

	avgMu    sync.Mutex
	avgMs    float64
	avgCount int64
}

// NewTracker creates a Tracker for a named component of the given pattern
// (e.g. "CircuitBreaker", "Retry", "Sequential").
func NewTracker(name, pattern string) *Tracker {
	return &Tracker{name: name, pattern: pattern}
}

// RecordSuccess records one successful execution with its duration.
func (t *Tracker) RecordSuccess(durationMs float64) {
	t.total.Add(1)
	t.successful.Add(1)
	t.recordDuration(durationMs)
}

// RecordFailure records one failed (non-rejected) execution with its
// duration.
func (t *Tracker) RecordFailure(durationMs float64) {
	t.total.Add(1)
	t.failed.Add(1)
	t.recordDuration(durationMs)
}

// RecordRejected records an admission refusal. Per spec, rejections are a
// distinct metric from failures and do not affect the duration average.
func (t *Tracker) RecordRejected() {
	t.total.Add(1)
	t.rejected.Add(1)
}

// RecordTimeout records a deadline-exceeded execution.
func (t *Tracker) RecordTimeout() {
	t.timeoutCount.Add(1)
}

// RecordRetry records one retry attempt (not the initial attempt).
func (t *Tracker) RecordRetry() {
	t.retried.Add(1)
}

// RecordFallback records a fallback invocation, and whether it in turn
// succeeded.
func (t *Tracker) RecordFallback(success bool) {
	t.fallback.Add(1)
	if !success {
		t.fallbackFailed.Add(1)
	}
}

// RecordCompensation records a saga-style compensating action, and
// whether it succeeded.
func (t *Tracker) RecordCompensation(success bool) {
	t.compensation.Add(1)
	if !success {
		t.compensationFailed.Add(1)
	}
}

func (t *Tracker) recordDuration(sample float64) {
	t.avgMu.Lock()
	defer t.avgMu.Unlock()
	t.avgCount++
	t.avgMs = (t.avgMs*float64(t.avgCount-1) + sample) / float64(t.avgCount)
}

// Snapshot reads the rolling average and then each counter in turn.
func (t *Tracker) Snapshot() Snapshot {
	t.avgMu.Lock()
	avg := t.avgMs
	t.avgMu.Unlock()

	return Snapshot{
		Name:               t.name,
		Pattern:            t.pattern,
		Total:              t.total.Load(),
		Successful:         t.successful.Load(),
		Failed:             t.failed.Load(),
		Rejected:           t.rejected.Load(),
		Timeout:            t.timeoutCount.Load(),
		Retried:            t.retried.Load(),
		Fallback:           t.fallback.Load(),
		FallbackFailed:     t.fallbackFailed.Load(),
		Compensation:       t.compensation.Load(),
		CompensationFailed: t.compensationFailed.Load(),
		AvgExecutionMs:     avg,
	}
}

// Reset zeroes every counter and the rolling average.
func (t *Tracker) Reset() {
	t.total.Store(0)
	t.successful.Store(0)
	t.failed.Store(0)
	t.rejected.Store(0)
	t.timeoutCount.Store(0)
	t.retried.Store(0)
	t.fallback.Store(0)
	t.fallbackFailed.Store(0)
	t.compensation.Store(0)
	t.compensationFailed.Store(0)

	t.avgMu.Lock()
	t.avgMs = 0
	t.avgCount = 0
	t.avgMu.Unlock()
}
