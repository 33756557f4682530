package stage

import (
	"fmt"
	"sync"
	"time"

	"github.com/flowforge/pipeline/metrics"
	"github.com/flowforge/pipeline/pipectx"
)

// StageMetrics is a metrics.Snapshot extended with the min/max
// execution times the stage-level MetricsStage additionally tracks.
type StageMetrics struct {
	metrics.Snapshot
	MinExecutionMs float64
	MaxExecutionMs float64
}

// MetricsStage wraps an inner stage with a metrics.Tracker, recording
// success/failure counts, rolling average, and min/max execution time.
type MetricsStage[In, Out any] struct {
	inner   Stage[In, Out]
	tracker *metrics.Tracker

	minMaxMu sync.Mutex
	minMs    float64
	maxMs    float64
	seen     bool
}

// WithMetrics wraps inner with a dedicated metrics tracker.
func WithMetrics[In, Out any](inner Stage[In, Out]) *MetricsStage[In, Out] {
	return &MetricsStage[In, Out]{
		inner:   inner,
		tracker: metrics.NewTracker(inner.Name(), "Stage"),
	}
}

func (m *MetricsStage[In, Out]) Process(in In, ctx *pipectx.Context) (Out, error) {
	start := time.Now()
	out, err := m.inner.Process(in, ctx)
	elapsedMs := float64(time.Since(start).Microseconds()) / 1000.0

	if err != nil {
		m.tracker.RecordFailure(elapsedMs)
	} else {
		m.tracker.RecordSuccess(elapsedMs)
	}
	m.recordMinMax(elapsedMs)
	return out, err
}

func (m *MetricsStage[In, Out]) recordMinMax(sampleMs float64) {
	m.minMaxMu.Lock()
	defer m.minMaxMu.Unlock()
	if !m.seen {
		m.minMs, m.maxMs, m.seen = sampleMs, sampleMs, true
		return
	}
	if sampleMs < m.minMs {
		m.minMs = sampleMs
	}
	if sampleMs > m.maxMs {
		m.maxMs = sampleMs
	}
}

func (m *MetricsStage[In, Out]) Name() string {
	return fmt.Sprintf("%s (Metrics)", m.inner.Name())
}

// GetMetrics returns a snapshot of this stage's accumulated metrics.
func (m *MetricsStage[In, Out]) GetMetrics() StageMetrics {
	m.minMaxMu.Lock()
	minMs, maxMs := m.minMs, m.maxMs
	m.minMaxMu.Unlock()

	return StageMetrics{
		Snapshot:       m.tracker.Snapshot(),
		MinExecutionMs: minMs,
		MaxExecutionMs: maxMs,
	}
}
