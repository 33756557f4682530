package resilience

import (
	"context"
	"time"

	"github.com/flowforge/pipeline/metrics"
)

// TimeoutStrategy selects how a timeout is enforced against a
// non-cooperative action.
type TimeoutStrategy int

const (
	// TimeoutOptimistic links the provided cancellation token to a timer;
	// the action must cooperatively observe ctx.Done() to actually stop.
	TimeoutOptimistic TimeoutStrategy = iota
	// TimeoutPessimistic races the call against the timer; on timeout the
	// goroutine running op is abandoned and its eventual result, if any,
	// is discarded.
	TimeoutPessimistic
)

// TimeoutConfig configures the timeout wrapper.
type TimeoutConfig struct {
	// Name identifies this policy for metrics.
	Name string

	// Duration is the maximum time allotted to the operation.
	// Default: 30 seconds.
	Duration time.Duration

	// Strategy selects enforcement. Default: TimeoutOptimistic (the zero
	// value).
	Strategy TimeoutStrategy
}

// Timeout wraps operations with a timeout.
type Timeout struct {
	config  TimeoutConfig
	tracker *metrics.Tracker
}

// NewTimeout creates a new timeout policy.
func NewTimeout(config TimeoutConfig) *Timeout {
	if config.Duration <= 0 {
		config.Duration = 30 * time.Second
	}
	if config.Name == "" {
		config.Name = "timeout"
	}

	return &Timeout{
		config:  config,
		tracker: metrics.NewTracker(config.Name, string(PatternTimeout)),
	}
}

func (t *Timeout) Name() string    { return t.config.Name }
func (t *Timeout) Pattern() Pattern { return PatternTimeout }
func (t *Timeout) Metrics() metrics.Snapshot {
	return t.tracker.Snapshot()
}
func (t *Timeout) Reset() { t.tracker.Reset() }

// Execute runs the operation with a timeout.
//
// Both strategies link ctx to a deadline so a cooperative action observes
// cancellation identically; they differ only in whether Execute itself
// waits for op to return after the deadline fires. Optimistic assumes the
// caller's op reliably reacts to ctx.Done() and returns promptly once it
// does, so Execute simply awaits it. Pessimistic does not trust that and
// returns as soon as the deadline fires, abandoning op's goroutine.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.config.Duration)
	defer cancel()

	start := time.Now()

	switch t.config.Strategy {
	case TimeoutOptimistic:
		err := op(ctx)
		durMs := float64(time.Since(start).Milliseconds())
		if ctx.Err() == context.DeadlineExceeded {
			t.tracker.RecordTimeout()
			return timeoutErr(t.config.Name)
		}
		if err != nil {
			t.tracker.RecordFailure(durMs)
		} else {
			t.tracker.RecordSuccess(durMs)
		}
		return err

	default: // TimeoutPessimistic
		done := make(chan error, 1)
		go func() {
			done <- op(ctx)
		}()

		select {
		case err := <-done:
			durMs := float64(time.Since(start).Milliseconds())
			if err != nil {
				t.tracker.RecordFailure(durMs)
			} else {
				t.tracker.RecordSuccess(durMs)
			}
			return err
		case <-ctx.Done():
			t.tracker.RecordTimeout()
			return timeoutErr(t.config.Name)
		}
	}
}

// Config returns the timeout configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}

var _ Policy = (*Timeout)(nil)
