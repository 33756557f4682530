package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/flowforge/pipeline/metrics"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally, sampling
	// outcomes into the rolling window.
	StateClosed State = iota
	// StateOpen means the circuit is blocking all requests.
	StateOpen
	// StateHalfOpen means one trial call is being let through to probe
	// recovery.
	StateHalfOpen
	// StateIsolated is a manual override: only Reset restores Closed.
	StateIsolated
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	case StateIsolated:
		return "Isolated"
	default:
		return "Unknown"
	}
}

// CircuitBreakerConfig configures the windowed failure-rate circuit
// breaker (spec §4.8).
type CircuitBreakerConfig struct {
	// Name identifies this breaker for metrics and rejection errors.
	Name string

	// FailureRateThreshold in (0,1]. Once CallsInWindow >= MinimumThroughput
	// and the failure ratio reaches this threshold, the circuit opens.
	// Default: 0.5
	FailureRateThreshold float64

	// MinimumThroughput is the number of calls that must land in the
	// sampling window before the failure rate is evaluated.
	// Default: 10
	MinimumThroughput int

	// SamplingWindow bounds how far back outcomes are counted toward the
	// failure ratio. Default: 10 seconds.
	SamplingWindow time.Duration

	// BreakDuration is how long the circuit stays Open before admitting a
	// single HalfOpen probe. Default: 30 seconds.
	BreakDuration time.Duration

	// OnStateChange is called when the circuit state changes.
	OnStateChange func(from, to State)

	// IsFailure determines if an error should count as a failure.
	// Default: all non-nil errors are failures.
	IsFailure func(err error) bool
}

type outcome struct {
	at      time.Time
	success bool
}

// CircuitBreaker implements a windowed failure-rate circuit breaker.
type CircuitBreaker struct {
	config  CircuitBreakerConfig
	tracker *metrics.Tracker

	mu         sync.Mutex
	state      State
	openedAt   time.Time
	outcomes   []outcome // ring of recent outcomes within SamplingWindow
	halfOpenUp bool      // a HalfOpen probe is currently in flight
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureRateThreshold <= 0 || config.FailureRateThreshold > 1 {
		config.FailureRateThreshold = 0.5
	}
	if config.MinimumThroughput <= 0 {
		config.MinimumThroughput = 10
	}
	if config.SamplingWindow <= 0 {
		config.SamplingWindow = 10 * time.Second
	}
	if config.BreakDuration <= 0 {
		config.BreakDuration = 30 * time.Second
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	if config.Name == "" {
		config.Name = "circuit-breaker"
	}

	return &CircuitBreaker{
		config:  config,
		tracker: metrics.NewTracker(config.Name, string(PatternCircuitBreaker)),
		state:   StateClosed,
	}
}

func (cb *CircuitBreaker) Name() string         { return cb.config.Name }
func (cb *CircuitBreaker) Pattern() Pattern      { return PatternCircuitBreaker }
func (cb *CircuitBreaker) Metrics() metrics.Snapshot {
	return cb.tracker.Snapshot()
}

// Execute runs the operation through the circuit breaker.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		cb.tracker.RecordRejected()
		return err
	}

	start := time.Now()
	err := op(ctx)
	cb.afterRequest(err)

	durMs := float64(time.Since(start).Milliseconds())
	if cb.config.IsFailure(err) {
		cb.tracker.RecordFailure(durMs)
	} else {
		cb.tracker.RecordSuccess(durMs)
	}
	return err
}

// State returns the current circuit state, lazily applying the
// Open->HalfOpen transition if BreakDuration has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

// Isolate manually forces the circuit Open until Reset is called.
func (cb *CircuitBreaker) Isolate() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	old := cb.state
	cb.state = StateIsolated
	if old != StateIsolated && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(old, StateIsolated)
	}
}

// Reset restores Closed state and clears the sampling window.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	old := cb.state
	cb.state = StateClosed
	cb.outcomes = nil
	cb.halfOpenUp = false

	if old != StateClosed && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(old, StateClosed)
	}
	cb.tracker.Reset()
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentStateLocked() {
	case StateOpen, StateIsolated:
		return circuitOpenErr(cb.config.Name)
	case StateHalfOpen:
		if cb.halfOpenUp {
			return circuitOpenErr(cb.config.Name)
		}
		cb.halfOpenUp = true
	}
	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	isFailure := cb.config.IsFailure(err)
	old := cb.state

	switch cb.state {
	case StateHalfOpen:
		cb.halfOpenUp = false
		if isFailure {
			cb.openLocked()
		} else {
			cb.state = StateClosed
			cb.outcomes = nil
		}
	case StateClosed:
		now := time.Now()
		cb.outcomes = append(cb.outcomes, outcome{at: now, success: !isFailure})
		cb.outcomes = pruneOutcomes(cb.outcomes, now, cb.config.SamplingWindow)

		if len(cb.outcomes) >= cb.config.MinimumThroughput {
			failures := 0
			for _, o := range cb.outcomes {
				if !o.success {
					failures++
				}
			}
			ratio := float64(failures) / float64(len(cb.outcomes))
			if ratio >= cb.config.FailureRateThreshold {
				cb.openLocked()
			}
		}
	}

	if old != cb.state && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(old, cb.state)
	}
}

func (cb *CircuitBreaker) openLocked() {
	cb.state = StateOpen
	cb.openedAt = time.Now()
	cb.outcomes = nil
}

// currentStateLocked must be called with cb.mu held. It applies the
// Open->HalfOpen transition once BreakDuration has elapsed.
func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.config.BreakDuration {
		cb.state = StateHalfOpen
		cb.halfOpenUp = false
		if cb.config.OnStateChange != nil {
			cb.config.OnStateChange(StateOpen, StateHalfOpen)
		}
	}
	return cb.state
}

func pruneOutcomes(outcomes []outcome, now time.Time, window time.Duration) []outcome {
	cutoff := now.Add(-window)
	i := 0
	for i < len(outcomes) && outcomes[i].at.Before(cutoff) {
		i++
	}
	if i == 0 {
		return outcomes
	}
	return append([]outcome(nil), outcomes[i:]...)
}

var _ Policy = (*CircuitBreaker)(nil)
