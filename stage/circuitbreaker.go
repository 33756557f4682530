package stage

import (
	"fmt"
	"sync"
	"time"

	"github.com/flowforge/pipeline/perr"
	"github.com/flowforge/pipeline/pipectx"
)

// CircuitState is a stage-level circuit breaker state. Distinct from
// resilience.CircuitBreaker, which tracks a rolling failure rate across
// a sampling window rather than consecutive failures.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "Closed"
	case CircuitOpen:
		return "Open"
	case CircuitHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

// CircuitBreakerStage opens after FailureThreshold consecutive
// failures, stays open for BreakDuration, then admits a single
// half-open probe: success closes it, failure re-opens it.
type CircuitBreakerStage[In, Out any] struct {
	inner             Stage[In, Out]
	failureThreshold  int
	breakDuration     time.Duration

	mu                 sync.Mutex
	state              CircuitState
	consecutiveFailures int
	openedAt           time.Time
}

// Breaker wraps inner with a consecutive-failure circuit breaker.
func Breaker[In, Out any](inner Stage[In, Out], failureThreshold int, breakDuration time.Duration) *CircuitBreakerStage[In, Out] {
	return &CircuitBreakerStage[In, Out]{
		inner:            inner,
		failureThreshold: failureThreshold,
		breakDuration:    breakDuration,
	}
}

func (c *CircuitBreakerStage[In, Out]) Process(in In, ctx *pipectx.Context) (Out, error) {
	var zero Out

	c.mu.Lock()
	switch c.state {
	case CircuitOpen:
		if time.Since(c.openedAt) >= c.breakDuration {
			c.state = CircuitHalfOpen
		} else {
			c.mu.Unlock()
			return zero, perr.Rejected(c.Name(), "circuit is open")
		}
	case CircuitHalfOpen:
		c.mu.Unlock()
		return zero, perr.Rejected(c.Name(), "circuit is half-open; probe in flight")
	}
	c.mu.Unlock()

	out, err := c.inner.Process(in, ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.consecutiveFailures++
		if c.state == CircuitHalfOpen || c.consecutiveFailures >= c.failureThreshold {
			c.state = CircuitOpen
			c.openedAt = time.Now()
		}
		return zero, err
	}

	c.consecutiveFailures = 0
	c.state = CircuitClosed
	return out, nil
}

func (c *CircuitBreakerStage[In, Out]) Name() string {
	return fmt.Sprintf("%s (CircuitBreaker)", c.inner.Name())
}

// State returns the breaker's current state.
func (c *CircuitBreakerStage[In, Out]) State() CircuitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
