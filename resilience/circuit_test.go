package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestCircuitBreakerOpensOnFailureRate(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:                 "test",
		FailureRateThreshold: 0.5,
		MinimumThroughput:    4,
		SamplingWindow:       time.Minute,
		BreakDuration:        50 * time.Millisecond,
	})
	ctx := context.Background()

	fail := func(ctx context.Context) error { return errBoom }
	for i := 0; i < 4; i++ {
		_ = cb.Execute(ctx, fail)
	}

	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want Open after 4/4 failures >= threshold", cb.State())
	}

	err := cb.Execute(ctx, func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:                 "test",
		FailureRateThreshold: 0.5,
		MinimumThroughput:    2,
		SamplingWindow:       time.Minute,
		BreakDuration:        10 * time.Millisecond,
	})
	ctx := context.Background()
	fail := func(ctx context.Context) error { return errBoom }

	cb.Execute(ctx, fail)
	cb.Execute(ctx, fail)
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want Open", cb.State())
	}

	time.Sleep(15 * time.Millisecond)

	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %v, want HalfOpen after BreakDuration", cb.State())
	}

	err := cb.Execute(ctx, func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("expected the HalfOpen probe to be admitted, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want Closed after successful probe", cb.State())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:                 "test",
		FailureRateThreshold: 0.5,
		MinimumThroughput:    2,
		SamplingWindow:       time.Minute,
		BreakDuration:        10 * time.Millisecond,
	})
	ctx := context.Background()
	fail := func(ctx context.Context) error { return errBoom }

	cb.Execute(ctx, fail)
	cb.Execute(ctx, fail)
	time.Sleep(15 * time.Millisecond)

	cb.Execute(ctx, fail) // the HalfOpen probe itself fails

	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want Open after failed probe", cb.State())
	}
}

func TestCircuitBreakerIsolateAndReset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "test"})
	cb.Isolate()

	if cb.State() != StateIsolated {
		t.Fatalf("state = %v, want Isolated", cb.State())
	}

	err := cb.Execute(context.Background(), func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("isolated circuit should reject, got %v", err)
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want Closed after Reset", cb.State())
	}
}

func TestCircuitBreakerRejectionIsDistinctFromFailure(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:                 "test",
		FailureRateThreshold: 0.5,
		MinimumThroughput:    1,
		BreakDuration:        time.Hour,
	})
	ctx := context.Background()

	cb.Execute(ctx, func(ctx context.Context) error { return errBoom })
	cb.Execute(ctx, func(ctx context.Context) error { return nil }) // rejected, circuit now open

	snap := cb.Metrics()
	if snap.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", snap.Failed)
	}
	if snap.Rejected != 1 {
		t.Fatalf("Rejected = %d, want 1", snap.Rejected)
	}
}
