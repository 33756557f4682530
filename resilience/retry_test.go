package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowforge/pipeline/perr"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	r := NewRetry(RetryConfig{
		Name:        "test",
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Strategy:    BackoffFixed,
	})

	attempts := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errBoom
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRetryExhaustsAndWrapsLastError(t *testing.T) {
	r := NewRetry(RetryConfig{
		Name:        "test",
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		Strategy:    BackoffFixed,
	})

	attempts := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return errBoom
	})

	if attempts != 3 { // 1 initial + 2 retries
		t.Fatalf("attempts = %d, want 3", attempts)
	}

	var pe *perr.Error
	if !errors.As(err, &pe) || pe.Kind != perr.KindRetryExhausted {
		t.Fatalf("got %v, want KindRetryExhausted", err)
	}
	if !errors.Is(err, errBoom) {
		t.Fatal("expected wrapped error chain to reach errBoom")
	}
}

func TestRetryDoesNotRetryNonRetryableErrors(t *testing.T) {
	r := NewRetry(RetryConfig{
		Name:            "test",
		MaxAttempts:     3,
		BaseDelay:       time.Millisecond,
		RetryableErrors: func(err error) bool { return false },
	})

	attempts := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return errBoom
	})

	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (no retries)", attempts)
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want errBoom returned directly", err)
	}
}

func TestRetryDoesNotRetryRejectedByDefault(t *testing.T) {
	r := NewRetry(RetryConfig{Name: "test", MaxAttempts: 3, BaseDelay: time.Millisecond})

	rejected := perr.Rejected("circuit-breaker", "open")
	attempts := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return rejected
	})

	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (Rejected must not be retried by default)", attempts)
	}
	if err != rejected {
		t.Fatalf("got %v, want the rejected error surfaced unwrapped", err)
	}
}

func TestRetryDelayShapeExponentialNoJitter(t *testing.T) {
	r := NewRetry(RetryConfig{
		Name:       "test",
		BaseDelay:  10 * time.Millisecond,
		Multiplier: 2.0,
		MaxDelay:   time.Second,
		Strategy:   BackoffExponential,
		UseJitter:  false,
	})

	if got := r.calculateDelay(1); got != 10*time.Millisecond {
		t.Fatalf("attempt 1 delay = %v, want 10ms", got)
	}
	if got := r.calculateDelay(2); got != 20*time.Millisecond {
		t.Fatalf("attempt 2 delay = %v, want 20ms", got)
	}
	if got := r.calculateDelay(3); got != 40*time.Millisecond {
		t.Fatalf("attempt 3 delay = %v, want 40ms", got)
	}
}

func TestRetryDelayCappedAtMaxDelay(t *testing.T) {
	r := NewRetry(RetryConfig{
		Name:       "test",
		BaseDelay:  10 * time.Millisecond,
		Multiplier: 10.0,
		MaxDelay:   50 * time.Millisecond,
		Strategy:   BackoffExponential,
		UseJitter:  false,
	})

	if got := r.calculateDelay(5); got != 50*time.Millisecond {
		t.Fatalf("delay = %v, want capped at 50ms", got)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	r := NewRetry(RetryConfig{Name: "test", MaxAttempts: 5, BaseDelay: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := r.Execute(ctx, func(ctx context.Context) error {
		attempts++
		return errBoom
	})

	var pe *perr.Error
	if !errors.As(err, &pe) || pe.Kind != perr.KindCancelled {
		t.Fatalf("got %v, want KindCancelled", err)
	}
}
