package behavior

import (
	"time"

	"github.com/flowforge/pipeline/perr"
	"github.com/flowforge/pipeline/pipectx"
)

// RetryPolicy is the minimal contract WithRetry needs from a retry
// configuration: a retry count and a per-attempt backoff.
type RetryPolicy interface {
	MaxRetries() int
	CalculateDelay(attempt int) time.Duration
}

// WithRetry re-invokes next.Proceed up to policy.MaxRetries additional
// times, sleeping policy.CalculateDelay(attempt) between attempts.
func WithRetry(policy RetryPolicy) Behavior {
	return func(ctx *pipectx.Context, next Next) (any, error) {
		var (
			result  any
			lastErr error
		)

		totalAttempts := 1 + policy.MaxRetries()
		for attempt := 1; attempt <= totalAttempts; attempt++ {
			result, lastErr = next.Proceed(ctx)
			if lastErr == nil {
				return result, nil
			}
			if attempt < totalAttempts {
				time.Sleep(policy.CalculateDelay(attempt))
			}
		}
		return nil, perr.RetryExhausted(totalAttempts, lastErr)
	}
}

// WithTimeout races next.Proceed against duration, failing with
// perr.KindTimeout if the timer wins.
func WithTimeout(duration time.Duration) Behavior {
	return func(ctx *pipectx.Context, next Next) (any, error) {
		type outcome struct {
			result any
			err    error
		}
		done := make(chan outcome, 1)

		go func() {
			result, err := next.Proceed(ctx)
			done <- outcome{result: result, err: err}
		}()

		timer := time.NewTimer(duration)
		defer timer.Stop()

		select {
		case o := <-done:
			return o.result, o.err
		case <-timer.C:
			ctx.Cancel()
			return nil, perr.Timeout("behavior-chain")
		}
	}
}
