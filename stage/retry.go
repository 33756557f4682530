package stage

import (
	"fmt"
	"time"

	"github.com/flowforge/pipeline/perr"
	"github.com/flowforge/pipeline/pipectx"
)

// RetryStage runs the inner stage up to MaxRetries+1 times, sleeping
// Delay between attempts, failing with perr.KindRetryExhausted after
// the final attempt.
type RetryStage[In, Out any] struct {
	inner      Stage[In, Out]
	maxRetries int
	delay      time.Duration
}

// Retry wraps inner with up to maxRetries retries, delay between
// attempts.
func Retry[In, Out any](inner Stage[In, Out], maxRetries int, delay time.Duration) *RetryStage[In, Out] {
	return &RetryStage[In, Out]{inner: inner, maxRetries: maxRetries, delay: delay}
}

func (r *RetryStage[In, Out]) Process(in In, ctx *pipectx.Context) (Out, error) {
	var (
		out     Out
		lastErr error
	)

	totalAttempts := r.maxRetries + 1
	for attempt := 1; attempt <= totalAttempts; attempt++ {
		ctx.SetProperty(r.inner.Name()+".Attempt", attempt)

		var err error
		out, err = r.inner.Process(in, ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt < totalAttempts && r.delay > 0 {
			time.Sleep(r.delay)
		}
	}

	var zero Out
	return zero, perr.RetryExhausted(totalAttempts, lastErr)
}

func (r *RetryStage[In, Out]) Name() string {
	return fmt.Sprintf("%s (Retry x%d)", r.inner.Name(), r.maxRetries)
}
