package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/flowforge/pipeline/metrics"
	"github.com/flowforge/pipeline/perr"
)

// BackoffStrategy defines how delays increase between retries.
type BackoffStrategy int

const (
	// BackoffFixed uses BaseDelay for every retry.
	BackoffFixed BackoffStrategy = iota
	// BackoffLinear uses BaseDelay * attempt.
	BackoffLinear
	// BackoffExponential uses BaseDelay * Multiplier^(attempt-1).
	BackoffExponential
)

// RetryConfig configures the retry behavior (spec §4.8).
type RetryConfig struct {
	// Name identifies this policy for metrics.
	Name string

	// MaxAttempts is the number of retries performed after the initial
	// attempt fails (i.e. total attempts = 1 + MaxAttempts).
	// Default: 2 (three total attempts).
	MaxAttempts int

	// BaseDelay is the delay before the first retry. Default: 100ms.
	BaseDelay time.Duration

	// MaxDelay caps the delay between retries. Default: 30s.
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier for exponential backoff.
	// Default: 2.0.
	Multiplier float64

	// Strategy selects the backoff shape. Default: BackoffExponential.
	Strategy BackoffStrategy

	// UseJitter multiplies each computed delay by a uniform random factor
	// in [0.75, 1.25]. Default: false (no jitter).
	UseJitter bool

	// RetryableErrors restricts retries to errors matching this
	// predicate. Default (nil): all non-nil errors are retryable. A
	// KindRejected error (circuit open, bulkhead full, rate limited) is
	// never retried unless this predicate explicitly returns true for it.
	RetryableErrors func(err error) bool

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry implements retry with backoff and jitter.
type Retry struct {
	config  RetryConfig
	tracker *metrics.Tracker
}

// NewRetry creates a new retry policy.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 2
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.Name == "" {
		config.Name = "retry"
	}
	// UseJitter is left as given: a bool cannot tell "unset" from
	// "false", so jitter is applied only when the caller sets it to true.

	return &Retry{
		config:  config,
		tracker: metrics.NewTracker(config.Name, string(PatternRetry)),
	}
}

func (r *Retry) Name() string    { return r.config.Name }
func (r *Retry) Pattern() Pattern { return PatternRetry }
func (r *Retry) Metrics() metrics.Snapshot {
	return r.tracker.Snapshot()
}
func (r *Retry) Reset() { r.tracker.Reset() }

// isRetryable reports whether err should trigger a retry. Rejected errors
// (circuit open / bulkhead full / rate limited) are never retried unless
// explicitly whitelisted, per spec §7.
func (r *Retry) isRetryable(err error) bool {
	if kind, ok := perr.KindOf(err); ok && kind == perr.KindRejected {
		if r.config.RetryableErrors == nil {
			return false
		}
		return r.config.RetryableErrors(err)
	}
	if r.config.RetryableErrors == nil {
		return true
	}
	return r.config.RetryableErrors(err)
}

// Execute runs the operation with retry logic. Total attempts performed
// is 1 + MaxAttempts unless an earlier attempt succeeds or returns a
// non-retryable error.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	totalAttempts := 1 + r.config.MaxAttempts
	var lastErr error

	for attempt := 1; attempt <= totalAttempts; attempt++ {
		start := time.Now()
		err := op(ctx)
		durMs := float64(time.Since(start).Milliseconds())

		if err == nil {
			r.tracker.RecordSuccess(durMs)
			if attempt > 1 {
				// successful_after_retry is folded into the success
				// counter; RecordRetry already counted the prior
				// attempts as retries.
			}
			return nil
		}
		r.tracker.RecordFailure(durMs)
		lastErr = err

		if !r.isRetryable(err) {
			return err
		}
		if attempt >= totalAttempts {
			break
		}

		delay := r.calculateDelay(attempt)
		r.tracker.RecordRetry()

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return perr.Cancelled(ctx.Err())
		case <-time.After(delay):
		}
	}

	return perr.RetryExhausted(totalAttempts, lastErr)
}

func (r *Retry) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch r.config.Strategy {
	case BackoffFixed:
		delay = r.config.BaseDelay
	case BackoffLinear:
		delay = r.config.BaseDelay * time.Duration(attempt)
	case BackoffExponential:
		fallthrough
	default:
		multiplier := math.Pow(r.config.Multiplier, float64(attempt-1))
		delay = time.Duration(float64(r.config.BaseDelay) * multiplier)
	}

	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}

	if r.config.UseJitter && delay > 0 {
		// Uniform factor in [0.75, 1.25].
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		factor := 0.75 + rand.Float64()*0.5
		delay = time.Duration(float64(delay) * factor)
	}

	return delay
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

var _ Policy = (*Retry)(nil)
