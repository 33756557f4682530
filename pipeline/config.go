package pipeline

import (
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrorStrategy decides what the executor does when a run fails and no
// interceptor or error handler absorbs the error.
type ErrorStrategy int

const (
	// FailFast rethrows the error unchanged.
	FailFast ErrorStrategy = iota
	// Retry propagates the error so an enclosing retry behavior can
	// handle it; the executor itself never swallows it.
	Retry
	// Continue returns a type-appropriate zero value and a nil error,
	// logging the suppressed error through the Observer's logger when one
	// is set with WithObserver.
	Continue
	// DeadLetter, when Configuration.DeadLetterEnabled is set, tags the
	// context and rethrows a DeadLetter error wrapping the original;
	// otherwise it rethrows the error unchanged.
	DeadLetter
	// Custom rethrows unchanged, deferring entirely to the caller's own
	// error handler closure.
	Custom
)

func (s ErrorStrategy) String() string {
	switch s {
	case FailFast:
		return "FailFast"
	case Retry:
		return "Retry"
	case Continue:
		return "Continue"
	case DeadLetter:
		return "DeadLetter"
	case Custom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// Configuration holds the per-pipeline execution settings: concurrency
// admission, timeout/retry defaults, caching, and error handling.
type Configuration struct {
	// MaxConcurrency bounds concurrent executions via a semaphore.
	// <= 0 means unbounded.
	MaxConcurrency int

	DefaultTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration

	CacheEnabled         bool
	DefaultCacheDuration time.Duration
	MaxCacheSize         int

	ErrorStrategy ErrorStrategy

	ValidationEnabled bool
	MetricsEnabled    bool
	TracingEnabled    bool
	DeadLetterEnabled bool

	AsyncExecution bool

	// ConcurrencySemaphore is derived from MaxConcurrency by Build; a
	// caller-supplied value here is honored instead.
	ConcurrencySemaphore *semaphore.Weighted
}

// DefaultConfiguration returns synchronous, uncached, fail-fast
// defaults.
func DefaultConfiguration() Configuration {
	return Configuration{
		MaxConcurrency: 0,
		DefaultTimeout: 0,
		MaxRetries:     0,
		RetryDelay:     100 * time.Millisecond,
		ErrorStrategy:  FailFast,
		MetricsEnabled: true,
	}
}

// Build finalizes the configuration, deriving ConcurrencySemaphore from
// MaxConcurrency when one was not already supplied.
func (c Configuration) Build() Configuration {
	if c.ConcurrencySemaphore == nil && c.MaxConcurrency > 0 {
		c.ConcurrencySemaphore = semaphore.NewWeighted(int64(c.MaxConcurrency))
	}
	return c
}
