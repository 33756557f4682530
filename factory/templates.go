// Package factory provides pipeline configuration templates for common
// shapes (sequential, parallel, batch, saga, validation, ...) and a
// fluent Builder for assembling an Executor from stages, interceptors,
// behaviors, and caching.
package factory

import (
	"runtime"
	"time"

	"github.com/flowforge/pipeline/pipeline"
)

// Sequential returns a synchronous, single-in-flight configuration:
// MaxConcurrency=1, FailFast.
func Sequential() pipeline.Configuration {
	cfg := pipeline.DefaultConfiguration()
	cfg.MaxConcurrency = 1
	cfg.ErrorStrategy = pipeline.FailFast
	return cfg
}

// Parallel returns a configuration sized for fan-out work:
// MaxConcurrency = 2x CPU count, asynchronous.
func Parallel() pipeline.Configuration {
	cfg := pipeline.DefaultConfiguration()
	cfg.MaxConcurrency = 2 * runtime.NumCPU()
	cfg.AsyncExecution = true
	return cfg
}

// EventDriven returns an unbounded, asynchronous configuration suited to
// reacting to individual events.
func EventDriven() pipeline.Configuration {
	cfg := pipeline.DefaultConfiguration()
	cfg.AsyncExecution = true
	return cfg
}

// Batch returns a configuration bounded to batchSize concurrent items.
func Batch(batchSize int) pipeline.Configuration {
	cfg := pipeline.DefaultConfiguration()
	cfg.MaxConcurrency = batchSize
	return cfg
}

// Stream returns an unbounded, asynchronous, continuously-running
// configuration.
func Stream() pipeline.Configuration {
	cfg := pipeline.DefaultConfiguration()
	cfg.AsyncExecution = true
	cfg.MetricsEnabled = true
	return cfg
}

// Validation returns a configuration for input-gated pipelines:
// validation enabled, FailFast on a bad input.
func Validation() pipeline.Configuration {
	cfg := pipeline.DefaultConfiguration()
	cfg.ValidationEnabled = true
	cfg.ErrorStrategy = pipeline.FailFast
	return cfg
}

// Transformation returns a configuration for pure data transforms, with
// caching enabled by default.
func Transformation() pipeline.Configuration {
	cfg := pipeline.DefaultConfiguration()
	cfg.CacheEnabled = true
	cfg.DefaultCacheDuration = 5 * time.Minute
	return cfg
}

// Saga returns a reliability-oriented configuration: retries, tracing,
// and dead-letter routing enabled.
func Saga() pipeline.Configuration {
	cfg := pipeline.DefaultConfiguration()
	cfg.MaxRetries = 3
	cfg.RetryDelay = 200 * time.Millisecond
	cfg.TracingEnabled = true
	cfg.DeadLetterEnabled = true
	cfg.ErrorStrategy = pipeline.DeadLetter
	return cfg
}

// Conditional returns a configuration suited to branch/multi-branch
// pipelines: synchronous, FailFast.
func Conditional() pipeline.Configuration {
	cfg := pipeline.DefaultConfiguration()
	cfg.ErrorStrategy = pipeline.FailFast
	return cfg
}
