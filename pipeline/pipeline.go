// Package pipeline provides the executor that drives a Stage through
// interceptors, a behavior chain, caching, and concurrency admission,
// plus the composition wrappers (Map, Then, Filter, Branch, MultiBranch,
// Parallel, DataflowParallel, CachingPipeline) built on top of it.
package pipeline

import (
	"context"
	"time"

	"github.com/flowforge/pipeline/behavior"
	"github.com/flowforge/pipeline/cache"
	"github.com/flowforge/pipeline/intercept"
	"github.com/flowforge/pipeline/metrics"
	"github.com/flowforge/pipeline/perr"
	"github.com/flowforge/pipeline/pipectx"
	"github.com/flowforge/pipeline/stage"
	"github.com/flowforge/pipeline/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Pipeline is the executable contract every wrapper in this package
// implements: run input through to a typed output, given an execution
// budget via ctx and an optional parent Context to adopt.
type Pipeline[In, Out any] interface {
	Execute(ctx context.Context, input In, parent *pipectx.Context) (Out, error)
	Name() string
}

// CacheKeySelector computes a cache key for an input, returning
// ok=false to opt that input out of caching.
type CacheKeySelector[In any] func(in In) (key string, ok bool)

// ErrorHandler is a pipeline-level closure that may absorb an error and
// produce its own result; its return value is used as the final result
// when non-nil error handling takes this path (step 9c of Execute).
type ErrorHandler[Out any] func(ctx *pipectx.Context, err error) (Out, error)

type retryPolicyAdapter struct {
	maxRetries int
	delay      time.Duration
}

func (r retryPolicyAdapter) MaxRetries() int                          { return r.maxRetries }
func (r retryPolicyAdapter) CalculateDelay(attempt int) time.Duration { return r.delay }

// Executor is the concrete Pipeline built from a single (possibly
// AndThen-composed) Stage plus interceptors, behaviors, caching, and
// concurrency admission.
type Executor[In, Out any] struct {
	name     string
	metadata Metadata
	config   Configuration

	stage        stage.Stage[In, Out]
	interceptors *intercept.Chain
	contribs     []behavior.Contribution

	cacheKeySelector CacheKeySelector[In]
	resultCache      cache.Cache
	cachePolicy      cache.Policy

	errorHandler ErrorHandler[Out]

	tracker *metrics.Tracker

	// observer, stageTracer, and stageMetrics back TracingEnabled and
	// MetricsEnabled: without an Observer wired via WithObserver, those
	// flags stay inert since there is nothing to export through.
	observer     telemetry.Observer
	stageTracer  telemetry.Tracer
	stageMetrics telemetry.Metrics
}

// Option configures an Executor at construction time.
type Option[In, Out any] func(*Executor[In, Out])

// WithMetadata attaches descriptive Metadata.
func WithMetadata[In, Out any](m Metadata) Option[In, Out] {
	return func(e *Executor[In, Out]) { e.metadata = m }
}

// WithInterceptors registers interceptors, sorted into priority order.
func WithInterceptors[In, Out any](interceptors ...intercept.Interceptor) Option[In, Out] {
	return func(e *Executor[In, Out]) { e.interceptors = intercept.NewChain(interceptors...) }
}

// WithBehaviors registers behavior contributions; Resolve orders them
// at build time.
func WithBehaviors[In, Out any](contribs ...behavior.Contribution) Option[In, Out] {
	return func(e *Executor[In, Out]) { e.contribs = behavior.Resolve(contribs) }
}

// WithCache configures result caching using keySelector, a backing
// Cache, and an eviction Policy. Caching takes effect only when
// Configuration.CacheEnabled is also set.
func WithCache[In, Out any](keySelector CacheKeySelector[In], c cache.Cache, policy cache.Policy) Option[In, Out] {
	return func(e *Executor[In, Out]) {
		e.cacheKeySelector = keySelector
		e.resultCache = c
		e.cachePolicy = policy
	}
}

// WithErrorHandler registers a pipeline-level error-absorbing closure.
func WithErrorHandler[In, Out any](h ErrorHandler[Out]) Option[In, Out] {
	return func(e *Executor[In, Out]) { e.errorHandler = h }
}

// WithObserver wires a telemetry.Observer into the executor. Once set,
// Configuration.TracingEnabled gates a per-execution OTel span and
// Configuration.MetricsEnabled gates per-execution duration/error
// recording through the Observer's OTel meter; either flag is inert
// without an Observer to export through.
func WithObserver[In, Out any](obs telemetry.Observer) Option[In, Out] {
	return func(e *Executor[In, Out]) { e.observer = obs }
}

// New builds an Executor around s, applying config and opts.
func New[In, Out any](name string, s stage.Stage[In, Out], config Configuration, opts ...Option[In, Out]) *Executor[In, Out] {
	e := &Executor[In, Out]{
		name:         name,
		config:       config.Build(),
		stage:        s,
		interceptors: intercept.NewChain(),
		tracker:      metrics.NewTracker(name, "Pipeline"),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.observer != nil {
		if e.config.TracingEnabled {
			e.stageTracer = telemetry.TracerFromObserver(e.observer)
		}
		if e.config.MetricsEnabled {
			if m, err := telemetry.MetricsFromObserver(e.observer); err == nil {
				e.stageMetrics = m
			}
		}
	}
	return e
}

func (e *Executor[In, Out]) Name() string { return e.name }

// GetMetrics returns a snapshot of this pipeline's accumulated metrics.
func (e *Executor[In, Out]) GetMetrics() metrics.Snapshot {
	return e.tracker.Snapshot()
}

type cancelSignal struct{ ctx context.Context }

func (c cancelSignal) Requested() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

// Execute runs the 10-step sequence: build/adopt Context, cache check,
// admission, before-execution interceptors, the behavior chain wrapping
// stage iteration, after-execution interceptors, cache insert, and
// error handling per Configuration.ErrorStrategy.
func (e *Executor[In, Out]) Execute(ctx context.Context, input In, parent *pipectx.Context) (Out, error) {
	var zero Out

	// Step 1: build or adopt Context.
	pctx := parent
	if pctx == nil {
		pctx = pipectx.New(uuid.NewString(), e.name)
	}

	meta := telemetry.StageMeta{StageName: e.stage.Name(), PipelineID: pctx.PipelineID(), PipelineName: e.name}
	var span trace.Span
	if e.stageTracer != nil {
		ctx, span = e.stageTracer.StartSpan(ctx, meta)
	}

	var execErr error
	if e.stageTracer != nil {
		defer func() { e.stageTracer.EndSpan(span, execErr) }()
	}

	pctx.SetCancelSignal(cancelSignal{ctx: ctx})
	pctx.SetInput(input)
	pctx.StartExecution()

	start := time.Now()
	recordMetrics := func(err error) {
		if e.stageMetrics != nil {
			e.stageMetrics.RecordExecution(ctx, meta, time.Since(start), err)
		}
	}

	// Step 2: cache check.
	var cacheKey string
	cacheable := false
	if e.config.CacheEnabled && e.cacheKeySelector != nil && e.resultCache != nil {
		if key, ok := e.cacheKeySelector(input); ok {
			cacheKey = key
			cacheable = true
			if v, hit := e.resultCache.Get(ctx, cacheKey); hit {
				if out, ok := v.(Out); ok {
					e.tracker.RecordSuccess(0)
					recordMetrics(nil)
					return out, nil
				}
			}
		}
	}

	// Step 3: admission.
	if e.config.ConcurrencySemaphore != nil {
		if err := e.config.ConcurrencySemaphore.Acquire(ctx, 1); err != nil {
			e.tracker.RecordFailure(0)
			execErr = perr.Cancelled(err)
			recordMetrics(execErr)
			return zero, execErr
		}
		defer e.config.ConcurrencySemaphore.Release(1)
	}

	// Step 4: before-execution interceptors.
	e.interceptors.RunBeforeExecution(pctx)

	// Step 5: behavior chain wrapping stage iteration.
	terminal := behavior.NextFunc(func(c *pipectx.Context) (any, error) {
		c.SetCurrentStage(e.stage.Name())
		e.interceptors.RunBeforeStage(c, e.stage.Name())
		out, err := e.stage.Process(input, c)
		e.interceptors.RunAfterStage(c, e.stage.Name())
		if err != nil {
			return nil, err
		}
		c.MarkStageCompleted(0)
		return out, nil
	})

	decorators := behavior.Decorators{}
	if e.config.MaxRetries > 0 {
		decorators.RetryPolicy = retryPolicyAdapter{maxRetries: e.config.MaxRetries, delay: e.config.RetryDelay}
	}
	if e.config.DefaultTimeout > 0 {
		decorators.Timeout = e.config.DefaultTimeout
	}
	chain := behavior.BuildWithDecorators(terminal, e.contribs, decorators)

	result, err := chain.Proceed(pctx)
	elapsedMs := float64(time.Since(start).Microseconds()) / 1000.0

	if err != nil {
		out, herr := e.handleError(ctx, pctx, err, elapsedMs, cacheable, cacheKey)
		execErr = herr
		recordMetrics(herr)
		return out, herr
	}

	out, ok := result.(Out)
	if e.config.ValidationEnabled && !ok {
		verr := perr.Validation(e.name, "pipeline result failed output-type validation")
		out, err = e.handleError(ctx, pctx, verr, elapsedMs, cacheable, cacheKey)
		execErr = err
		recordMetrics(err)
		return out, err
	}

	// Step 6: after-execution interceptors.
	e.interceptors.RunAfterExecution(pctx)
	pctx.SetResult(out)
	pctx.EndExecution()

	// Step 7: cache insert.
	if cacheable && e.resultCache != nil {
		ttl := e.config.DefaultCacheDuration
		if e.cachePolicy.DefaultTTL > 0 {
			ttl = e.cachePolicy.EffectiveTTL(ttl)
		}
		e.resultCache.Set(ctx, cacheKey, out, ttl)
	}

	e.tracker.RecordSuccess(elapsedMs)
	recordMetrics(nil)
	return out, nil
}

func (e *Executor[In, Out]) handleError(ctx context.Context, pctx *pipectx.Context, err error, elapsedMs float64, cacheable bool, cacheKey string) (Out, error) {
	var zero Out

	// Step 9a.
	pctx.SetException(err)

	// Step 9b.
	if handled := e.interceptors.RunOnError(pctx, err); handled {
		out, _ := pctx.Result().(Out)
		if cacheable && e.resultCache != nil {
			e.resultCache.Set(ctx, cacheKey, out, e.config.DefaultCacheDuration)
		}
		e.tracker.RecordSuccess(elapsedMs)
		return out, nil
	}

	// Step 9c.
	if e.errorHandler != nil {
		out, herr := e.errorHandler(pctx, err)
		if herr == nil {
			e.tracker.RecordSuccess(elapsedMs)
		} else {
			e.tracker.RecordFailure(elapsedMs)
		}
		return out, herr
	}

	// Step 9d.
	e.tracker.RecordFailure(elapsedMs)
	switch e.config.ErrorStrategy {
	case Continue:
		if e.observer != nil {
			e.observer.Logger().Warn(ctx, "error suppressed by Continue strategy",
				telemetry.Field{Key: "pipeline.name", Value: e.Name()},
				telemetry.Field{Key: "error", Value: err.Error()})
		}
		return zero, nil
	case DeadLetter:
		if !e.config.DeadLetterEnabled {
			return zero, err
		}
		pctx.SetProperty(pipectx.KeyDeadLetter, true)
		pctx.SetProperty(pipectx.KeyDeadLetterReason, err.Error())
		return zero, perr.DeadLetter(err)
	case Retry:
		return zero, err
	default: // FailFast, Custom
		return zero, err
	}
}
