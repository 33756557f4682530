package factory

import (
	"time"

	"github.com/flowforge/pipeline/behavior"
	"github.com/flowforge/pipeline/cache"
	"github.com/flowforge/pipeline/intercept"
	"github.com/flowforge/pipeline/perr"
	"github.com/flowforge/pipeline/pipectx"
	"github.com/flowforge/pipeline/pipeline"
	"github.com/flowforge/pipeline/stage"
	"github.com/google/uuid"
)

// Builder fluently assembles an Executor[In, Out]. Build fails if
// neither a stage nor any behaviors were added - an empty pipeline has
// nothing to execute.
type Builder[In, Out any] struct {
	name     string
	config   pipeline.Configuration
	metadata pipeline.Metadata

	st           stage.Stage[In, Out]
	interceptors []intercept.Interceptor
	contribs     []behavior.Contribution
	errorHandler pipeline.ErrorHandler[Out]

	cacheKeySelector pipeline.CacheKeySelector[In]
	resultCache      cache.Cache
	cachePolicy      cache.Policy
	hasCache         bool
}

// New starts a Builder with name and a base configuration (typically one
// of the template functions in this package).
func New[In, Out any](name string, config pipeline.Configuration) *Builder[In, Out] {
	return &Builder[In, Out]{
		name:   name,
		config: config,
		metadata: pipeline.Metadata{
			ID:        uuid.NewString(),
			Name:      name,
			Version:   "1.0.0",
			CreatedAt: time.Time{},
			IsEnabled: true,
		},
	}
}

// NewSequential starts a Builder preconfigured with the Sequential
// template.
func NewSequential[In, Out any](name string) *Builder[In, Out] {
	b := New[In, Out](name, Sequential())
	b.metadata.Type = pipeline.TypeSequential
	return b
}

// NewParallel starts a Builder preconfigured with the Parallel template.
func NewParallel[In, Out any](name string) *Builder[In, Out] {
	b := New[In, Out](name, Parallel())
	b.metadata.Type = pipeline.TypeParallel
	return b
}

// NewBatch starts a Builder preconfigured with the Batch template.
func NewBatch[In, Out any](name string, batchSize int) *Builder[In, Out] {
	b := New[In, Out](name, Batch(batchSize))
	b.metadata.Type = pipeline.TypeBatch
	return b
}

// NewSaga starts a Builder preconfigured with the Saga template.
func NewSaga[In, Out any](name string) *Builder[In, Out] {
	b := New[In, Out](name, Saga())
	b.metadata.Type = pipeline.TypeSaga
	return b
}

// NewValidation starts a Builder preconfigured with the Validation
// template.
func NewValidation[In, Out any](name string) *Builder[In, Out] {
	b := New[In, Out](name, Validation())
	b.metadata.Type = pipeline.TypeValidation
	return b
}

// NewTransformation starts a Builder preconfigured with the
// Transformation template.
func NewTransformation[In, Out any](name string) *Builder[In, Out] {
	b := New[In, Out](name, Transformation())
	b.metadata.Type = pipeline.TypeTransformation
	return b
}

// WithStage sets the stage the built Executor runs.
func (b *Builder[In, Out]) WithStage(s stage.Stage[In, Out]) *Builder[In, Out] {
	b.st = s
	return b
}

// WithInterceptor appends an interceptor.
func (b *Builder[In, Out]) WithInterceptor(ic intercept.Interceptor) *Builder[In, Out] {
	b.interceptors = append(b.interceptors, ic)
	return b
}

// WithBehavior appends a behavior contribution.
func (b *Builder[In, Out]) WithBehavior(c behavior.Contribution) *Builder[In, Out] {
	b.contribs = append(b.contribs, c)
	return b
}

// WithErrorHandler sets the pipeline-level error-absorbing closure.
func (b *Builder[In, Out]) WithErrorHandler(h pipeline.ErrorHandler[Out]) *Builder[In, Out] {
	b.errorHandler = h
	return b
}

// WithCache configures result caching; it takes effect only when the
// configuration's CacheEnabled is also set.
func (b *Builder[In, Out]) WithCache(keySelector pipeline.CacheKeySelector[In], c cache.Cache, policy cache.Policy) *Builder[In, Out] {
	b.cacheKeySelector = keySelector
	b.resultCache = c
	b.cachePolicy = policy
	b.hasCache = true
	return b
}

// WithDescription sets the built pipeline's descriptive metadata.
func (b *Builder[In, Out]) WithDescription(description string) *Builder[In, Out] {
	b.metadata.Description = description
	return b
}

// WithTags sets the built pipeline's metadata tags.
func (b *Builder[In, Out]) WithTags(tags ...string) *Builder[In, Out] {
	b.metadata.Tags = tags
	return b
}

// Build assembles the Executor, failing with perr.KindValidation if
// neither a stage nor any behaviors were configured.
func (b *Builder[In, Out]) Build() (*pipeline.Executor[In, Out], error) {
	if b.st == nil && len(b.contribs) == 0 {
		return nil, perr.Validation(b.name, "pipeline has no stages or behaviors configured")
	}

	var opts []pipeline.Option[In, Out]
	opts = append(opts, pipeline.WithMetadata[In, Out](b.metadata))
	if len(b.interceptors) > 0 {
		opts = append(opts, pipeline.WithInterceptors[In, Out](b.interceptors...))
	}
	if len(b.contribs) > 0 {
		opts = append(opts, pipeline.WithBehaviors[In, Out](b.contribs...))
	}
	if b.errorHandler != nil {
		opts = append(opts, pipeline.WithErrorHandler[In, Out](b.errorHandler))
	}
	if b.hasCache {
		opts = append(opts, pipeline.WithCache[In, Out](b.cacheKeySelector, b.resultCache, b.cachePolicy))
	}

	st := b.st
	if st == nil {
		// Behavior-only pipeline: the terminal never computes a real
		// result, so at least one behavior must short-circuit before
		// reaching it.
		st = stage.New[In, Out]("terminal", func(in In, ctx *pipectx.Context) (Out, error) {
			var zero Out
			return zero, nil
		})
	}
	return pipeline.New[In, Out](b.name, st, b.config, opts...), nil
}
