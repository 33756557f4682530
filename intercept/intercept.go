// Package intercept provides Interceptor: priority-ordered hooks around
// pipeline and stage execution.
package intercept

import (
	"sort"

	"github.com/flowforge/pipeline/pipectx"
)

// Interceptor observes or short-circuits pipeline execution. Every hook
// is optional - implementations can embed BaseInterceptor for no-op
// defaults and override only what they need.
type Interceptor interface {
	// Name identifies the interceptor for logging and diagnostics.
	Name() string

	// Priority orders interceptors: lower runs first. Ties are broken
	// by registration order.
	Priority() int

	// BeforeExecution runs once before the behavior chain, in priority
	// order.
	BeforeExecution(ctx *pipectx.Context)

	// AfterExecution runs once after a successful execution, in the
	// same (not reversed) priority order.
	AfterExecution(ctx *pipectx.Context)

	// BeforeStage runs before each stage invocation.
	BeforeStage(ctx *pipectx.Context, stageName string)

	// AfterStage runs after each stage invocation.
	AfterStage(ctx *pipectx.Context, stageName string)

	// OnError runs when execution fails. Returning handled=true tells
	// the executor to treat ctx.Result() as the successful output and
	// stop invoking further OnError hooks.
	OnError(ctx *pipectx.Context, err error) (handled bool)
}

// BaseInterceptor supplies no-op implementations of every hook so
// concrete interceptors can embed it and override only what they need.
type BaseInterceptor struct {
	InterceptorName string
	InterceptorPriority int
}

func (b BaseInterceptor) Name() string  { return b.InterceptorName }
func (b BaseInterceptor) Priority() int { return b.InterceptorPriority }

func (b BaseInterceptor) BeforeExecution(ctx *pipectx.Context)               {}
func (b BaseInterceptor) AfterExecution(ctx *pipectx.Context)                {}
func (b BaseInterceptor) BeforeStage(ctx *pipectx.Context, stageName string) {}
func (b BaseInterceptor) AfterStage(ctx *pipectx.Context, stageName string)  {}
func (b BaseInterceptor) OnError(ctx *pipectx.Context, err error) bool       { return false }

// Chain holds a set of interceptors sorted by (Priority, registration
// order) ascending, and invokes their hooks in that stable order.
type Chain struct {
	entries []entry
}

type entry struct {
	interceptor Interceptor
	seq         int
}

// NewChain builds a Chain from interceptors, sorting by Priority
// ascending with registration order as the tiebreaker.
func NewChain(interceptors ...Interceptor) *Chain {
	entries := make([]entry, len(interceptors))
	for i, ic := range interceptors {
		entries[i] = entry{interceptor: ic, seq: i}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].interceptor.Priority() < entries[j].interceptor.Priority()
	})
	return &Chain{entries: entries}
}

// Len returns the number of interceptors in the chain.
func (c *Chain) Len() int { return len(c.entries) }

// RunBeforeExecution invokes BeforeExecution on every interceptor in
// order.
func (c *Chain) RunBeforeExecution(ctx *pipectx.Context) {
	for _, e := range c.entries {
		e.interceptor.BeforeExecution(ctx)
	}
}

// RunAfterExecution invokes AfterExecution on every interceptor in the
// same order as BeforeExecution (not reversed).
func (c *Chain) RunAfterExecution(ctx *pipectx.Context) {
	for _, e := range c.entries {
		e.interceptor.AfterExecution(ctx)
	}
}

// RunBeforeStage invokes BeforeStage on every interceptor in order.
func (c *Chain) RunBeforeStage(ctx *pipectx.Context, stageName string) {
	for _, e := range c.entries {
		e.interceptor.BeforeStage(ctx, stageName)
	}
}

// RunAfterStage invokes AfterStage on every interceptor in order.
func (c *Chain) RunAfterStage(ctx *pipectx.Context, stageName string) {
	for _, e := range c.entries {
		e.interceptor.AfterStage(ctx, stageName)
	}
}

// RunOnError invokes OnError on each interceptor in order, stopping at
// the first one that reports handled=true.
func (c *Chain) RunOnError(ctx *pipectx.Context, err error) (handled bool) {
	for _, e := range c.entries {
		if e.interceptor.OnError(ctx, err) {
			return true
		}
	}
	return false
}
