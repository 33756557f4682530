package resilience

import (
	"context"
	"regexp"
	"sync"

	"github.com/flowforge/pipeline/metrics"
	"github.com/flowforge/pipeline/perr"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Registry is a thread-safe, named store of resilience policies with
// left-to-right composition (spec §4.9). The zero value is not usable;
// construct with NewRegistry.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]Policy
	tracer   trace.Tracer
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{policies: make(map[string]Policy)}
}

// WithTracer attaches an OTel tracer; once set, ExecuteComposed emits a
// span named "resilience.policy.<name>" around each policy in the
// chain. Passing nil disables span emission.
func (r *Registry) WithTracer(tracer trace.Tracer) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracer = tracer
	return r
}

// Add registers a policy under its own Name(). Refuses to overwrite an
// existing entry, returning false in that case.
func (r *Registry) Add(policy Policy) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.policies[policy.Name()]; exists {
		return false
	}
	r.policies[policy.Name()] = policy
	return true
}

// Register stores policy under its own Name(), overwriting any existing
// entry of the same name.
func (r *Registry) Register(policy Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[policy.Name()] = policy
}

// Get looks up a policy by name.
func (r *Registry) Get(name string) (Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[name]
	return p, ok
}

// GetRequired looks up a policy by name, returning a KindPolicyNotFound
// error on miss.
func (r *Registry) GetRequired(name string) (Policy, error) {
	if p, ok := r.Get(name); ok {
		return p, nil
	}
	return nil, &perr.Error{Kind: perr.KindPolicyNotFound, Message: ErrPolicyNotFound.Error(), Policy: name, Cause: ErrPolicyNotFound}
}

// Remove deletes a policy by name. Idempotent - no error on miss.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.policies, name)
}

// Clear removes every registered policy.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies = make(map[string]Policy)
}

// GetByPattern returns every registered policy whose name matches the
// given regular expression pattern.
func (r *Registry) GetByPattern(pattern string) ([]Policy, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []Policy
	for name, p := range r.policies {
		if re.MatchString(name) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// Execute runs op through the named policy.
func (r *Registry) Execute(ctx context.Context, name string, op func(context.Context) error) error {
	p, err := r.GetRequired(name)
	if err != nil {
		return err
	}
	return p.Execute(ctx, op)
}

// ExecuteComposed builds the chain by right-fold over names: the
// innermost action is wrapped by the rightmost policy first, and the
// outermost (leftmost) policy runs first. An empty names list is a
// pass-through, running op directly.
//
// ExecuteComposed([p_outer, p_inner], action) is observationally
// equivalent to p_outer.Execute(ctx, func(ctx) { return p_inner.Execute(ctx, action) }).
func (r *Registry) ExecuteComposed(ctx context.Context, names []string, op func(context.Context) error) error {
	r.mu.RLock()
	tracer := r.tracer
	r.mu.RUnlock()

	chain := op
	for i := len(names) - 1; i >= 0; i-- {
		p, err := r.GetRequired(names[i])
		if err != nil {
			return err
		}
		inner := chain
		policy := p
		chain = func(ctx context.Context) error {
			if tracer == nil {
				return policy.Execute(ctx, inner)
			}
			spanCtx, span := tracer.Start(ctx, "resilience.policy."+policy.Name(), trace.WithSpanKind(trace.SpanKindInternal))
			err := policy.Execute(spanCtx, inner)
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				span.RecordError(err)
			} else {
				span.SetStatus(codes.Ok, "")
			}
			span.End()
			return err
		}
	}
	return chain(ctx)
}

// GetAllMetrics snapshots every registered policy, keyed by name.
func (r *Registry) GetAllMetrics() map[string]metrics.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]metrics.Snapshot, len(r.policies))
	for name, p := range r.policies {
		out[name] = p.Metrics()
	}
	return out
}

// ResetAll resets every registered policy.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.policies {
		p.Reset()
	}
}
