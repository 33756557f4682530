package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/flowforge/pipeline/metrics"
	"github.com/flowforge/pipeline/perr"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestRegistryAddRefusesDuplicates(t *testing.T) {
	r := NewRegistry()
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "cb1"})

	if !r.Add(cb) {
		t.Fatal("expected first Add to succeed")
	}
	if r.Add(cb) {
		t.Fatal("expected second Add of the same name to fail")
	}
}

func TestRegistryRegisterOverwrites(t *testing.T) {
	r := NewRegistry()
	cb1 := NewCircuitBreaker(CircuitBreakerConfig{Name: "cb"})
	cb2 := NewCircuitBreaker(CircuitBreakerConfig{Name: "cb", MinimumThroughput: 99})

	r.Register(cb1)
	r.Register(cb2)

	got, _ := r.Get("cb")
	if got.(*CircuitBreaker).config.MinimumThroughput != 99 {
		t.Fatal("expected Register to overwrite the existing entry")
	}
}

func TestRegistryGetRequiredMissing(t *testing.T) {
	r := NewRegistry()
	_, err := r.GetRequired("missing")

	var pe *perr.Error
	if !errors.As(err, &pe) || pe.Kind != perr.KindPolicyNotFound {
		t.Fatalf("got %v, want KindPolicyNotFound", err)
	}
}

func TestRegistryExecuteComposedOrder(t *testing.T) {
	r := NewRegistry()

	var order []string
	outer := &orderPolicy{name: "outer", order: &order}
	inner := &orderPolicy{name: "inner", order: &order}
	r.Register(outer)
	r.Register(inner)

	err := r.ExecuteComposed(context.Background(), []string{"outer", "inner"}, func(ctx context.Context) error {
		order = append(order, "action")
		return nil
	})
	if err != nil {
		t.Fatalf("ExecuteComposed: %v", err)
	}

	want := []string{"outer-before", "inner-before", "action", "inner-after", "outer-after"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRegistryExecuteComposedEmptyIsPassthrough(t *testing.T) {
	r := NewRegistry()
	called := false

	err := r.ExecuteComposed(context.Background(), nil, func(ctx context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("expected pass-through execution, err=%v called=%v", err, called)
	}
}

func TestRegistryResetAllAndGetAllMetrics(t *testing.T) {
	r := NewRegistry()
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "cb", MinimumThroughput: 1, FailureRateThreshold: 0.1})
	r.Register(cb)

	cb.Execute(context.Background(), func(ctx context.Context) error { return errBoom })

	all := r.GetAllMetrics()
	if all["cb"].Failed != 1 {
		t.Fatalf("metrics = %+v, want Failed=1", all["cb"])
	}

	r.ResetAll()
	all = r.GetAllMetrics()
	if all["cb"].Failed != 0 {
		t.Fatalf("metrics after ResetAll = %+v, want Failed=0", all["cb"])
	}
}

// orderPolicy is a minimal Policy used only to assert ExecuteComposed's
// right-fold wrapping order.
type orderPolicy struct {
	name  string
	order *[]string
}

func (p *orderPolicy) Name() string    { return p.name }
func (p *orderPolicy) Pattern() Pattern { return PatternCircuitBreaker }
func (p *orderPolicy) Execute(ctx context.Context, op func(context.Context) error) error {
	*p.order = append(*p.order, p.name+"-before")
	err := op(ctx)
	*p.order = append(*p.order, p.name+"-after")
	return err
}
func (p *orderPolicy) Metrics() metrics.Snapshot { return metrics.Snapshot{} }
func (p *orderPolicy) Reset()                    {}

// recordingTracer wraps a noop tracer but records the span names it is
// asked to start, letting a test assert ExecuteComposed emits one span
// per policy in the chain.
type recordingTracer struct {
	trace.Tracer
	started *[]string
}

func (t recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	*t.started = append(*t.started, name)
	return t.Tracer.Start(ctx, name, opts...)
}

func TestRegistryExecuteComposedEmitsSpanPerPolicyWhenTraced(t *testing.T) {
	r := NewRegistry()
	outer := &orderPolicy{name: "outer", order: &[]string{}}
	inner := &orderPolicy{name: "inner", order: &[]string{}}
	r.Register(outer)
	r.Register(inner)

	var started []string
	r.WithTracer(recordingTracer{Tracer: tracenoop.NewTracerProvider().Tracer("test"), started: &started})

	err := r.ExecuteComposed(context.Background(), []string{"outer", "inner"}, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("ExecuteComposed: %v", err)
	}

	want := []string{"resilience.policy.outer", "resilience.policy.inner"}
	if len(started) != len(want) {
		t.Fatalf("started = %v, want %v", started, want)
	}
	for i := range want {
		if started[i] != want[i] {
			t.Fatalf("started = %v, want %v", started, want)
		}
	}
}

func TestRegistryExecuteComposedWithoutTracerEmitsNoSpans(t *testing.T) {
	r := NewRegistry()
	r.Register(&orderPolicy{name: "p", order: &[]string{}})

	called := false
	err := r.ExecuteComposed(context.Background(), []string{"p"}, func(ctx context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("expected pass-through execution, err=%v called=%v", err, called)
	}
}
