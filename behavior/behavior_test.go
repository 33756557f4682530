package behavior

import (
	"errors"
	"testing"
	"time"

	"github.com/flowforge/pipeline/perr"
	"github.com/flowforge/pipeline/pipectx"
)

var errBoom = errors.New("boom")

func terminalReturning(v any, err error) Next {
	return NextFunc(func(ctx *pipectx.Context) (any, error) { return v, err })
}

func TestBuildWrapsInResolvedOrderOutermostFirst(t *testing.T) {
	var order []string
	mk := func(id string) Behavior {
		return func(ctx *pipectx.Context, next Next) (any, error) {
			order = append(order, id+":before")
			v, err := next.Proceed(ctx)
			order = append(order, id+":after")
			return v, err
		}
	}

	contribs := []Contribution{
		{ID: "a", Behavior: mk("a"), IsEnabled: true, Priority: 1},
		{ID: "b", Behavior: mk("b"), IsEnabled: true, Priority: 2},
	}

	chain := Build(terminalReturning(42, nil), contribs)
	v, err := chain.Proceed(pipectx.New("p", "n"))
	if err != nil || v.(int) != 42 {
		t.Fatalf("Proceed = %v, %v", v, err)
	}

	want := []string{"a:before", "b:before", "b:after", "a:after"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestDisabledContributionIsSkipped(t *testing.T) {
	called := false
	contribs := []Contribution{
		{ID: "a", IsEnabled: false, Behavior: func(ctx *pipectx.Context, next Next) (any, error) {
			called = true
			return next.Proceed(ctx)
		}},
	}

	chain := Build(terminalReturning(1, nil), contribs)
	chain.Proceed(pipectx.New("p", "n"))

	if called {
		t.Fatal("expected disabled contribution's Behavior never invoked")
	}
}

func TestConstraintGatesContribution(t *testing.T) {
	called := false
	contribs := []Contribution{
		{
			ID:        "a",
			IsEnabled: true,
			Constraint: func(ctx *pipectx.Context) bool { return false },
			Behavior: func(ctx *pipectx.Context, next Next) (any, error) {
				called = true
				return next.Proceed(ctx)
			},
		},
	}

	chain := Build(terminalReturning(1, nil), contribs)
	chain.Proceed(pipectx.New("p", "n"))

	if called {
		t.Fatal("expected constrained-out contribution's Behavior never invoked")
	}
}

func TestResolvePartitionsByPhase(t *testing.T) {
	contribs := []Contribution{
		{ID: "post", Phase: PostProcessing, IsEnabled: true},
		{ID: "pre", Phase: PreProcessing, IsEnabled: true},
		{ID: "proc", Phase: Processing, IsEnabled: true},
	}

	resolved := Resolve(contribs)
	order := []string{resolved[0].ID, resolved[1].ID, resolved[2].ID}
	want := []string{"pre", "proc", "post"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestResolveFirstAndLastPlacement(t *testing.T) {
	contribs := []Contribution{
		{ID: "middle", Priority: 5, IsEnabled: true},
		{ID: "last", Placement: Last(), Priority: 1, IsEnabled: true},
		{ID: "first", Placement: First(), Priority: 1, IsEnabled: true},
	}

	resolved := Resolve(contribs)
	ids := idsOf(resolved)
	want := []string{"first", "middle", "last"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order = %v, want %v", ids, want)
		}
	}
}

func TestResolveBeforeAfterPlacement(t *testing.T) {
	contribs := []Contribution{
		{ID: "anchor", Priority: 1, IsEnabled: true},
		{ID: "after-anchor", Placement: After("anchor"), IsEnabled: true},
		{ID: "before-anchor", Placement: Before("anchor"), IsEnabled: true},
	}

	resolved := Resolve(contribs)
	ids := idsOf(resolved)
	want := []string{"before-anchor", "anchor", "after-anchor"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order = %v, want %v", ids, want)
		}
	}
}

func TestResolveReplacePlacement(t *testing.T) {
	contribs := []Contribution{
		{ID: "original", Priority: 1, IsEnabled: true},
		{ID: "replacement", Placement: Replace("original"), IsEnabled: true},
	}

	resolved := Resolve(contribs)
	if len(resolved) != 1 {
		t.Fatalf("resolved = %v, want exactly 1 entry", idsOf(resolved))
	}
	if resolved[0].ID != "replacement" {
		t.Fatalf("resolved[0].ID = %q, want replacement", resolved[0].ID)
	}
}

func idsOf(contribs []Contribution) []string {
	ids := make([]string, len(contribs))
	for i, c := range contribs {
		ids[i] = c.ID
	}
	return ids
}

type fixedRetryPolicy struct {
	retries int
	delay   time.Duration
}

func (p fixedRetryPolicy) MaxRetries() int                     { return p.retries }
func (p fixedRetryPolicy) CalculateDelay(attempt int) time.Duration { return p.delay }

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	next := NextFunc(func(ctx *pipectx.Context) (any, error) {
		attempts++
		if attempts < 2 {
			return nil, errBoom
		}
		return "ok", nil
	})

	behavior := WithRetry(fixedRetryPolicy{retries: 3, delay: time.Millisecond})
	v, err := behavior(pipectx.New("p", "n"), next)
	if err != nil || v != "ok" {
		t.Fatalf("got %v, %v, want ok, nil", v, err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestWithRetryExhaustsAndWraps(t *testing.T) {
	next := NextFunc(func(ctx *pipectx.Context) (any, error) { return nil, errBoom })
	behavior := WithRetry(fixedRetryPolicy{retries: 2, delay: time.Millisecond})

	_, err := behavior(pipectx.New("p", "n"), next)
	var pe *perr.Error
	if !errors.As(err, &pe) || pe.Kind != perr.KindRetryExhausted {
		t.Fatalf("got %v, want KindRetryExhausted", err)
	}
}

func TestWithTimeoutFiresOnSlowNext(t *testing.T) {
	next := NextFunc(func(ctx *pipectx.Context) (any, error) {
		time.Sleep(50 * time.Millisecond)
		return "late", nil
	})
	behavior := WithTimeout(10 * time.Millisecond)

	_, err := behavior(pipectx.New("p", "n"), next)
	var pe *perr.Error
	if !errors.As(err, &pe) || pe.Kind != perr.KindTimeout {
		t.Fatalf("got %v, want KindTimeout", err)
	}
}

func TestBuildWithDecoratorsAppliesBothLayers(t *testing.T) {
	attempts := 0
	terminal := NextFunc(func(ctx *pipectx.Context) (any, error) {
		attempts++
		if attempts < 2 {
			return nil, errBoom
		}
		return "done", nil
	})

	chain := BuildWithDecorators(terminal, nil, Decorators{
		RetryPolicy: fixedRetryPolicy{retries: 2, delay: time.Millisecond},
		Timeout:     time.Second,
	})

	v, err := chain.Proceed(pipectx.New("p", "n"))
	if err != nil || v != "done" {
		t.Fatalf("got %v, %v, want done, nil", v, err)
	}
}
