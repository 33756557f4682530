package pipeline

import (
	"context"

	"github.com/flowforge/pipeline/pipectx"
)

// MapPipeline runs inner then applies fn to its output.
type MapPipeline[In, A, Out any] struct {
	inner Pipeline[In, A]
	fn    func(A) Out
	name  string
}

// MapOf wraps inner with a post-transform fn.
func MapOf[In, A, Out any](inner Pipeline[In, A], fn func(A) Out) *MapPipeline[In, A, Out] {
	return &MapPipeline[In, A, Out]{inner: inner, fn: fn, name: inner.Name() + " -> Map"}
}

func (m *MapPipeline[In, A, Out]) Execute(ctx context.Context, input In, parent *pipectx.Context) (Out, error) {
	var zero Out
	a, err := m.inner.Execute(ctx, input, parent)
	if err != nil {
		return zero, err
	}
	return m.fn(a), nil
}

func (m *MapPipeline[In, A, Out]) Name() string { return m.name }

// ThenPipeline runs first, feeds its output into second, sharing the
// context.
type ThenPipeline[In, A, Out any] struct {
	first  Pipeline[In, A]
	second Pipeline[A, Out]
	name   string
}

// ThenOf composes first then second.
func ThenOf[In, A, Out any](first Pipeline[In, A], second Pipeline[A, Out]) *ThenPipeline[In, A, Out] {
	return &ThenPipeline[In, A, Out]{first: first, second: second, name: first.Name() + " -> " + second.Name()}
}

func (t *ThenPipeline[In, A, Out]) Execute(ctx context.Context, input In, parent *pipectx.Context) (Out, error) {
	var zero Out
	a, err := t.first.Execute(ctx, input, parent)
	if err != nil {
		return zero, err
	}
	return t.second.Execute(ctx, a, parent)
}

func (t *ThenPipeline[In, A, Out]) Name() string { return t.name }

// FilterPipeline runs inner; if pred holds, emits the output, else emits
// the zero value and tags Filtered=true on the context.
type FilterPipeline[In, Out any] struct {
	inner Pipeline[In, Out]
	pred  func(Out) bool
	name  string
}

// FilterOf wraps inner with a predicate gate.
func FilterOf[In, Out any](inner Pipeline[In, Out], pred func(Out) bool) *FilterPipeline[In, Out] {
	return &FilterPipeline[In, Out]{inner: inner, pred: pred, name: inner.Name() + " -> Filter"}
}

func (f *FilterPipeline[In, Out]) Execute(ctx context.Context, input In, parent *pipectx.Context) (Out, error) {
	var zero Out
	out, err := f.inner.Execute(ctx, input, parent)
	if err != nil {
		return zero, err
	}
	if f.pred(out) {
		return out, nil
	}
	if parent != nil {
		parent.SetProperty("Filtered", true)
	}
	return zero, nil
}

func (f *FilterPipeline[In, Out]) Name() string { return f.name }
