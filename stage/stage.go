// Package stage defines Stage, the unit of work a pipeline executes, and
// the combinators used to compose stages into larger ones.
package stage

import (
	"fmt"

	"github.com/flowforge/pipeline/pipectx"
)

// Stage transforms an In into an Out, given the shared execution
// Context. Errors are surfaced to the caller unwrapped; the pipeline
// executor is responsible for classification and handling.
type Stage[In, Out any] interface {
	// Process runs the stage's work.
	Process(in In, ctx *pipectx.Context) (Out, error)

	// Name identifies the stage, used in logs, metrics, and error
	// messages. Decorating stages derive their name from the inner
	// stage's name plus a descriptive suffix.
	Name() string
}

// Func adapts a plain function into a Stage.
type Func[In, Out any] struct {
	StageName string
	Fn        func(In, *pipectx.Context) (Out, error)
}

// New wraps fn as a named Stage.
func New[In, Out any](name string, fn func(In, *pipectx.Context) (Out, error)) Func[In, Out] {
	return Func[In, Out]{StageName: name, Fn: fn}
}

func (f Func[In, Out]) Process(in In, ctx *pipectx.Context) (Out, error) {
	return f.Fn(in, ctx)
}

func (f Func[In, Out]) Name() string { return f.StageName }

// sequential composes two stages: A -> B.
type sequential[In, Mid, Out any] struct {
	first  Stage[In, Mid]
	second Stage[Mid, Out]
}

// AndThen composes first and second into a single Stage whose name is
// "first.Name() -> second.Name()".
func AndThen[In, Mid, Out any](first Stage[In, Mid], second Stage[Mid, Out]) Stage[In, Out] {
	return sequential[In, Mid, Out]{first: first, second: second}
}

func (s sequential[In, Mid, Out]) Process(in In, ctx *pipectx.Context) (Out, error) {
	mid, err := s.first.Process(in, ctx)
	if err != nil {
		var zero Out
		return zero, err
	}
	return s.second.Process(mid, ctx)
}

func (s sequential[In, Mid, Out]) Name() string {
	return fmt.Sprintf("%s -> %s", s.first.Name(), s.second.Name())
}

// mapped post-maps a stage's output.
type mapped[In, Out, Mapped any] struct {
	inner Stage[In, Out]
	fn    func(Out) Mapped
}

// Map returns a Stage that runs inner then applies fn to its output.
func Map[In, Out, Mapped any](inner Stage[In, Out], fn func(Out) Mapped) Stage[In, Mapped] {
	return mapped[In, Out, Mapped]{inner: inner, fn: fn}
}

func (m mapped[In, Out, Mapped]) Process(in In, ctx *pipectx.Context) (Mapped, error) {
	out, err := m.inner.Process(in, ctx)
	if err != nil {
		var zero Mapped
		return zero, err
	}
	return m.fn(out), nil
}

func (m mapped[In, Out, Mapped]) Name() string {
	return m.inner.Name() + " (Map)"
}

// Option represents the result of a Filter stage: Some(value) or None.
type Option[T any] struct {
	Value   T
	Present bool
}

// Some wraps v as a present Option.
func Some[T any](v T) Option[T] { return Option[T]{Value: v, Present: true} }

// None returns an absent Option.
func None[T any]() Option[T] { return Option[T]{} }

type filtered[In, Out any] struct {
	inner Stage[In, Out]
	pred  func(Out) bool
}

// Filter returns a Stage emitting Some(out) if pred(out) holds, else
// None - never an exception for a failed predicate.
func Filter[In, Out any](inner Stage[In, Out], pred func(Out) bool) Stage[In, Option[Out]] {
	return filtered[In, Out]{inner: inner, pred: pred}
}

func (f filtered[In, Out]) Process(in In, ctx *pipectx.Context) (Option[Out], error) {
	out, err := f.inner.Process(in, ctx)
	if err != nil {
		return Option[Out]{}, err
	}
	if f.pred(out) {
		return Some(out), nil
	}
	return None[Out](), nil
}

func (f filtered[In, Out]) Name() string {
	return f.inner.Name() + " (Filter)"
}
