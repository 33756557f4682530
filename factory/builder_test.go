package factory

import (
	"context"
	"errors"
	"testing"

	"github.com/flowforge/pipeline/perr"
	"github.com/flowforge/pipeline/pipectx"
	"github.com/flowforge/pipeline/pipeline"
	"github.com/flowforge/pipeline/stage"
)

func TestBuildFailsWithNoStageOrBehaviors(t *testing.T) {
	_, err := New[int, int]("empty", Sequential()).Build()

	var pe *perr.Error
	if !errors.As(err, &pe) || pe.Kind != perr.KindValidation {
		t.Fatalf("got %v, want KindValidation", err)
	}
}

func TestBuildWithStageProducesWorkingExecutor(t *testing.T) {
	s := stage.New("double", func(in int, ctx *pipectx.Context) (int, error) { return in * 2, nil })
	e, err := NewSequential[int, int]("doubler").WithStage(s).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	out, err := e.Execute(context.Background(), 5, nil)
	if err != nil || out != 10 {
		t.Fatalf("Execute = %d, %v, want 10, nil", out, err)
	}
}

func TestTemplatesSetExpectedDefaults(t *testing.T) {
	seq := Sequential()
	if seq.MaxConcurrency != 1 || seq.ErrorStrategy != pipeline.FailFast {
		t.Fatalf("Sequential = %+v", seq)
	}

	par := Parallel()
	if par.MaxConcurrency <= 1 || !par.AsyncExecution {
		t.Fatalf("Parallel = %+v", par)
	}

	saga := Saga()
	if saga.MaxRetries == 0 || saga.ErrorStrategy != pipeline.DeadLetter || !saga.DeadLetterEnabled {
		t.Fatalf("Saga = %+v", saga)
	}

	transform := Transformation()
	if !transform.CacheEnabled {
		t.Fatalf("Transformation = %+v", transform)
	}
}

func TestNewSagaBuildsNamedExecutor(t *testing.T) {
	s := stage.New("noop", func(in int, ctx *pipectx.Context) (int, error) { return in, nil })
	e, err := NewSaga[int, int]("saga-1").WithStage(s).WithDescription("test saga").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if e.Name() != "saga-1" {
		t.Fatalf("Name = %q", e.Name())
	}
}
