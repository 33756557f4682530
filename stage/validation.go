package stage

import (
	"fmt"

	"github.com/flowforge/pipeline/perr"
	"github.com/flowforge/pipeline/pipectx"
)

// ValidationStage runs a predicate on the input before invoking inner.
// On failure it returns a perr.KindValidation error and never calls
// inner. On success it records "{name}.Validated=true" in the context.
type ValidationStage[In, Out any] struct {
	inner Stage[In, Out]
	pred  func(In) bool
	msg   string
}

// Validate wraps inner with a validation check.
func Validate[In, Out any](inner Stage[In, Out], pred func(In) bool, message string) *ValidationStage[In, Out] {
	return &ValidationStage[In, Out]{inner: inner, pred: pred, msg: message}
}

func (v *ValidationStage[In, Out]) Process(in In, ctx *pipectx.Context) (Out, error) {
	var zero Out
	if !v.pred(in) {
		return zero, perr.Validation(v.Name(), v.msg)
	}
	ctx.SetProperty(v.inner.Name()+".Validated", true)
	return v.inner.Process(in, ctx)
}

func (v *ValidationStage[In, Out]) Name() string {
	return fmt.Sprintf("%s (Validated)", v.inner.Name())
}
