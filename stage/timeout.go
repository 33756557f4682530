package stage

import (
	"fmt"
	"time"

	"github.com/flowforge/pipeline/perr"
	"github.com/flowforge/pipeline/pipectx"
)

// TimeoutStage races the inner stage against a timer, failing with
// perr.KindTimeout if the timer wins. The inner stage is cancelled
// cooperatively via ctx.Cancel() - a stage that never checks
// ctx.IsCancelled() keeps running in the background after the timeout
// fires, and its eventual result is discarded.
type TimeoutStage[In, Out any] struct {
	inner    Stage[In, Out]
	duration time.Duration
}

// Timeout wraps inner with a duration-bounded race.
func Timeout[In, Out any](inner Stage[In, Out], duration time.Duration) *TimeoutStage[In, Out] {
	return &TimeoutStage[In, Out]{inner: inner, duration: duration}
}

type timeoutResult[Out any] struct {
	out Out
	err error
}

func (s *TimeoutStage[In, Out]) Process(in In, ctx *pipectx.Context) (Out, error) {
	done := make(chan timeoutResult[Out], 1)

	go func() {
		out, err := s.inner.Process(in, ctx)
		done <- timeoutResult[Out]{out: out, err: err}
	}()

	timer := time.NewTimer(s.duration)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.out, r.err
	case <-timer.C:
		ctx.Cancel()
		var zero Out
		return zero, perr.Timeout(s.Name())
	}
}

func (s *TimeoutStage[In, Out]) Name() string {
	return fmt.Sprintf("%s (Timeout: %gs)", s.inner.Name(), s.duration.Seconds())
}
