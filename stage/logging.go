package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/flowforge/pipeline/pipectx"
	"github.com/flowforge/pipeline/telemetry"
)

// LoggingStage logs start, duration, and outcome around an inner stage,
// forwarding the inner result or error unchanged.
type LoggingStage[In, Out any] struct {
	inner  Stage[In, Out]
	logger telemetry.Logger
}

// Log wraps inner with start/duration/outcome logging via logger.
func Log[In, Out any](inner Stage[In, Out], logger telemetry.Logger) *LoggingStage[In, Out] {
	return &LoggingStage[In, Out]{inner: inner, logger: logger}
}

func (l *LoggingStage[In, Out]) Process(in In, ctx *pipectx.Context) (Out, error) {
	name := l.inner.Name()
	bg := context.Background()
	l.logger.Debug(bg, "stage started", telemetry.Field{Key: "stage", Value: name})

	start := time.Now()
	out, err := l.inner.Process(in, ctx)
	elapsed := time.Since(start)

	if err != nil {
		l.logger.Warn(bg, "stage failed",
			telemetry.Field{Key: "stage", Value: name},
			telemetry.Field{Key: "duration_ms", Value: elapsed.Milliseconds()},
			telemetry.Field{Key: "error", Value: err.Error()},
		)
		return out, err
	}

	l.logger.Info(bg, "stage completed",
		telemetry.Field{Key: "stage", Value: name},
		telemetry.Field{Key: "duration_ms", Value: elapsed.Milliseconds()},
	)
	return out, nil
}

func (l *LoggingStage[In, Out]) Name() string {
	return fmt.Sprintf("%s (Logged)", l.inner.Name())
}
