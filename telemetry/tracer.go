package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// StageMeta identifies a stage execution for telemetry purposes.
type StageMeta struct {
	StageName    string // Stage name (required)
	PipelineID   string // Owning pipeline's context_id (optional)
	PipelineName string // Owning pipeline's name (optional)
	Attempt      int    // Retry attempt number, 1 for the first try (optional)
}

// SpanName returns the deterministic span name for this stage.
// Format: pipeline.stage.<pipelineName>.<name> or pipeline.stage.<name>
func (m StageMeta) SpanName() string {
	if m.PipelineName != "" {
		return "pipeline.stage." + m.PipelineName + "." + m.StageName
	}
	return "pipeline.stage." + m.StageName
}

// Tracer wraps OpenTelemetry tracing with stage-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan returns ctx carrying the new span; it does not check ctx for cancellation.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for stage execution.
	StartSpan(ctx context.Context, meta StageMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with stage metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta StageMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("stage.name", meta.StageName),
		attribute.Bool("stage.error", false), // updated in EndSpan if the stage fails
	}

	if meta.PipelineName != "" {
		attrs = append(attrs, attribute.String("pipeline.name", meta.PipelineName))
	}
	if meta.PipelineID != "" {
		attrs = append(attrs, attribute.String("pipeline.id", meta.PipelineID))
	}
	if meta.Attempt > 0 {
		attrs = append(attrs, attribute.Int("stage.attempt", meta.Attempt))
	}

	ctx, span := t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	return ctx, span
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("stage.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// newNoopTracer creates a no-op tracer.
func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta StageMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
