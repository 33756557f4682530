// Package telemetry provides OpenTelemetry-based observability for stage
// execution inside the pipeline engine.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. The pipeline executor wires an Observer in to back
// its tracing_enabled/metrics_enabled configuration (see package pipeline).
//
// # Overview
//
// telemetry provides three observability pillars:
//   - Tracing: OpenTelemetry spans per stage execution
//   - Metrics: Execution counters and duration histograms
//   - Logging: Structured JSON logging with automatic field redaction
//
// # Core Components
//
//   - [Observer]: Main facade providing Tracer, Meter, and Logger access
//   - [Tracer]: Span creation with stage metadata as span attributes
//   - [Metrics]: Records execution counts, errors, and duration histograms
//   - [Logger]: Structured JSON logging with sensitive field redaction
//   - [Middleware]: Wraps ExecuteFunc with complete observability
//
// # Quick start
//
//	cfg := telemetry.Config{
//	    ServiceName: "pipeline-engine",
//	    Tracing:     telemetry.TracingConfig{Enabled: true, Exporter: "otlp", SamplePct: 1.0},
//	    Metrics:     telemetry.MetricsConfig{Enabled: true, Exporter: "prometheus"},
//	    Logging:     telemetry.LoggingConfig{Enabled: true, Level: "info"},
//	}
//
//	obs, err := telemetry.NewObserver(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer obs.Shutdown(ctx)
//
// # Span naming
//
// Span names are deterministic: "pipeline.stage.<pipelineName>.<name>" when
// the pipeline name is known, else "pipeline.stage.<name>".
//
// Metrics recorded: pipeline.stage.exec.total, pipeline.stage.exec.errors,
// pipeline.stage.exec.duration_ms, all labeled by stage.name and (when set)
// pipeline.name.
//
// # Sensitive field redaction
//
// The logger redacts fields named in [RedactedFields] (input, password,
// secret, token, api_key, credential, ...) to keep context properties from
// leaking into logs.
//
// # Exporters
//
// Tracing: "otlp", "jaeger" (via OTLP), "stdout", "none"/"". Metrics:
// "otlp", "prometheus", "stdout", "none"/"". See package exporters.
package telemetry
