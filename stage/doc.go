// Package stage defines Stage[In, Out], the unit of work a pipeline
// executes, plus composition helpers (AndThen, Map, Filter) and
// decorating stages that wrap an inner stage with cross-cutting
// behavior: ValidationStage, LoggingStage, RetryStage, TimeoutStage,
// CircuitBreakerStage, and MetricsStage.
package stage
