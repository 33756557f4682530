// Package pipectx's Context carries per-execution state through a
// pipeline run: identity (ContextID/PipelineID/PipelineName), input and
// result, timing (CreatedAt/StartExecution/EndExecution/elapsed and
// execution duration), stage progress (CurrentStage and a monotonic
// LastCompletedStageIndex), cooperative cancellation (manual Cancel plus
// an optional external CancelSignal), and a concurrent property bag used
// to pass data between stages, interceptors, and behaviors.
//
// Contexts are derived, not mutated in place, across boundaries:
// Copy for a shallow clone, CreateChildContext for a sub-pipeline
// invocation that inherits only well-known identity properties, and
// MergeFrom to fold a map of properties in.
package pipectx
