// Package pipeline's Executor drives a Stage through the ten-step
// sequence: adopt or build a Context, check the cache, acquire a
// concurrency permit, run before-execution interceptors, run the
// behavior chain around stage iteration, run after-execution
// interceptors, populate the cache, and apply the configured
// ErrorStrategy on failure.
//
// The composition wrappers (MapOf, ThenOf, FilterOf, BranchOf,
// MultiBranchOf, TypeSwitchOf, CachingPipeline) all implement the same
// Pipeline contract as Executor and delegate to one or more inner
// pipelines. ParallelOrdered, ParallelUnordered and DataflowParallel are
// functions, not Pipelines: each runs a Pipeline over a slice of inputs.
package pipeline
