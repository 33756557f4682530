// Package resilience provides the pipeline engine's resilience policies:
// circuit breaker, retry, bulkhead, timeout, and rate limiter, plus a
// Registry for naming, composing, and aggregating them.
//
// Every policy implements the common [Policy] contract: Execute(ctx, op),
// Metrics() returning a stable-schema snapshot, and Reset(). Rejections
// (circuit open, bulkhead full, rate limited) are reported as a distinct
// perr.KindRejected error, never conflated with the wrapped action's own
// failures, so a Retry wrapping a CircuitBreaker does not retry a
// load-shedding rejection unless explicitly configured to.
//
// # Circuit breaker
//
// [CircuitBreaker] is a windowed failure-rate breaker: once
// MinimumThroughput calls land in SamplingWindow and the failure ratio
// reaches FailureRateThreshold, it opens for BreakDuration, then admits a
// single HalfOpen probe. [StateIsolated] is a manual override that only
// Reset clears.
//
// # Retry
//
// [Retry] retries with Fixed/Linear/Exponential backoff, optional jitter
// in [0.75, 1.25] of the computed delay, and an optional predicate
// restricting which errors are retryable. Rejected errors from an inner
// policy are never retried unless explicitly whitelisted.
//
// # Bulkhead
//
// [Bulkhead] bounds concurrency with a queue: up to MaxConcurrentCalls
// run at once, up to MaxQueuedCalls wait for a slot, and any further
// arrival (or any queued caller past MaxWaitDuration) is rejected.
//
// # Timeout
//
// [Timeout] supports Optimistic (ctx-cooperative) and Pessimistic (race
// and abandon) enforcement strategies.
//
// # Rate limiter
//
// [RateLimiter] divides Window into SegmentsPerWindow buckets; current
// utilization is the sum of admissions across the trailing buckets.
// Callers beyond MaxPermits queue up to QueueLimit before rejection.
//
// # Registry
//
// [Registry] is a thread-safe name -> Policy map. ExecuteComposed builds
// a chain by right-fold over a name list: the rightmost name wraps the
// action first, the leftmost runs outermost.
package resilience
