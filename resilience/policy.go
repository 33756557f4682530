package resilience

import (
	"context"

	"github.com/flowforge/pipeline/metrics"
)

// Pattern names one of the stable resilience pattern kinds (spec §6).
type Pattern string

const (
	PatternCircuitBreaker Pattern = "CircuitBreaker"
	PatternRetry          Pattern = "Retry"
	PatternBulkhead       Pattern = "Bulkhead"
	PatternTimeout        Pattern = "Timeout"
	PatternRateLimiter    Pattern = "RateLimiter"
)

// Policy is the common contract every resilience pattern implements:
// execute an action, report a metrics snapshot, and reset.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Disabled policies (per construction) are a pass-through: Execute
//     simply calls op.
//   - Rejections (admission refused) are distinct from op failures and
//     are reported via metrics.Snapshot.Rejected, not Failed.
type Policy interface {
	// Name returns the policy's registered identifier.
	Name() string
	// Pattern returns the stable pattern kind this policy implements.
	Pattern() Pattern
	// Execute runs op under this policy's admission/resilience rules.
	Execute(ctx context.Context, op func(context.Context) error) error
	// Metrics returns a snapshot of this policy's counters, each read
	// atomically on its own.
	Metrics() metrics.Snapshot
	// Reset clears this policy's internal state and counters.
	Reset()
}
