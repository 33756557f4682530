package resilience

import (
	"errors"

	"github.com/flowforge/pipeline/perr"
)

// Sentinel errors for resilience operations. Policies and the Registry
// wrap the ones they return into *perr.Error (Kind: KindRejected/
// KindTimeout/KindPolicyNotFound) so callers can branch on perr.Kind
// without losing the underlying sentinel via errors.Is.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open or
	// isolated.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrMaxRetriesExceeded is not returned by Retry: an exhausted Retry
	// returns a KindRetryExhausted *perr.Error wrapping the last error.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrRateLimited is returned when the rate limiter has no capacity
	// and the queue is full.
	ErrRateLimited = errors.New("resilience: rate limit exceeded")

	// ErrBulkheadRejected is returned when the bulkhead's concurrency and
	// queue capacity are both exhausted.
	ErrBulkheadRejected = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("resilience: operation timed out")

	// ErrPolicyNotFound is returned by Registry.GetRequired for an
	// unregistered name.
	ErrPolicyNotFound = errors.New("resilience: policy not found")

	// ErrDuplicatePolicy is not returned by Registry.Add, which reports a
	// name already registered by returning false.
	ErrDuplicatePolicy = errors.New("resilience: policy already registered")
)

// circuitOpenErr builds the typed rejection error for an open/isolated
// circuit breaker.
func circuitOpenErr(name string) error {
	return &perr.Error{Kind: perr.KindRejected, Message: ErrCircuitOpen.Error(), Policy: name, Cause: ErrCircuitOpen}
}

// bulkheadRejectedErr builds the typed rejection error for a full bulkhead.
func bulkheadRejectedErr(name string) error {
	return &perr.Error{Kind: perr.KindRejected, Message: ErrBulkheadRejected.Error(), Policy: name, Cause: ErrBulkheadRejected}
}

// rateLimitedErr builds the typed rejection error for a saturated rate
// limiter.
func rateLimitedErr(name string) error {
	return &perr.Error{Kind: perr.KindRejected, Message: ErrRateLimited.Error(), Policy: name, Cause: ErrRateLimited}
}

// timeoutErr builds the typed timeout error.
func timeoutErr(name string) error {
	return &perr.Error{Kind: perr.KindTimeout, Message: ErrTimeout.Error(), Policy: name, Cause: ErrTimeout}
}
