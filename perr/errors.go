// Package perr defines the pipeline engine's error taxonomy: a small,
// stable set of kinds shared by every package (resilience policies,
// stages, behaviors, the executor, the registry) so callers can branch on
// errors.Is / errors.As instead of parsing messages.
package perr

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a pipeline error, independent of the
// underlying cause.
type Kind int

const (
	// KindInternal wraps any failure with no more specific kind; the
	// underlying error chain is preserved.
	KindInternal Kind = iota
	// KindCancelled indicates cooperative cancellation or an external
	// cancellation token tripping.
	KindCancelled
	// KindTimeout indicates a deadline was exceeded.
	KindTimeout
	// KindRejected indicates admission was refused by a resilience policy
	// (circuit open, bulkhead full, rate limited). Policy names the
	// refusing policy.
	KindRejected
	// KindRetryExhausted indicates every retry attempt failed; Cause
	// holds the last underlying error.
	KindRetryExhausted
	// KindValidation indicates a stage or behavior predicate refused the
	// input.
	KindValidation
	// KindNoMatchingBranch indicates a MultiBranch could not route the
	// input to any branch and had no default.
	KindNoMatchingBranch
	// KindDeadLetter indicates an error strategy diverted the failure to
	// the dead-letter path; Cause holds the original error.
	KindDeadLetter
	// KindPolicyNotFound indicates a registry lookup miss.
	KindPolicyNotFound
)

func (k Kind) String() string {
	switch k {
	case KindCancelled:
		return "Cancelled"
	case KindTimeout:
		return "Timeout"
	case KindRejected:
		return "Rejected"
	case KindRetryExhausted:
		return "RetryExhausted"
	case KindValidation:
		return "Validation"
	case KindNoMatchingBranch:
		return "NoMatchingBranch"
	case KindDeadLetter:
		return "DeadLetter"
	case KindPolicyNotFound:
		return "PolicyNotFound"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is the pipeline engine's typed error: a short human message plus
// the kind, and, when applicable, the stage/policy involved and the
// wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	// Stage names the stage involved, if any.
	Stage string
	// Policy names the resilience policy involved (e.g. which policy
	// rejected the call), if any.
	Policy string
	// Cause is the underlying error, if any.
	Cause error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("pipeline: %s", e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Stage != "" {
		msg += fmt.Sprintf(" (stage=%s)", e.Stage)
	}
	if e.Policy != "" {
		msg += fmt.Sprintf(" (policy=%s)", e.Policy)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, &perr.Error{Kind: perr.KindX}) matches any *Error of
// that Kind. Message, Stage, Policy and Cause are not compared.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates a bare *Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a *Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Rejected builds a KindRejected error naming the refusing policy.
func Rejected(policy, message string) *Error {
	return &Error{Kind: KindRejected, Message: message, Policy: policy}
}

// Timeout builds a KindTimeout error, optionally naming the stage.
func Timeout(stage string) *Error {
	return &Error{Kind: KindTimeout, Message: "deadline exceeded", Stage: stage}
}

// Cancelled builds a KindCancelled error wrapping the triggering cause
// (typically context.Canceled).
func Cancelled(cause error) *Error {
	return &Error{Kind: KindCancelled, Message: "execution cancelled", Cause: cause}
}

// RetryExhausted builds a KindRetryExhausted error wrapping the last
// attempt's error.
func RetryExhausted(attempts int, last error) *Error {
	return &Error{
		Kind:    KindRetryExhausted,
		Message: fmt.Sprintf("all %d attempt(s) failed", attempts),
		Cause:   last,
	}
}

// PolicyNotFound builds a KindPolicyNotFound error naming the missing
// policy.
func PolicyNotFound(name string) *Error {
	return &Error{Kind: KindPolicyNotFound, Message: "policy not registered", Policy: name}
}

// Validation builds a KindValidation error with the given message.
func Validation(stage, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Stage: stage}
}

// NoMatchingBranch builds a KindNoMatchingBranch error.
func NoMatchingBranch() *Error {
	return &Error{Kind: KindNoMatchingBranch, Message: "no branch matched and no default was configured"}
}

// DeadLetter builds a KindDeadLetter error wrapping the original failure.
func DeadLetter(original error) *Error {
	return &Error{Kind: KindDeadLetter, Message: "diverted to dead letter", Cause: original}
}

// Internal builds a KindInternal error wrapping cause.
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Cause: cause}
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error, with ok
// reporting whether one was found.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
