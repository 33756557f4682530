// Package pipectx provides Context: the per-execution state threaded
// through every stage, behavior, and interceptor of a pipeline run.
package pipectx

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Well-known property keys that interoperating pipelines rely on (spec §6).
const (
	KeyCorrelationID             = "CorrelationId"
	KeyUserID                    = "UserId"
	KeyTenantID                  = "TenantId"
	KeyParentContextID           = "ParentContextId"
	KeyParentPipelineID          = "ParentPipelineId"
	KeyDeadLetter                = "DeadLetter"
	KeyDeadLetterReason          = "DeadLetterReason"
	KeyValidationErrors          = "ValidationErrors"
	KeyValidationPassed          = "ValidationPassed"
	KeyValidationFailed          = "ValidationFailed"
	KeyParallelPipelineIndex     = "ParallelPipeline.Index"
	KeyParallelPipelineThreadID  = "ParallelPipeline.ThreadId"
	KeyDataflowProcessedCount    = "DataflowPipeline.ProcessedCount"
)

// FeatureKey builds the well-known "Feature.{name}" property key.
func FeatureKey(name string) string {
	return "Feature." + name
}

// Sentinel errors for Context property operations.
var (
	// ErrInvalidKey is returned by SetProperty for an empty/whitespace key.
	ErrInvalidKey = errors.New("pipectx: property key is invalid")
	// ErrNullValue is returned by SetProperty when value is nil.
	ErrNullValue = errors.New("pipectx: property value must not be nil")
)

// allowlistedChildProperties are the only properties copied into a child
// context by CreateChildContext.
var allowlistedChildProperties = []string{KeyCorrelationID, KeyUserID, KeyTenantID}

// Context is per-execution state: identity, properties, timings,
// cancellation, and parent/child derivation.
//
// Contract:
//   - Concurrency: the property map is safe for concurrent reads and
//     writes; cancellation is observed via an atomic flag plus an
//     external token.
type Context struct {
	contextID    string
	pipelineID   string
	pipelineName string
	createdAt    time.Time
	startTime    time.Time
	endTime      time.Time
	hasStart     atomic.Bool
	hasEnd       atomic.Bool

	input  any
	result any
	err    error
	ioMu   sync.RWMutex

	currentStage            string
	lastCompletedStageIndex atomic.Int64

	manualCancel atomic.Bool
	external     CancelSignal

	props sync.Map // string -> any
}

// CancelSignal is an external, composable cancellation source (e.g. a
// context.Context's Done channel wrapped by the caller). A nil
// CancelSignal means "never externally cancelled".
type CancelSignal interface {
	// Requested reports whether cancellation has been requested.
	Requested() bool
}

// New creates a Context for a fresh execution.
func New(pipelineID, pipelineName string) *Context {
	c := &Context{
		contextID:    uuid.NewString(),
		pipelineID:   pipelineID,
		pipelineName: pipelineName,
		createdAt:    time.Now(),
	}
	c.lastCompletedStageIndex.Store(-1)
	return c
}

// CreateWithCorrelation creates a Context pre-seeded with CorrelationId.
func CreateWithCorrelation(pipelineID, pipelineName, correlationID string) *Context {
	c := New(pipelineID, pipelineName)
	c.SetProperty(KeyCorrelationID, correlationID)
	return c
}

// CreateForUser creates a Context pre-seeded with UserId and, optionally,
// TenantId.
func CreateForUser(pipelineID, pipelineName, userID, tenantID string) *Context {
	c := New(pipelineID, pipelineName)
	c.SetProperty(KeyUserID, userID)
	if tenantID != "" {
		c.SetProperty(KeyTenantID, tenantID)
	}
	return c
}

// ContextID returns this execution's unique id.
func (c *Context) ContextID() string { return c.contextID }

// PipelineID returns the owning pipeline's id.
func (c *Context) PipelineID() string { return c.pipelineID }

// PipelineName returns the owning pipeline's name.
func (c *Context) PipelineName() string { return c.pipelineName }

// CreatedAt returns when this Context was constructed.
func (c *Context) CreatedAt() time.Time { return c.createdAt }

// StartExecution records start_time = now, idempotently.
func (c *Context) StartExecution() {
	if c.hasStart.CompareAndSwap(false, true) {
		c.ioMu.Lock()
		c.startTime = time.Now()
		c.ioMu.Unlock()
	}
}

// EndExecution records end_time = now, idempotently.
func (c *Context) EndExecution() {
	if c.hasEnd.CompareAndSwap(false, true) {
		c.ioMu.Lock()
		c.endTime = time.Now()
		c.ioMu.Unlock()
	}
}

// GetElapsedTime returns monotonic elapsed time since creation.
func (c *Context) GetElapsedTime() time.Duration {
	return time.Since(c.createdAt)
}

// GetExecutionDuration returns end_time - start_time, falling back to
// now - start_time if the execution hasn't ended yet.
func (c *Context) GetExecutionDuration() time.Duration {
	c.ioMu.RLock()
	defer c.ioMu.RUnlock()

	if c.startTime.IsZero() {
		return 0
	}
	if c.hasEnd.Load() {
		return c.endTime.Sub(c.startTime)
	}
	return time.Since(c.startTime)
}

// SetInput sets the pipeline input value.
func (c *Context) SetInput(v any) {
	c.ioMu.Lock()
	c.input = v
	c.ioMu.Unlock()
}

// Input returns the pipeline input value.
func (c *Context) Input() any {
	c.ioMu.RLock()
	defer c.ioMu.RUnlock()
	return c.input
}

// SetResult sets the pipeline result value.
func (c *Context) SetResult(v any) {
	c.ioMu.Lock()
	c.result = v
	c.ioMu.Unlock()
}

// Result returns the pipeline result value.
func (c *Context) Result() any {
	c.ioMu.RLock()
	defer c.ioMu.RUnlock()
	return c.result
}

// SetException records the failure that ended this execution.
func (c *Context) SetException(err error) {
	c.ioMu.Lock()
	c.err = err
	c.ioMu.Unlock()
}

// Exception returns the failure that ended this execution, if any.
func (c *Context) Exception() error {
	c.ioMu.RLock()
	defer c.ioMu.RUnlock()
	return c.err
}

// CurrentStage returns the name of the stage presently executing.
func (c *Context) CurrentStage() string {
	c.ioMu.RLock()
	defer c.ioMu.RUnlock()
	return c.currentStage
}

// SetCurrentStage records the name of the stage about to execute.
func (c *Context) SetCurrentStage(name string) {
	c.ioMu.Lock()
	c.currentStage = name
	c.ioMu.Unlock()
}

// MarkStageCompleted advances the monotonic last-completed-stage index.
// Calls with an index not greater than the current value are no-ops.
func (c *Context) MarkStageCompleted(index int) {
	for {
		cur := c.lastCompletedStageIndex.Load()
		if int64(index) <= cur {
			return
		}
		if c.lastCompletedStageIndex.CompareAndSwap(cur, int64(index)) {
			return
		}
	}
}

// LastCompletedStageIndex returns the highest stage index marked
// completed so far, or -1 if none.
func (c *Context) LastCompletedStageIndex() int {
	return int(c.lastCompletedStageIndex.Load())
}

// SetCancelSignal links this context's cancellation to an external
// source (e.g. a caller's context.Context).
func (c *Context) SetCancelSignal(sig CancelSignal) {
	c.external = sig
}

// Cancel sets the manual-cancel flag.
func (c *Context) Cancel() {
	c.manualCancel.Store(true)
}

// IsCancelled reports whether this execution has been cancelled, either
// manually or via the linked external signal.
func (c *Context) IsCancelled() bool {
	if c.manualCancel.Load() {
		return true
	}
	return c.external != nil && c.external.Requested()
}

// SetProperty stores value under key. Fails with ErrInvalidKey for an
// empty/whitespace key or ErrNullValue for a nil value.
func (c *Context) SetProperty(key string, value any) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	if value == nil {
		return ErrNullValue
	}
	c.props.Store(key, value)
	return nil
}

// GetProperty retrieves a property, reporting whether it was present.
func (c *Context) GetProperty(key string) (any, bool) {
	return c.props.Load(key)
}

// GetValue retrieves a property as type T, returning def if absent or of
// the wrong type.
func GetValue[T any](c *Context, key string, def T) T {
	v, ok := c.GetProperty(key)
	if !ok {
		return def
	}
	typed, ok := v.(T)
	if !ok {
		return def
	}
	return typed
}

// HasProperty reports whether key is set.
func (c *Context) HasProperty(key string) bool {
	_, ok := c.props.Load(key)
	return ok
}

// RemoveProperty deletes a property. Idempotent - no error if absent.
func (c *Context) RemoveProperty(key string) {
	c.props.Delete(key)
}

// ClearProperties removes every property.
func (c *Context) ClearProperties() {
	c.props.Range(func(k, _ any) bool {
		c.props.Delete(k)
		return true
	})
}

// Copy returns a shallow clone: a new context id, the same pipeline
// refs, a copy of the property map (values shared, not deep-copied), and
// the same cancellation state.
func (c *Context) Copy() *Context {
	clone := New(c.pipelineID, c.pipelineName)
	clone.external = c.external
	clone.manualCancel.Store(c.manualCancel.Load())

	c.props.Range(func(k, v any) bool {
		clone.props.Store(k, v)
		return true
	})
	return clone
}

// CreateChildContext returns a new Context with a fresh id, recording
// ParentContextId and ParentPipelineId, and copying only the allowlisted
// well-known properties (CorrelationId, UserId, TenantId). The child
// shares the parent's external CancelSignal and starts with the parent's
// manual-cancel state as of this call; a Cancel on the parent after the
// call does not reach the child, and a Cancel on the child does not
// reach the parent.
func (c *Context) CreateChildContext() *Context {
	child := New(c.pipelineID, c.pipelineName)
	child.external = c.external
	child.manualCancel.Store(c.manualCancel.Load())

	child.SetProperty(KeyParentContextID, c.contextID)
	child.SetProperty(KeyParentPipelineID, c.pipelineID)

	for _, key := range allowlistedChildProperties {
		if v, ok := c.props.Load(key); ok {
			child.props.Store(key, v)
		}
	}
	return child
}

// MergeFrom merges props into this context's property map. When
// overwrite is false, existing keys are preserved.
func (c *Context) MergeFrom(props map[string]any, overwrite bool) {
	for k, v := range props {
		if !overwrite && c.HasProperty(k) {
			continue
		}
		c.props.Store(k, v)
	}
}

func validKey(key string) bool {
	return strings.TrimSpace(key) != ""
}
