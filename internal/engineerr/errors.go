// Package engineerr defines the structural error kinds the insights engine
// surfaces, per the propagation policy: tool failures and insufficient data
// are reported into the conversation (never raised as Go errors), while
// deadlines, cancellation, and model-unresponsiveness are terminal and typed.
package engineerr

import (
	"errors"
	"fmt"
	"time"
)

// Sentinels usable with errors.Is against any of the wrapped kinds below.
var (
	ErrStore             = errors.New("store error")
	ErrTool              = errors.New("tool error")
	ErrParse             = errors.New("parse error")
	ErrModelUnresponsive = errors.New("model unresponsive")
	ErrDeadline          = errors.New("deadline exceeded")
	ErrCancelled         = errors.New("cancelled")
	ErrValidation        = errors.New("validation error")
)

// StoreError wraps a transient or permanent failure from the telemetry
// store adapter. The engine degrades by substituting insufficient-data
// results rather than aborting.
type StoreError struct {
	Op      string
	Err     error
	Retried int
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s failed after %d attempt(s): %v", e.Op, e.Retried+1, e.Err)
}

func (e *StoreError) Unwrap() error { return ErrStore }
func (e *StoreError) Cause() error  { return e.Err }

// ToolError describes a parameter-validation or downstream failure in the
// tool executor. It is never raised into the runner loop; it is rendered
// into the tool response payload and the conversation.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string { return fmt.Sprintf("tool %q: %s", e.Tool, e.Message) }
func (e *ToolError) Unwrap() error  { return ErrTool }

// ParseError records why a model response could not be parsed as the
// expected tagged-union JSON shape.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse: %s", e.Reason) }
func (e *ParseError) Unwrap() error  { return ErrParse }

// ModelUnresponsive is terminal: the model produced two or more consecutive
// empty responses despite reminders.
type ModelUnresponsive struct {
	Iteration int
}

func (e *ModelUnresponsive) Error() string {
	return fmt.Sprintf("model produced no usable output by iteration %d", e.Iteration)
}
func (e *ModelUnresponsive) Unwrap() error { return ErrModelUnresponsive }

// Deadline is terminal: either the per-iteration or the total budget was
// exceeded. It surfaces the iteration and elapsed wall time so callers can
// render an actionable message.
type Deadline struct {
	Scope     string // "iteration" or "total"
	Iteration int
	MaxIters  int
	Elapsed   time.Duration
}

func (e *Deadline) Error() string {
	return fmt.Sprintf("AI processing took too long at iteration %d/%d (%.1fs elapsed). Try simplifying your question.",
		e.Iteration, e.MaxIters, e.Elapsed.Seconds())
}
func (e *Deadline) Unwrap() error { return ErrDeadline }

// Cancelled is terminal: the caller's cancellation signal fired at a
// suspension point.
type Cancelled struct {
	Scope string
}

func (e *Cancelled) Error() string { return fmt.Sprintf("cancelled during %s", e.Scope) }
func (e *Cancelled) Unwrap() error  { return ErrCancelled }

// ValidationError records a violated physical invariant in an incoming
// snapshot. It is attached to the result, not raised, so the reasoning loop
// can continue to reason about a snapshot it still considers useful.
type ValidationError struct {
	Field   string
	Message string
	Critical bool
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}
func (e *ValidationError) Unwrap() error { return ErrValidation }
