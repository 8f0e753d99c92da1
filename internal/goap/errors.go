package goap

import (
	"errors"
	"fmt"
)

// ErrorKind classifies planning and execution failures.
type ErrorKind string

const (
	// KindPlanningFailure: no action sequence reaches the goal within the
	// search bound.
	KindPlanningFailure ErrorKind = "planning_failure"

	// KindPreconditionViolation: a planned action was no longer applicable
	// when its turn came.
	KindPreconditionViolation ErrorKind = "precondition_violation"

	// KindExecutionFailure: an action's Execute reported failure.
	KindExecutionFailure ErrorKind = "execution_failure"

	// KindReplanExhausted: the replan budget ran out, or a replan found no
	// plan.
	KindReplanExhausted ErrorKind = "replan_exhausted"

	// KindCancelled: the caller's context ended execution.
	KindCancelled ErrorKind = "cancelled"

	// KindInvalidRequest: the request itself was malformed.
	KindInvalidRequest ErrorKind = "invalid_request"
)

func (k ErrorKind) String() string { return string(k) }

// Sentinels for errors.Is. Any *Error matches the sentinel of its kind.
var (
	ErrPlanningFailure       = &Error{Kind: KindPlanningFailure, Message: "no plan reaches the goal"}
	ErrPreconditionViolation = &Error{Kind: KindPreconditionViolation, Message: "action preconditions not met"}
	ErrExecutionFailure      = &Error{Kind: KindExecutionFailure, Message: "action execution failed"}
	ErrReplanExhausted       = &Error{Kind: KindReplanExhausted, Message: "replanning exhausted"}
	ErrCancelled             = &Error{Kind: KindCancelled, Message: "execution cancelled"}
	ErrInvalidRequest        = &Error{Kind: KindInvalidRequest, Message: "invalid request"}
)

// Error is a classified planning or execution failure.
type Error struct {
	Kind    ErrorKind
	Message string
	// ActionID names the action involved, if any.
	ActionID string
	Cause    error
	// Context carries extra diagnostic fields.
	Context map[string]any
}

// NewError creates an Error of the given kind.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an Error of the given kind around cause.
func WrapError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.ActionID != "" {
		msg += fmt.Sprintf(" (action=%s)", e.ActionID)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error with the same kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// WithAction sets ActionID and returns e.
func (e *Error) WithAction(id string) *Error {
	e.ActionID = id
	return e
}

// WithContext adds a diagnostic field and returns e.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
