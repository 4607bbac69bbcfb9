package engine

import (
	"errors"
	"fmt"
)

// SchedulerErrorCode categorizes tick state errors.
type SchedulerErrorCode string

const (
	// ErrCodeTickAlreadyStarted indicates BeginTick was called while a tick
	// was already active.
	ErrCodeTickAlreadyStarted SchedulerErrorCode = "TICK_ALREADY_STARTED"

	// ErrCodeTickNotStarted indicates a tick operation was attempted while
	// the scheduler was idle.
	ErrCodeTickNotStarted SchedulerErrorCode = "TICK_NOT_STARTED"

	// ErrCodeInvalidAbortKind indicates AbortTick was given a commit event.
	ErrCodeInvalidAbortKind SchedulerErrorCode = "INVALID_ABORT_KIND"
)

// SchedulerError is returned by tick lifecycle operations used in the wrong
// state. Compare with errors.Is against the sentinels below.
type SchedulerError struct {
	Code SchedulerErrorCode

	// Op names the operation that failed (BeginTick, EnqueueOp, ...).
	Op string
}

// Sentinels for errors.Is. Their Op is empty and matches any operation.
var (
	ErrTickAlreadyStarted = &SchedulerError{Code: ErrCodeTickAlreadyStarted}
	ErrTickNotStarted     = &SchedulerError{Code: ErrCodeTickNotStarted}
	ErrInvalidAbortKind   = &SchedulerError{Code: ErrCodeInvalidAbortKind}
)

func (e *SchedulerError) Error() string {
	var msg string
	switch e.Code {
	case ErrCodeTickAlreadyStarted:
		msg = "tick already started"
	case ErrCodeTickNotStarted:
		msg = "tick not started"
	case ErrCodeInvalidAbortKind:
		msg = "abort requires a rollback or fallback event"
	default:
		msg = string(e.Code)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

// Is matches any SchedulerError with the same code.
func (e *SchedulerError) Is(target error) bool {
	t, ok := target.(*SchedulerError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newSchedulerError(code SchedulerErrorCode, op string) *SchedulerError {
	return &SchedulerError{Code: code, Op: op}
}

// IsSchedulerError reports whether err wraps a SchedulerError.
// Uses errors.As to handle wrapped errors.
func IsSchedulerError(err error) bool {
	var se *SchedulerError
	return errors.As(err, &se)
}

// ErrorCode returns the code of a wrapped SchedulerError, or "" if err is
// not one.
func ErrorCode(err error) SchedulerErrorCode {
	var se *SchedulerError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
