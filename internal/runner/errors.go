// Package runner hosts the orchestrator that drives a run end to end:
// admission, session locking, the turn loop, tool rounds, event emission,
// and terminal classification.
package runner

import (
	"errors"
	"fmt"
)

// Error kinds. Retryability is decided by substring match against the
// configured retryable kinds.
const (
	KindInvalidTransition = "invalid_transition"
	KindInvalidRequest    = "invalid_request"
	KindAcquireTimeout    = "acquire_timeout"
	KindCancelled         = "cancelled"
	KindMaxRetries        = "max_retries_exceeded"
	KindToolExecution     = "tool_execution_error"
	KindStreamClosed      = "stream_closed"
	KindRateLimit         = "rate_limit"
	KindOverloaded        = "overloaded"
	KindTimeout           = "timeout"
	KindUnavailable       = "unavailable"
)

// Error is a kinded runner error.
type Error struct {
	Kind    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message != "" {
			return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind exposes the kind for retry matching.
func (e *Error) ErrorKind() string { return e.Kind }

// NewError creates a kinded error with a formatted message.
func NewError(kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind to an underlying error.
func WrapError(kind string, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of err if it is (or wraps) a runner Error.
func KindOf(err error) string {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}
