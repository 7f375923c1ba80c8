package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for loom errors.
type ErrorCode string

// Graph reference error codes
const (
	REF_NODE_NOT_FOUND ErrorCode = "REF_NODE_NOT_FOUND"
	REF_NODE_EXISTS    ErrorCode = "REF_NODE_EXISTS"
	REF_EDGE_NOT_FOUND ErrorCode = "REF_EDGE_NOT_FOUND"
	REF_EDGE_EXISTS    ErrorCode = "REF_EDGE_EXISTS"
	REF_SELF_LOOP      ErrorCode = "REF_SELF_LOOP"
	REF_CONFIG_KIND    ErrorCode = "REF_CONFIG_KIND"
)

// Layout error codes
const (
	LAYOUT_BAD_DIRECTION ErrorCode = "LAYOUT_BAD_DIRECTION"
	LAYOUT_NIL_WORKFLOW  ErrorCode = "LAYOUT_NIL_WORKFLOW"
)

// Execution service error codes
const (
	EXEC_COMMAND_FAILED ErrorCode = "EXEC_COMMAND_FAILED"
	EXEC_STREAM_FAILED  ErrorCode = "EXEC_STREAM_FAILED"
	EXEC_NOT_CONNECTED  ErrorCode = "EXEC_NOT_CONNECTED"
	EXEC_BAD_TRANSITION ErrorCode = "EXEC_BAD_TRANSITION"
)

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// Tracing error codes
const (
	TRACE_INIT_FAILED     ErrorCode = "TRACE_INIT_FAILED"
	TRACE_SHUTDOWN_FAILED ErrorCode = "TRACE_SHUTDOWN_FAILED"
)

// LoomError represents a structured error with error code, message, and optional cause.
// It supports error wrapping and retryability hints for error handling logic.
type LoomError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *LoomError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
// This enables using errors.Is() and errors.As() with wrapped errors.
func (e *LoomError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
// Returns true if target is a LoomError with the same Code.
func (e *LoomError) Is(target error) bool {
	var loomErr *LoomError
	if errors.As(target, &loomErr) {
		return e.Code == loomErr.Code
	}
	return false
}

// NewError creates a new non-retryable LoomError with the given code and message.
func NewError(code ErrorCode, message string) *LoomError {
	return &LoomError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     nil,
	}
}

// NewRetryableError creates a new retryable LoomError with the given code and message.
// Use this for transient errors that may succeed on retry (e.g., network timeouts).
func NewRetryableError(code ErrorCode, message string) *LoomError {
	return &LoomError{
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     nil,
	}
}

// WrapError creates a new non-retryable LoomError that wraps an existing error.
// The wrapped error is accessible via Unwrap() for error chain inspection.
func WrapError(code ErrorCode, message string, cause error) *LoomError {
	return &LoomError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     cause,
	}
}

// IsRetryable reports whether err (or any error in its chain) is a
// LoomError marked retryable.
func IsRetryable(err error) bool {
	var loomErr *LoomError
	if errors.As(err, &loomErr) {
		return loomErr.Retryable
	}
	return false
}
