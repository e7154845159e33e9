package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for Hive framework errors.
type ErrorCode string

// Graph structure error codes. These are detected by graph validation and
// never occur mid-run when validation is enforced before execution.
const (
	STRUCTURAL_INVALID ErrorCode = "STRUCTURAL_INVALID"
)

// Run error codes.
const (
	MISSING_KEY        ErrorCode = "MISSING_KEY"
	NO_MATCHING_EDGE   ErrorCode = "NO_MATCHING_EDGE"
	BUDGET_EXCEEDED    ErrorCode = "BUDGET_EXCEEDED"
	RUN_CANCELLED      ErrorCode = "RUN_CANCELLED"
	EXPRESSION_INVALID ErrorCode = "EXPRESSION_INVALID"
)

// Node invocation error codes, classified per attempt.
const (
	NODE_TIMEOUT     ErrorCode = "NODE_TIMEOUT"
	AUTH_FAILURE     ErrorCode = "AUTH_FAILURE"
	RATE_LIMITED     ErrorCode = "RATE_LIMITED"
	UPSTREAM_FAILURE ErrorCode = "UPSTREAM_FAILURE"
	INVALID_ARGS     ErrorCode = "INVALID_ARGS"
)

// Credential error codes.
const (
	MISSING_CREDENTIAL ErrorCode = "MISSING_CREDENTIAL"
)

// Model capability error codes.
const (
	MODEL_PROVIDER_NOT_FOUND ErrorCode = "MODEL_PROVIDER_NOT_FOUND"
	MODEL_COMPLETION_FAILED  ErrorCode = "MODEL_COMPLETION_FAILED"
	MODEL_RESPONSE_INVALID   ErrorCode = "MODEL_RESPONSE_INVALID"
)

// Tool error codes.
const (
	TOOL_NOT_FOUND        ErrorCode = "TOOL_NOT_FOUND"
	TOOL_ALREADY_EXISTS   ErrorCode = "TOOL_ALREADY_EXISTS"
	TOOL_EXECUTION_FAILED ErrorCode = "TOOL_EXECUTION_FAILED"
	TOOL_INVALID_INPUT    ErrorCode = "TOOL_INVALID_INPUT"
)

// Configuration error codes.
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// Session store error codes.
const (
	SESSION_NOT_FOUND   ErrorCode = "SESSION_NOT_FOUND"
	SESSION_SAVE_FAILED ErrorCode = "SESSION_SAVE_FAILED"
	SESSION_OPEN_FAILED ErrorCode = "SESSION_OPEN_FAILED"
)

// HiveError represents a structured error with error code, message, and
// optional cause. It supports error wrapping and retryability hints so the
// engine can distinguish transient node failures from structural defects.
type HiveError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *HiveError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error unwrapping chains.
func (e *HiveError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
func (e *HiveError) Is(target error) bool {
	var hiveErr *HiveError
	if errors.As(target, &hiveErr) {
		return e.Code == hiveErr.Code
	}
	return false
}

// NewError creates a new non-retryable HiveError with the given code and message.
func NewError(code ErrorCode, message string) *HiveError {
	return &HiveError{Code: code, Message: message}
}

// NewRetryableError creates a new retryable HiveError.
// Use this for transient errors that may succeed on retry.
func NewRetryableError(code ErrorCode, message string) *HiveError {
	return &HiveError{Code: code, Message: message, Retryable: true}
}

// WrapError creates a new non-retryable HiveError that wraps an existing error.
// The wrapped error is accessible via Unwrap() for error chain inspection.
func WrapError(code ErrorCode, message string, cause error) *HiveError {
	return &HiveError{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the ErrorCode from an error chain.
// Returns an empty code if the error is not a HiveError.
func CodeOf(err error) ErrorCode {
	var hiveErr *HiveError
	if errors.As(err, &hiveErr) {
		return hiveErr.Code
	}
	return ""
}
