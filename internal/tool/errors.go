package tool

import (
	"errors"

	"github.com/aden-hq/hive/internal/types"
)

// Helper constructors for the classified tool error kinds. Tool
// implementations should return these so the invoker can route failures
// without string matching.

// NewAuthError reports an authentication or authorization failure.
func NewAuthError(msg string) error {
	return types.NewError(types.AUTH_FAILURE, msg)
}

// NewNotFoundError reports a missing upstream resource.
func NewNotFoundError(msg string) error {
	return types.NewError(types.TOOL_NOT_FOUND, msg)
}

// NewRateLimitedError reports an upstream rate limit; retryable.
func NewRateLimitedError(msg string) error {
	return types.NewRetryableError(types.RATE_LIMITED, msg)
}

// NewInvalidArgsError reports arguments the tool cannot accept.
func NewInvalidArgsError(msg string) error {
	return types.NewError(types.INVALID_ARGS, msg)
}

// NewUpstreamError reports a failure in the external system; retryable.
func NewUpstreamError(msg string) error {
	return types.NewRetryableError(types.UPSTREAM_FAILURE, msg)
}

func asHiveError(err error, target **types.HiveError) bool {
	return errors.As(err, target)
}
