package llm

import (
	"context"
	"errors"

	"github.com/aden-hq/hive/internal/types"
)

// Model capability error codes follow the Hive error pattern.
const (
	ErrProviderNotFound     types.ErrorCode = types.MODEL_PROVIDER_NOT_FOUND
	ErrProviderUnauthorized types.ErrorCode = types.AUTH_FAILURE
	ErrProviderRateLimited  types.ErrorCode = types.RATE_LIMITED
	ErrCompletionFailed     types.ErrorCode = types.MODEL_COMPLETION_FAILED
	ErrResponseInvalid      types.ErrorCode = types.MODEL_RESPONSE_INVALID
	ErrTimeoutExceeded      types.ErrorCode = types.NODE_TIMEOUT
	ErrUpstreamFailure      types.ErrorCode = types.UPSTREAM_FAILURE
)

// IsRetryable determines if an error is transient and may succeed on retry.
// Context cancellation and auth failures never are; rate limits, timeouts,
// and upstream failures may succeed after the node's retry delay.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var hiveErr *types.HiveError
	if !errors.As(err, &hiveErr) {
		return false
	}
	if hiveErr.Retryable {
		return true
	}

	switch hiveErr.Code {
	case ErrProviderRateLimited, ErrTimeoutExceeded, ErrUpstreamFailure:
		return true
	default:
		return false
	}
}
