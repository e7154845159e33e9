package engine

import (
	"github.com/aden-hq/hive/internal/types"
)

// OutcomeStatus is the success/failure result of one invocation attempt.
type OutcomeStatus string

const (
	// OutcomeSuccess indicates the attempt completed and produced output.
	OutcomeSuccess OutcomeStatus = "success"

	// OutcomeFailure indicates the attempt failed with a classified error.
	OutcomeFailure OutcomeStatus = "failure"
)

// Outcome is the ephemeral result of a single node invocation attempt.
// Produced is present iff the attempt succeeded; Err is present iff it
// failed. The engine merges Produced into the run context only for the
// attempt that finally succeeds, so a failed attempt never half-commits.
type Outcome struct {
	Status   OutcomeStatus  `json:"status"`
	Produced map[string]any `json:"produced,omitempty"`
	Err      *types.HiveError `json:"error,omitempty"`
}

// Success creates a successful outcome with the given produced mapping.
func Success(produced map[string]any) *Outcome {
	if produced == nil {
		produced = map[string]any{}
	}
	return &Outcome{Status: OutcomeSuccess, Produced: produced}
}

// Failure creates a failed outcome carrying a classified error.
func Failure(err *types.HiveError) *Outcome {
	return &Outcome{Status: OutcomeFailure, Err: err}
}

// Succeeded reports whether the outcome is a success.
func (o *Outcome) Succeeded() bool {
	return o != nil && o.Status == OutcomeSuccess
}

// view renders the outcome as a map for predicate evaluation under the
// "outcome" namespace.
func (o *Outcome) view() map[string]any {
	m := map[string]any{
		"status": string(o.Status),
		"output": o.Produced,
	}
	if o.Err != nil {
		m["error"] = o.Err.Error()
		m["error_code"] = string(o.Err.Code)
	}
	return m
}
