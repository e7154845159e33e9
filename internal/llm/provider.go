// Package llm defines the boundary to the external model capability. The
// executor treats a completion as an opaque asynchronous operation with a
// success or failure outcome and a result payload; provider implementations
// live outside this module and are registered at startup.
package llm

import (
	"context"
)

// Request carries everything a model node hands to the capability: the
// node's instructions, the subset of run context at its input keys, and
// the tools the node may use.
type Request struct {
	// Instructions is the free-text guidance from the node spec.
	Instructions string `json:"instructions"`

	// Context is the run context restricted to the node's input keys.
	Context map[string]any `json:"context,omitempty"`

	// ToolRefs names the external tools usable during this completion.
	ToolRefs []string `json:"tool_refs,omitempty"`
}

// Response is the provider's answer. Exactly one of Text or Structured is
// expected to be populated; Structured takes precedence when both are.
type Response struct {
	// Text is the plain-text completion.
	Text string `json:"text,omitempty"`

	// Structured is a structured completion keyed by output name.
	Structured map[string]any `json:"structured,omitempty"`
}

// Provider is the interface every model capability must implement.
type Provider interface {
	// Name returns the provider name (e.g. "anthropic", "openai", "local").
	Name() string

	// Complete sends a completion request and blocks until the full
	// response is available or ctx is done. Failures are returned as
	// classified errors; see errors.go.
	Complete(ctx context.Context, req Request) (*Response, error)
}
