// Package tool defines the boundary to external tool capabilities and a
// thread-safe registry for them. Tool implementations (calendar wrappers,
// API clients) live outside this module; the executor only needs a name,
// the credentials a tool requires, and a call surface whose failures come
// back classified rather than raised.
package tool

import (
	"context"
)

// Tool represents an atomic external operation callable from a graph node.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	Description() string

	// Credentials returns the names of the secrets this tool requires.
	// The engine checks their availability before any node declaring this
	// tool is invoked.
	Credentials() []string

	// Execute runs the tool with the given arguments. Errors must be
	// classified Hive errors (auth, not found, rate limited, invalid args,
	// upstream failure); they are routed as node failures, never raised
	// past the invoker boundary.
	Execute(ctx context.Context, args map[string]any) (map[string]any, error)
}

// Descriptor summarizes a registered tool for discovery.
type Descriptor struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Credentials []string `json:"credentials,omitempty"`
}
