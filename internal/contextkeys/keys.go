// Package contextkeys defines the shared context keys that flow through a
// run. It exists so the engine, tools, and providers can exchange run
// metadata without importing each other.
package contextkeys

import "context"

// Key is the type for all hive context keys.
type Key string

const (
	// RunID carries the identifier of the run currently executing.
	// Tools and providers read it for audit logging and idempotency keys.
	RunID Key = "hive.run_id"

	// NodeID carries the identifier of the node being invoked.
	NodeID Key = "hive.node_id"
)

// WithRunID returns a context carrying the run identifier.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunID, runID)
}

// RunIDFrom returns the run identifier, or "" if not set.
func RunIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(RunID).(string); ok {
		return v
	}
	return ""
}

// WithNodeID returns a context carrying the node identifier.
func WithNodeID(ctx context.Context, nodeID string) context.Context {
	return context.WithValue(ctx, NodeID, nodeID)
}

// NodeIDFrom returns the node identifier, or "" if not set.
func NodeIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(NodeID).(string); ok {
		return v
	}
	return ""
}
