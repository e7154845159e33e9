// Package engine executes workflow graphs as a deterministic state machine.
//
// Each run walks a validated graph with a single active cursor: the current
// node is invoked (with per-node retry), its produced output is merged into
// the run context, and the edge router selects the next node from the
// outcome and context. Pause nodes suspend the run into a serializable
// Snapshot; terminal nodes end it. Cycles are allowed and bounded by a
// caller-configured step budget rather than static acyclicity checks.
//
// Runs never share mutable state: the Context belongs to exactly one run,
// while graph definitions, tool registries, and credential stores are
// treated as immutable after initialization and may be shared freely.
package engine
