package graph

import (
	"time"

	"github.com/aden-hq/hive/internal/types"
)

// Graph is an immutable description of a workflow: nodes, conditioned
// edges, one entry point, pause points, and terminal points. A graph may
// contain cycles; no static acyclicity check is performed. Safety under
// cycles is enforced dynamically by the engine's step budget.
type Graph struct {
	// ID is the unique identifier for this graph.
	ID types.ID `json:"id" yaml:"id"`

	// Name is a human-readable name for the graph.
	Name string `json:"name" yaml:"name"`

	// Version identifies this graph revision. Session snapshots record it
	// so a resume is only accepted against the same revision.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Goal is the declared goal reference this graph drives toward.
	// Opaque to the executor; carried into results for external evaluators.
	Goal string `json:"goal,omitempty" yaml:"goal,omitempty"`

	// Nodes contains all nodes in the graph, indexed by node ID.
	Nodes map[string]*NodeSpec `json:"nodes" yaml:"nodes"`

	// Edges is the ordered sequence of directed edges. Declaration order
	// is the stable tie-break for routing priority.
	Edges []EdgeSpec `json:"edges" yaml:"edges"`

	// EntryPoint is the node ID at which every fresh run begins.
	EntryPoint string `json:"entry_point" yaml:"entry_point"`

	// PauseNodes are node IDs at which execution suspends before
	// invocation, awaiting external input.
	PauseNodes []string `json:"pause_nodes,omitempty" yaml:"pause_nodes,omitempty"`

	// TerminalNodes are node IDs after which execution ends regardless of
	// outgoing edges.
	TerminalNodes []string `json:"terminal_nodes,omitempty" yaml:"terminal_nodes,omitempty"`

	// CreatedAt is the timestamp when the graph was built.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// GetNode retrieves a node by its ID. Returns nil if not found.
func (g *Graph) GetNode(id string) *NodeSpec {
	if g.Nodes == nil {
		return nil
	}
	return g.Nodes[id]
}

// IsPauseNode reports whether the given node ID is a pause point.
func (g *Graph) IsPauseNode(id string) bool {
	for _, p := range g.PauseNodes {
		if p == id {
			return true
		}
	}
	return false
}

// IsTerminalNode reports whether the given node ID is a terminal point.
func (g *Graph) IsTerminalNode(id string) bool {
	for _, t := range g.TerminalNodes {
		if t == id {
			return true
		}
	}
	return false
}

// EdgesFrom returns the edges leaving the given node, in declaration order.
func (g *Graph) EdgesFrom(sourceID string) []EdgeSpec {
	var out []EdgeSpec
	for _, e := range g.Edges {
		if e.Source == sourceID {
			out = append(out, e)
		}
	}
	return out
}
