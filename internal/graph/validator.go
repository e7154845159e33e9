package graph

import (
	"fmt"
)

// StructuralError describes one way in which a graph definition is
// malformed. Validation reports every problem found as a list, never
// raising individually; callers must check the list is empty before
// executing the graph.
type StructuralError struct {
	// Subject is the node or edge ID the problem concerns, when one applies.
	Subject string `json:"subject,omitempty"`

	// Message describes the problem.
	Message string `json:"message"`
}

// Error implements the error interface for StructuralError.
func (e StructuralError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("graph structure [%s]: %s", e.Subject, e.Message)
	}
	return fmt.Sprintf("graph structure: %s", e.Message)
}

// Validate runs all structural checks on a graph and returns every
// violation found. An empty result means the graph is safe to execute.
// Checked once before any run:
//   - the graph has at least one node and a declared entry point
//   - the entry point and every edge endpoint reference existing nodes
//   - pause and terminal node sets are subsets of the node IDs
//   - no node's output keys overlap its input keys unless it is explicitly
//     marked overwrite-safe
//   - predicate edges carry an expression; other edges do not
//   - conditional nodes declare an expression and max_retries of zero
//   - tool nodes declare exactly one tool ref
//   - edge IDs are unique and retry budgets are non-negative
func Validate(g *Graph) []StructuralError {
	var errs []StructuralError

	if g == nil {
		return []StructuralError{{Message: "graph cannot be nil"}}
	}

	if len(g.Nodes) == 0 {
		errs = append(errs, StructuralError{Message: "graph must contain at least one node"})
	}

	if g.EntryPoint == "" {
		errs = append(errs, StructuralError{Message: "graph must declare an entry point"})
	} else if _, ok := g.Nodes[g.EntryPoint]; !ok {
		errs = append(errs, StructuralError{
			Subject: g.EntryPoint,
			Message: "entry point does not reference an existing node",
		})
	}

	for id, node := range g.Nodes {
		errs = append(errs, validateNode(id, node)...)
	}

	seenEdges := make(map[string]bool)
	for i, edge := range g.Edges {
		errs = append(errs, validateEdge(g, i, edge, seenEdges)...)
	}

	for _, id := range g.PauseNodes {
		if _, ok := g.Nodes[id]; !ok {
			errs = append(errs, StructuralError{
				Subject: id,
				Message: "pause node does not reference an existing node",
			})
		}
	}
	for _, id := range g.TerminalNodes {
		if _, ok := g.Nodes[id]; !ok {
			errs = append(errs, StructuralError{
				Subject: id,
				Message: "terminal node does not reference an existing node",
			})
		}
	}

	return errs
}

func validateNode(id string, node *NodeSpec) []StructuralError {
	var errs []StructuralError

	if node == nil {
		return []StructuralError{{Subject: id, Message: "node cannot be nil"}}
	}
	if node.ID != id {
		errs = append(errs, StructuralError{
			Subject: id,
			Message: fmt.Sprintf("node is indexed under %q but declares ID %q", id, node.ID),
		})
	}
	if !node.Type.IsValid() {
		errs = append(errs, StructuralError{
			Subject: id,
			Message: fmt.Sprintf("unknown node type %q", node.Type),
		})
	}
	if node.MaxRetries < 0 {
		errs = append(errs, StructuralError{
			Subject: id,
			Message: "max_retries cannot be negative",
		})
	}

	// Output keys overwriting input keys must be an explicit choice.
	if !node.Overwrite {
		inputs := make(map[string]bool, len(node.InputKeys))
		for _, k := range node.InputKeys {
			inputs[k] = true
		}
		for _, k := range node.OutputKeys {
			if inputs[k] {
				errs = append(errs, StructuralError{
					Subject: id,
					Message: fmt.Sprintf("output key %q overlaps input keys without the overwrite marker", k),
				})
			}
		}
	}

	switch node.Type {
	case NodeTypeConditional:
		if node.Conditional == nil || node.Conditional.Expression == "" {
			errs = append(errs, StructuralError{
				Subject: id,
				Message: "conditional node must declare a branch expression",
			})
		}
		if node.MaxRetries != 0 {
			errs = append(errs, StructuralError{
				Subject: id,
				Message: "conditional node must declare max_retries of zero",
			})
		}
	case NodeTypeTool:
		if len(node.ToolRefs) != 1 {
			errs = append(errs, StructuralError{
				Subject: id,
				Message: fmt.Sprintf("tool node must declare exactly one tool ref, got %d", len(node.ToolRefs)),
			})
		}
	case NodeTypeModel:
		if node.Instructions == "" {
			errs = append(errs, StructuralError{
				Subject: id,
				Message: "model node must declare instructions",
			})
		}
	}

	return errs
}

func validateEdge(g *Graph, index int, edge EdgeSpec, seen map[string]bool) []StructuralError {
	var errs []StructuralError

	subject := edge.ID
	if subject == "" {
		subject = fmt.Sprintf("edge[%d]", index)
		errs = append(errs, StructuralError{
			Subject: subject,
			Message: "edge must declare an ID",
		})
	} else if seen[edge.ID] {
		errs = append(errs, StructuralError{
			Subject: subject,
			Message: "duplicate edge ID",
		})
	} else {
		seen[edge.ID] = true
	}

	if _, ok := g.Nodes[edge.Source]; !ok {
		errs = append(errs, StructuralError{
			Subject: subject,
			Message: fmt.Sprintf("edge references non-existent source node %q", edge.Source),
		})
	}
	if _, ok := g.Nodes[edge.Target]; !ok {
		errs = append(errs, StructuralError{
			Subject: subject,
			Message: fmt.Sprintf("edge references non-existent target node %q", edge.Target),
		})
	}

	if !edge.Condition.IsValid() {
		errs = append(errs, StructuralError{
			Subject: subject,
			Message: fmt.Sprintf("unknown edge condition %q", edge.Condition),
		})
	}
	if edge.Condition == EdgePredicate && edge.PredicateExpr == "" {
		errs = append(errs, StructuralError{
			Subject: subject,
			Message: "predicate edge must declare a predicate expression",
		})
	}
	if edge.Condition != EdgePredicate && edge.PredicateExpr != "" {
		errs = append(errs, StructuralError{
			Subject: subject,
			Message: fmt.Sprintf("predicate expression is only meaningful on predicate edges, not %q", edge.Condition),
		})
	}

	return errs
}
