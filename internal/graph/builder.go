package graph

import (
	"fmt"
	"time"

	"github.com/aden-hq/hive/internal/types"
)

// Builder provides a fluent API for constructing graphs.
// It accumulates errors during building and reports them all at Build()
// time, together with the structural validation of the finished graph.
type Builder struct {
	graph  *Graph
	errors []error
}

// New creates a Builder with an initialized empty graph.
func New(name string) *Builder {
	return &Builder{
		graph: &Graph{
			ID:        types.NewID(),
			Name:      name,
			Nodes:     make(map[string]*NodeSpec),
			Edges:     []EdgeSpec{},
			CreatedAt: time.Now(),
		},
	}
}

// WithVersion sets the graph revision identifier.
func (b *Builder) WithVersion(version string) *Builder {
	b.graph.Version = version
	return b
}

// WithGoal sets the declared goal reference for the graph.
func (b *Builder) WithGoal(goal string) *Builder {
	b.graph.Goal = goal
	return b
}

// AddNode adds a fully specified node. If a node with the same ID already
// exists, an error is accumulated.
func (b *Builder) AddNode(node *NodeSpec) *Builder {
	if node == nil {
		b.errors = append(b.errors, fmt.Errorf("cannot add nil node"))
		return b
	}
	if node.ID == "" {
		b.errors = append(b.errors, fmt.Errorf("node must have an ID"))
		return b
	}
	if _, exists := b.graph.Nodes[node.ID]; exists {
		b.errors = append(b.errors, fmt.Errorf("node with ID %q already exists", node.ID))
		return b
	}
	b.graph.Nodes[node.ID] = node
	return b
}

// AddModelNode is a helper that creates and adds a model node.
func (b *Builder) AddModelNode(id, instructions string, inputKeys, outputKeys []string, toolRefs ...string) *Builder {
	if instructions == "" {
		b.errors = append(b.errors, fmt.Errorf("model node %q must have instructions", id))
		return b
	}
	return b.AddNode(&NodeSpec{
		ID:           id,
		Type:         NodeTypeModel,
		Instructions: instructions,
		InputKeys:    inputKeys,
		OutputKeys:   outputKeys,
		ToolRefs:     toolRefs,
	})
}

// AddToolNode is a helper that creates and adds a tool node bound to a
// single external tool.
func (b *Builder) AddToolNode(id, toolRef string, inputKeys, outputKeys []string) *Builder {
	if toolRef == "" {
		b.errors = append(b.errors, fmt.Errorf("tool node %q must have a tool ref", id))
		return b
	}
	return b.AddNode(&NodeSpec{
		ID:         id,
		Type:       NodeTypeTool,
		ToolRefs:   []string{toolRef},
		InputKeys:  inputKeys,
		OutputKeys: outputKeys,
	})
}

// AddConditionalNode is a helper that creates and adds a conditional node.
func (b *Builder) AddConditionalNode(id string, spec *ConditionalSpec, outputKeys []string) *Builder {
	if spec == nil || spec.Expression == "" {
		b.errors = append(b.errors, fmt.Errorf("conditional node %q must have a non-empty expression", id))
		return b
	}
	return b.AddNode(&NodeSpec{
		ID:          id,
		Type:        NodeTypeConditional,
		Conditional: spec,
		OutputKeys:  outputKeys,
	})
}

// AddTerminalPassNode is a helper that creates and adds a terminal-pass
// node and marks it as a terminal point of the graph.
func (b *Builder) AddTerminalPassNode(id string) *Builder {
	b.AddNode(&NodeSpec{ID: id, Type: NodeTypeTerminalPass})
	b.graph.TerminalNodes = append(b.graph.TerminalNodes, id)
	return b
}

// AddEdge adds a directed edge with the given condition.
func (b *Builder) AddEdge(id, source, target string, condition EdgeCondition) *Builder {
	if source == "" || target == "" {
		b.errors = append(b.errors, fmt.Errorf("edge %q must have non-empty source and target", id))
		return b
	}
	b.graph.Edges = append(b.graph.Edges, EdgeSpec{
		ID:        id,
		Source:    source,
		Target:    target,
		Condition: condition,
	})
	return b
}

// AddPredicateEdge adds a directed edge gated by a boolean expression.
func (b *Builder) AddPredicateEdge(id, source, target, expr string, priority int) *Builder {
	if expr == "" {
		b.errors = append(b.errors, fmt.Errorf("predicate edge %q must have a non-empty expression", id))
		return b
	}
	b.graph.Edges = append(b.graph.Edges, EdgeSpec{
		ID:            id,
		Source:        source,
		Target:        target,
		Condition:     EdgePredicate,
		PredicateExpr: expr,
		Priority:      priority,
	})
	return b
}

// WithPriority sets the priority of the most recently added edge.
func (b *Builder) WithPriority(priority int) *Builder {
	if len(b.graph.Edges) == 0 {
		b.errors = append(b.errors, fmt.Errorf("no edge to set priority on"))
		return b
	}
	b.graph.Edges[len(b.graph.Edges)-1].Priority = priority
	return b
}

// WithEntryPoint declares the node every fresh run begins at.
func (b *Builder) WithEntryPoint(id string) *Builder {
	b.graph.EntryPoint = id
	return b
}

// WithPauseNodes declares nodes at which execution suspends for external
// input before invocation.
func (b *Builder) WithPauseNodes(ids ...string) *Builder {
	b.graph.PauseNodes = append(b.graph.PauseNodes, ids...)
	return b
}

// WithTerminalNodes declares nodes after which execution ends regardless
// of outgoing edges.
func (b *Builder) WithTerminalNodes(ids ...string) *Builder {
	b.graph.TerminalNodes = append(b.graph.TerminalNodes, ids...)
	return b
}

// Build runs structural validation and returns the constructed graph, or
// the accumulated build and validation errors.
func (b *Builder) Build() (*Graph, error) {
	errs := b.errors
	for _, se := range Validate(b.graph) {
		errs = append(errs, se)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("graph build failed with %d error(s): %v", len(errs), errs)
	}
	return b.graph, nil
}
