package graph

import "time"

// NodeType defines how a node is executed.
type NodeType string

const (
	// NodeTypeModel delegates to the external model capability with the
	// node's instructions and context subset.
	NodeTypeModel NodeType = "model"

	// NodeTypeTool invokes exactly one declared external tool.
	NodeTypeTool NodeType = "tool"

	// NodeTypeConditional is a pure function of context to a produced
	// mapping, with no external call.
	NodeTypeConditional NodeType = "conditional"

	// NodeTypeTerminalPass is an identity passthrough marking a graph
	// endpoint with no computation.
	NodeTypeTerminalPass NodeType = "terminal-pass"
)

// String returns the string representation of the node type.
func (t NodeType) String() string {
	return string(t)
}

// IsValid checks if the NodeType is one of the closed set of variants.
func (t NodeType) IsValid() bool {
	switch t {
	case NodeTypeModel, NodeTypeTool, NodeTypeConditional, NodeTypeTerminalPass:
		return true
	default:
		return false
	}
}

// ConditionalSpec defines the branch logic of a conditional node.
// The expression is evaluated against the run context; the matching
// produced mapping becomes the node's output.
type ConditionalSpec struct {
	// Expression is a boolean expression over the run context.
	Expression string `json:"expression" yaml:"expression"`

	// IfTrue is the produced mapping when the expression is truthy.
	IfTrue map[string]any `json:"if_true,omitempty" yaml:"if_true,omitempty"`

	// IfFalse is the produced mapping when the expression is falsy.
	IfFalse map[string]any `json:"if_false,omitempty" yaml:"if_false,omitempty"`
}

// NodeSpec describes a single unit of work in a graph. It is immutable:
// created at build time and never mutated at run time.
type NodeSpec struct {
	// ID is the unique identifier of this node within its graph.
	ID string `json:"id" yaml:"id"`

	// Type selects the execution strategy for this node.
	Type NodeType `json:"type" yaml:"type"`

	// InputKeys are the context keys that must be present before invocation.
	InputKeys []string `json:"input_keys,omitempty" yaml:"input_keys,omitempty"`

	// OutputKeys are the context keys this node is expected to populate
	// on success.
	OutputKeys []string `json:"output_keys,omitempty" yaml:"output_keys,omitempty"`

	// Instructions is free-text guidance passed to a model node's
	// underlying capability.
	Instructions string `json:"instructions,omitempty" yaml:"instructions,omitempty"`

	// ToolRefs names the external tools usable by this node. Only
	// meaningful for model and tool nodes; a tool node declares exactly one.
	ToolRefs []string `json:"tool_refs,omitempty" yaml:"tool_refs,omitempty"`

	// MaxRetries is the number of additional attempts after the first
	// failure. Zero means a single attempt.
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`

	// Timeout bounds a single invocation attempt of this node. Zero means
	// no per-node timeout.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Overwrite marks this node as explicitly allowed to overwrite its own
	// input keys with its outputs. Without it, overlapping input and output
	// keys are a structural error.
	Overwrite bool `json:"overwrite,omitempty" yaml:"overwrite,omitempty"`

	// Conditional holds the branch logic for conditional nodes.
	Conditional *ConditionalSpec `json:"conditional,omitempty" yaml:"conditional,omitempty"`
}
