package graph

// EdgeCondition defines when an edge is eligible for traversal.
type EdgeCondition string

const (
	// EdgeAlways matches regardless of the source node's outcome.
	EdgeAlways EdgeCondition = "always"

	// EdgeOnSuccess matches iff the source node's final outcome succeeded.
	EdgeOnSuccess EdgeCondition = "on_success"

	// EdgeOnFailure matches iff the source node's final outcome failed.
	EdgeOnFailure EdgeCondition = "on_failure"

	// EdgePredicate matches iff the predicate expression evaluates truthy
	// against the run context merged with the source node's outcome.
	EdgePredicate EdgeCondition = "predicate"
)

// String returns the string representation of the edge condition.
func (c EdgeCondition) String() string {
	return string(c)
}

// IsValid checks if the EdgeCondition is a known value.
func (c EdgeCondition) IsValid() bool {
	switch c {
	case EdgeAlways, EdgeOnSuccess, EdgeOnFailure, EdgePredicate:
		return true
	default:
		return false
	}
}

// EdgeSpec represents a directed, conditioned transition between two nodes.
// Immutable once the graph is built.
type EdgeSpec struct {
	// ID is the unique identifier of this edge within its graph.
	ID string `json:"id" yaml:"id"`

	// Source is the NodeSpec ID this edge leaves from.
	Source string `json:"source" yaml:"source"`

	// Target is the NodeSpec ID this edge leads to.
	Target string `json:"target" yaml:"target"`

	// Condition gates traversal of this edge.
	Condition EdgeCondition `json:"condition" yaml:"condition"`

	// PredicateExpr is the boolean expression for predicate edges.
	// Present only when Condition is EdgePredicate.
	PredicateExpr string `json:"predicate_expr,omitempty" yaml:"predicate_expr,omitempty"`

	// Priority orders evaluation among edges sharing the same source.
	// Lower values are evaluated first; ties break by declaration order.
	Priority int `json:"priority,omitempty" yaml:"priority,omitempty"`
}
