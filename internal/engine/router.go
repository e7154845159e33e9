package engine

import (
	"fmt"
	"sort"

	"github.com/aden-hq/hive/internal/graph"
	"github.com/aden-hq/hive/internal/types"
)

// Router selects the next node after a step completes. Exactly one edge is
// taken per step; the executor models a single active cursor through the
// graph, not a fan-out dataflow.
type Router struct {
	evaluator *Evaluator
}

// NewRouter creates a Router using the given expression evaluator.
func NewRouter(evaluator *Evaluator) *Router {
	return &Router{evaluator: evaluator}
}

// Select returns the target node ID of the first matching edge out of
// sourceID, or ("", false) when no edge matches. Edges are evaluated in
// ascending priority order, ties broken by declaration order.
//
// Condition matching:
//   - always: matches unconditionally
//   - on_success / on_failure: match iff the outcome status agrees
//   - predicate: matches iff the expression evaluates true against the
//     run context merged with the source node's outcome
func (r *Router) Select(g *graph.Graph, sourceID string, outcome *Outcome, rc *Context) (string, bool, error) {
	edges := g.EdgesFrom(sourceID)
	if len(edges) == 0 {
		return "", false, nil
	}

	// EdgesFrom preserves declaration order, so a stable sort on priority
	// keeps the declared tie-break.
	sorted := make([]graph.EdgeSpec, len(edges))
	copy(sorted, edges)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	for _, edge := range sorted {
		matched, err := r.matches(edge, outcome, rc)
		if err != nil {
			return "", false, err
		}
		if matched {
			return edge.Target, true, nil
		}
	}
	return "", false, nil
}

func (r *Router) matches(edge graph.EdgeSpec, outcome *Outcome, rc *Context) (bool, error) {
	switch edge.Condition {
	case graph.EdgeAlways:
		return true, nil
	case graph.EdgeOnSuccess:
		return outcome.Status == OutcomeSuccess, nil
	case graph.EdgeOnFailure:
		return outcome.Status == OutcomeFailure, nil
	case graph.EdgePredicate:
		ec := &EvalContext{Context: rc.Snapshot(), Outcome: outcome}
		return r.evaluator.Evaluate(edge.PredicateExpr, ec)
	default:
		return false, types.NewError(types.STRUCTURAL_INVALID,
			fmt.Sprintf("edge %s has unknown condition %q", edge.ID, edge.Condition))
	}
}
