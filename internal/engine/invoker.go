package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aden-hq/hive/internal/graph"
	"github.com/aden-hq/hive/internal/llm"
	"github.com/aden-hq/hive/internal/tool"
	"github.com/aden-hq/hive/internal/types"
)

// Invoker adapts a node's declared type to its underlying capability and
// reports a structured outcome. Failures are always classified into the
// outcome, never raised past this boundary; only programming errors
// (nil node, unknown type) surface as panics upstream of validation.
type Invoker interface {
	// Invoke runs a single attempt of the node against the given context
	// view (the run context restricted to the node's input keys). Exactly
	// one external call is made per attempt for model and tool nodes, zero
	// for the others.
	Invoke(ctx context.Context, node *graph.NodeSpec, inputs map[string]any) *Outcome

	// Mocked reports whether this invoker substitutes canned outcomes for
	// external calls. Results produced through a mocked invoker must never
	// be mistaken for a real run.
	Mocked() bool
}

// LiveInvoker dispatches node invocations to the real model provider and
// tool registry.
type LiveInvoker struct {
	provider       llm.Provider
	tools          *tool.Registry
	evaluator      *Evaluator
	defaultTimeout time.Duration
}

// LiveOption configures a LiveInvoker.
type LiveOption func(*LiveInvoker)

// WithDefaultTimeout bounds invocation attempts for nodes that declare no
// timeout of their own. Zero leaves such attempts unbounded.
func WithDefaultTimeout(d time.Duration) LiveOption {
	return func(inv *LiveInvoker) {
		inv.defaultTimeout = d
	}
}

// NewLiveInvoker creates an invoker backed by a model provider and a tool
// registry. Either may be nil when the graph contains no nodes of the
// corresponding type.
func NewLiveInvoker(provider llm.Provider, tools *tool.Registry, evaluator *Evaluator, opts ...LiveOption) *LiveInvoker {
	if evaluator == nil {
		evaluator = NewEvaluator()
	}
	inv := &LiveInvoker{provider: provider, tools: tools, evaluator: evaluator}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Mocked always reports false for a live invoker.
func (inv *LiveInvoker) Mocked() bool { return false }

// Invoke dispatches on the node type. The node's declared timeout, or the
// invoker's default when the node declares none, bounds this single attempt.
func (inv *LiveInvoker) Invoke(ctx context.Context, node *graph.NodeSpec, inputs map[string]any) *Outcome {
	timeout := node.Timeout
	if timeout == 0 {
		timeout = inv.defaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	switch node.Type {
	case graph.NodeTypeModel:
		return inv.invokeModel(ctx, node, inputs)
	case graph.NodeTypeTool:
		return inv.invokeTool(ctx, node, inputs)
	case graph.NodeTypeConditional:
		return invokeConditional(inv.evaluator, node, inputs)
	case graph.NodeTypeTerminalPass:
		return Success(nil)
	default:
		return Failure(types.NewError(types.STRUCTURAL_INVALID,
			fmt.Sprintf("node %s has unknown type %q", node.ID, node.Type)))
	}
}

func (inv *LiveInvoker) invokeModel(ctx context.Context, node *graph.NodeSpec, inputs map[string]any) *Outcome {
	if inv.provider == nil {
		return Failure(types.NewError(types.MODEL_PROVIDER_NOT_FOUND,
			fmt.Sprintf("node %s requires a model provider but none is configured", node.ID)))
	}

	resp, err := inv.provider.Complete(ctx, llm.Request{
		Instructions: node.Instructions,
		Context:      inputs,
		ToolRefs:     node.ToolRefs,
	})
	if err != nil {
		return Failure(classify(node.ID, err))
	}

	if len(resp.Structured) > 0 {
		return projectStructured(node, resp.Structured)
	}

	// A plain-text completion can only land on a single output key.
	if len(node.OutputKeys) != 1 {
		return Failure(types.NewError(types.MODEL_RESPONSE_INVALID,
			fmt.Sprintf("node %s: plain-text response requires exactly one output key, node declares %d",
				node.ID, len(node.OutputKeys))))
	}
	return Success(map[string]any{node.OutputKeys[0]: resp.Text})
}

func (inv *LiveInvoker) invokeTool(ctx context.Context, node *graph.NodeSpec, inputs map[string]any) *Outcome {
	if inv.tools == nil {
		return Failure(types.NewError(types.TOOL_NOT_FOUND,
			fmt.Sprintf("node %s requires a tool registry but none is configured", node.ID)))
	}

	// Validation guarantees exactly one tool ref on tool nodes.
	name := node.ToolRefs[0]
	out, err := inv.tools.Execute(ctx, name, inputs)
	if err != nil {
		return Failure(classify(node.ID, err))
	}
	return projectStructured(node, out)
}

// invokeConditional is a pure function of the context view: the branch
// expression picks one of the two declared produced mappings. Shared with
// the mock invoker, which never substitutes conditionals.
func invokeConditional(evaluator *Evaluator, node *graph.NodeSpec, inputs map[string]any) *Outcome {
	result, err := evaluator.Evaluate(node.Conditional.Expression, &EvalContext{Context: inputs})
	if err != nil {
		return Failure(classify(node.ID, err))
	}
	if result {
		return Success(node.Conditional.IfTrue)
	}
	return Success(node.Conditional.IfFalse)
}

// projectStructured maps a structured result onto the node's output keys.
// Every declared key must be present; missing keys are an upstream failure
// naming all of them. A node with no output keys commits the full result.
func projectStructured(node *graph.NodeSpec, result map[string]any) *Outcome {
	if len(node.OutputKeys) == 0 {
		return Success(result)
	}

	produced := make(map[string]any, len(node.OutputKeys))
	var missing []string
	for _, key := range node.OutputKeys {
		v, ok := result[key]
		if !ok {
			missing = append(missing, key)
			continue
		}
		produced[key] = v
	}
	if len(missing) > 0 {
		return Failure(types.NewError(types.UPSTREAM_FAILURE,
			fmt.Sprintf("node %s: response missing output keys %v", node.ID, missing)))
	}
	return Success(produced)
}

// classify maps any error from a capability boundary into a Hive error.
// Deadline expiry becomes a retryable node timeout; cancellation is the
// caller abandoning the run and is never retried.
func classify(nodeID string, err error) *types.HiveError {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewRetryableError(types.NODE_TIMEOUT,
			fmt.Sprintf("node %s timed out", nodeID))
	}
	if errors.Is(err, context.Canceled) {
		return types.NewError(types.RUN_CANCELLED,
			fmt.Sprintf("node %s cancelled", nodeID))
	}

	var hiveErr *types.HiveError
	if errors.As(err, &hiveErr) {
		return hiveErr
	}
	return types.WrapError(types.UPSTREAM_FAILURE,
		fmt.Sprintf("node %s failed", nodeID), err)
}
