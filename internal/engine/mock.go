package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/aden-hq/hive/internal/graph"
	"github.com/aden-hq/hive/internal/types"
)

// MockInvoker substitutes deterministic canned outcomes for model and tool
// nodes without making any external call. Conditional and terminal-pass
// nodes run their real (pure) logic, so a mock run still exercises routing.
//
// Outcomes are scripted per node ID as a sequence: each invocation consumes
// the next entry, and the last entry repeats once the script is exhausted.
// A model or tool node with no script fails, so an unscripted external call
// can never look like success.
type MockInvoker struct {
	mu        sync.Mutex
	scripts   map[string][]*Outcome
	consumed  map[string]int
	evaluator *Evaluator
}

// NewMockInvoker creates a mock invoker with an empty script table.
func NewMockInvoker() *MockInvoker {
	return &MockInvoker{
		scripts:   make(map[string][]*Outcome),
		consumed:  make(map[string]int),
		evaluator: NewEvaluator(),
	}
}

// Mocked always reports true.
func (m *MockInvoker) Mocked() bool { return true }

// Script appends outcomes to the sequence for a node ID and returns the
// invoker for chaining.
func (m *MockInvoker) Script(nodeID string, outcomes ...*Outcome) *MockInvoker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[nodeID] = append(m.scripts[nodeID], outcomes...)
	return m
}

// Invocations returns how many times a node has been invoked through the
// script table.
func (m *MockInvoker) Invocations(nodeID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consumed[nodeID]
}

// Invoke consumes the next scripted outcome for model and tool nodes and
// runs the real pure logic for the rest.
func (m *MockInvoker) Invoke(ctx context.Context, node *graph.NodeSpec, inputs map[string]any) *Outcome {
	if err := ctx.Err(); err != nil {
		return Failure(classify(node.ID, err))
	}

	switch node.Type {
	case graph.NodeTypeConditional:
		return invokeConditional(m.evaluator, node, inputs)
	case graph.NodeTypeTerminalPass:
		return Success(nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	script := m.scripts[node.ID]
	if len(script) == 0 {
		m.consumed[node.ID]++
		return Failure(types.NewError(types.UPSTREAM_FAILURE,
			fmt.Sprintf("node %s: no scripted outcome", node.ID)))
	}

	idx := m.consumed[node.ID]
	m.consumed[node.ID]++
	if idx >= len(script) {
		idx = len(script) - 1
	}
	return script[idx]
}
