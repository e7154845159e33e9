package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/aden-hq/hive/internal/contextkeys"
	"github.com/aden-hq/hive/internal/credential"
	"github.com/aden-hq/hive/internal/graph"
	"github.com/aden-hq/hive/internal/tool"
	"github.com/aden-hq/hive/internal/types"
)

func newEngine(t *testing.T, invoker Invoker, budget int, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(invoker, budget, opts...)
	require.NoError(t, err)
	return e
}

// twoNodeGraph is entry node A (model) with an always edge to terminal
// node B (passthrough).
func twoNodeGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.New("two-node").
		WithVersion("1").
		AddModelNode("A", "produce x", nil, []string{"x"}).
		AddTerminalPassNode("B").
		AddEdge("e1", "A", "B", graph.EdgeAlways).
		WithEntryPoint("A").
		Build()
	require.NoError(t, err)
	return g
}

func TestEngine_RequiresPositiveBudget(t *testing.T) {
	_, err := NewEngine(NewMockInvoker(), 0)
	require.Error(t, err)
	assert.Equal(t, types.CONFIG_VALIDATION_FAILED, types.CodeOf(err))

	_, err = NewEngine(nil, 10)
	require.Error(t, err)
}

func TestEngine_RejectsInvalidGraph(t *testing.T) {
	g := twoNodeGraph(t)
	g.EntryPoint = "ghost"

	e := newEngine(t, NewMockInvoker(), 10)
	_, err := e.Execute(context.Background(), g, nil)
	require.Error(t, err)
	assert.Equal(t, types.STRUCTURAL_INVALID, types.CodeOf(err))
}

func TestEngine_RejectsNilGraph(t *testing.T) {
	e := newEngine(t, NewMockInvoker(), 10)

	assert.NotPanics(t, func() {
		_, err := e.Execute(context.Background(), nil, nil)
		require.Error(t, err)
		assert.Equal(t, types.STRUCTURAL_INVALID, types.CodeOf(err))
	})

	assert.NotPanics(t, func() {
		snap := &Snapshot{RunID: types.NewID(), GraphVersion: "1", PausedAt: "A"}
		_, err := e.Resume(context.Background(), nil, snap, nil)
		require.Error(t, err)
		assert.Equal(t, types.STRUCTURAL_INVALID, types.CodeOf(err))
	})
}

func TestEngine_ResumeRejectsNilSnapshot(t *testing.T) {
	g := twoNodeGraph(t)
	e := newEngine(t, NewMockInvoker(), 10)

	assert.NotPanics(t, func() {
		_, err := e.Resume(context.Background(), g, nil, nil)
		require.Error(t, err)
		assert.Equal(t, types.SESSION_NOT_FOUND, types.CodeOf(err))
	})
}

func TestEngine_SimpleSuccessScenario(t *testing.T) {
	mock := NewMockInvoker().Script("A", Success(map[string]any{"x": 1}))
	e := newEngine(t, mock, 10)

	result, err := e.Execute(context.Background(), twoNodeGraph(t), nil)
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, result.Status)
	assert.Equal(t, 2, result.StepsExecuted)
	assert.Equal(t, 1, result.Output["x"])
	assert.Nil(t, result.Error)
	assert.Empty(t, result.PausedAt)
	assert.False(t, result.RunID.IsZero())
	assert.True(t, result.Mocked)
}

func TestEngine_OnFailureRouting(t *testing.T) {
	g, err := graph.New("branching").
		AddModelNode("A", "try the thing", nil, nil).
		AddTerminalPassNode("B").
		AddTerminalPassNode("C").
		AddEdge("ok", "A", "B", graph.EdgeOnSuccess).
		AddEdge("bad", "A", "C", graph.EdgeOnFailure).
		WithEntryPoint("A").
		Build()
	require.NoError(t, err)

	mock := NewMockInvoker().Script("A", Failure(types.NewError(types.UPSTREAM_FAILURE, "boom")))
	e := newEngine(t, mock, 10)

	result, execErr := e.Execute(context.Background(), g, nil)
	require.NoError(t, execErr)

	// Failure at A routes to C, which terminates the run successfully.
	assert.Equal(t, StateSucceeded, result.Status)
	assert.Equal(t, 2, result.StepsExecuted)
}

func TestEngine_NoMatchingEdge(t *testing.T) {
	g, err := graph.New("dead-end").
		AddModelNode("A", "try the thing", nil, nil).
		AddTerminalPassNode("B").
		AddEdge("bad", "A", "B", graph.EdgeOnFailure).
		WithEntryPoint("A").
		Build()
	require.NoError(t, err)

	mock := NewMockInvoker().Script("A", Success(nil))
	e := newEngine(t, mock, 10)

	result, execErr := e.Execute(context.Background(), g, nil)
	require.NoError(t, execErr)

	assert.Equal(t, StateFailed, result.Status)
	assert.Equal(t, 1, result.StepsExecuted)
	require.NotNil(t, result.Error)
	assert.Equal(t, types.NO_MATCHING_EDGE, result.Error.Code)
}

func TestEngine_RetryBound(t *testing.T) {
	g, err := graph.New("retrying").
		AddNode(&graph.NodeSpec{
			ID:           "A",
			Type:         graph.NodeTypeModel,
			Instructions: "flaky",
			MaxRetries:   3,
		}).
		AddTerminalPassNode("B").
		AddTerminalPassNode("C").
		AddEdge("ok", "A", "B", graph.EdgeOnSuccess).
		AddEdge("bad", "A", "C", graph.EdgeOnFailure).
		WithEntryPoint("A").
		Build()
	require.NoError(t, err)

	mock := NewMockInvoker().Script("A", Failure(types.NewRetryableError(types.RATE_LIMITED, "slow down")))
	e := newEngine(t, mock, 10)

	result, execErr := e.Execute(context.Background(), g, nil)
	require.NoError(t, execErr)

	// max_retries = 3 means exactly 4 attempts, then the failure routes.
	assert.Equal(t, 4, mock.Invocations("A"))
	assert.Equal(t, StateSucceeded, result.Status)
	// Retries are local to the node: the whole sequence is one step.
	assert.Equal(t, 2, result.StepsExecuted)
}

func TestEngine_RetryStopsOnSuccess(t *testing.T) {
	mock := NewMockInvoker().Script("A",
		Failure(types.NewRetryableError(types.NODE_TIMEOUT, "timeout")),
		Failure(types.NewRetryableError(types.NODE_TIMEOUT, "timeout")),
		Success(map[string]any{"x": 1}),
	)

	g := twoNodeGraph(t)
	g.Nodes["A"].MaxRetries = 5

	e := newEngine(t, mock, 10)
	result, err := e.Execute(context.Background(), g, nil)
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, result.Status)
	assert.Equal(t, 3, mock.Invocations("A"), "attempts stop at the first success")
	assert.Equal(t, 1, result.Output["x"])
}

func TestEngine_NoPartialCommit(t *testing.T) {
	g, err := graph.New("partial").
		AddModelNode("A", "produce x and y", nil, []string{"x", "y"}).
		AddTerminalPassNode("B").
		AddTerminalPassNode("C").
		AddEdge("ok", "A", "B", graph.EdgeOnSuccess).
		AddEdge("bad", "A", "C", graph.EdgeOnFailure).
		WithEntryPoint("A").
		Build()
	require.NoError(t, err)

	mock := NewMockInvoker().Script("A", Failure(types.NewError(types.UPSTREAM_FAILURE, "boom")))
	e := newEngine(t, mock, 10)

	result, execErr := e.Execute(context.Background(), g, map[string]any{"seed": true})
	require.NoError(t, execErr)

	assert.Equal(t, StateSucceeded, result.Status) // terminated at C
	assert.NotContains(t, result.Output, "x")
	assert.NotContains(t, result.Output, "y")
	assert.Equal(t, true, result.Output["seed"])
}

func TestEngine_NodeCannotMutateContextThroughInputs(t *testing.T) {
	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(&fakeTool{
		name: "mutator",
		execute: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			args["cfg"].(map[string]any)["poisoned"] = true
			return map[string]any{"done": true}, nil
		},
	}))

	g, err := graph.New("aliasing").
		AddToolNode("work", "mutator", []string{"cfg"}, []string{"done"}).
		AddTerminalPassNode("B").
		AddEdge("e1", "work", "B", graph.EdgeAlways).
		WithEntryPoint("work").
		Build()
	require.NoError(t, err)

	e := newEngine(t, NewLiveInvoker(nil, registry, nil), 10)
	result, execErr := e.Execute(context.Background(), g, map[string]any{
		"cfg": map[string]any{"retries": 1},
	})
	require.NoError(t, execErr)

	require.Equal(t, StateSucceeded, result.Status)
	assert.Equal(t, true, result.Output["done"])
	// Merge is the only mutation entry point: a node scribbling on its
	// input view never reaches the run context.
	assert.NotContains(t, result.Output["cfg"].(map[string]any), "poisoned")
}

func TestEngine_RetriesSeePristineInputs(t *testing.T) {
	registry := tool.NewRegistry()
	var retryView map[string]any
	attempt := 0
	require.NoError(t, registry.Register(&fakeTool{
		name: "flaky",
		execute: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			attempt++
			if attempt == 1 {
				args["cfg"].(map[string]any)["poisoned"] = true
				return nil, tool.NewUpstreamError("first attempt fails")
			}
			retryView = args
			return map[string]any{"done": true}, nil
		},
	}))

	g, err := graph.New("retry-inputs").
		AddToolNode("work", "flaky", []string{"cfg"}, []string{"done"}).
		AddTerminalPassNode("B").
		AddEdge("e1", "work", "B", graph.EdgeAlways).
		WithEntryPoint("work").
		Build()
	require.NoError(t, err)
	g.Nodes["work"].MaxRetries = 1

	e := newEngine(t, NewLiveInvoker(nil, registry, nil), 10)
	result, execErr := e.Execute(context.Background(), g, map[string]any{
		"cfg": map[string]any{"retries": 1},
	})
	require.NoError(t, execErr)

	require.Equal(t, StateSucceeded, result.Status)
	require.Equal(t, 2, attempt)
	assert.NotContains(t, retryView["cfg"].(map[string]any), "poisoned",
		"each attempt reuses the same pristine input snapshot")
}

func TestEngine_StepBudgetOnCycle(t *testing.T) {
	g, err := graph.New("cycle").
		AddModelNode("A", "ping", nil, nil).
		AddModelNode("B", "pong", nil, nil).
		AddEdge("ab", "A", "B", graph.EdgeAlways).
		AddEdge("ba", "B", "A", graph.EdgeAlways).
		WithEntryPoint("A").
		Build()
	require.NoError(t, err)

	mock := NewMockInvoker().
		Script("A", Success(nil)).
		Script("B", Success(nil))
	e := newEngine(t, mock, 100)

	result, execErr := e.Execute(context.Background(), g, nil)
	require.NoError(t, execErr)

	assert.Equal(t, StateBudgetExceeded, result.Status)
	assert.Equal(t, 100, result.StepsExecuted, "exactly the budget, never fewer, never forever")
	require.NotNil(t, result.Error)
	assert.Equal(t, types.BUDGET_EXCEEDED, result.Error.Code)
}

func TestEngine_BudgetNotChargedForTerminalOverrun(t *testing.T) {
	// A run whose final node is terminal at exactly the budget still
	// succeeds; BudgetExceeded only fires when another step would start.
	mock := NewMockInvoker().Script("A", Success(map[string]any{"x": 1}))
	e := newEngine(t, mock, 2)

	result, err := e.Execute(context.Background(), twoNodeGraph(t), nil)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, result.Status)
	assert.Equal(t, 2, result.StepsExecuted)
}

func TestEngine_MissingInputKeys(t *testing.T) {
	g, err := graph.New("missing-inputs").
		AddModelNode("A", "needs inputs", []string{"alpha", "beta"}, nil).
		AddTerminalPassNode("B").
		AddEdge("e1", "A", "B", graph.EdgeAlways).
		WithEntryPoint("A").
		Build()
	require.NoError(t, err)

	e := newEngine(t, NewMockInvoker(), 10)
	result, execErr := e.Execute(context.Background(), g, map[string]any{"alpha": 1})
	require.NoError(t, execErr)

	assert.Equal(t, StateFailed, result.Status)
	require.NotNil(t, result.Error)
	assert.Equal(t, types.MISSING_KEY, result.Error.Code)
	assert.Contains(t, result.Error.Error(), "beta")
	assert.NotContains(t, result.Error.Error(), "alpha,")
}

func TestEngine_PauseEmitsSnapshot(t *testing.T) {
	g, err := graph.New("pausing").
		WithVersion("7").
		AddModelNode("A", "gather", nil, []string{"x"}).
		AddToolNode("confirm", "calendar", nil, nil).
		AddTerminalPassNode("B").
		AddEdge("e1", "A", "confirm", graph.EdgeAlways).
		AddEdge("e2", "confirm", "B", graph.EdgeAlways).
		WithEntryPoint("A").
		WithPauseNodes("confirm").
		Build()
	require.NoError(t, err)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mock := NewMockInvoker().Script("A", Success(map[string]any{"x": 42}))
	e := newEngine(t, mock, 10, WithClock(func() time.Time { return now }))

	result, execErr := e.Execute(context.Background(), g, nil)
	require.NoError(t, execErr)

	assert.Equal(t, StatePaused, result.Status)
	assert.Equal(t, "confirm", result.PausedAt)
	assert.Equal(t, 1, result.StepsExecuted, "the pause node itself has not executed")
	require.NotNil(t, result.Snapshot)
	assert.Equal(t, result.RunID, result.Snapshot.RunID)
	assert.Equal(t, "7", result.Snapshot.GraphVersion)
	assert.Equal(t, "confirm", result.Snapshot.PausedAt)
	assert.Equal(t, 1, result.Snapshot.StepsExecuted)
	assert.EqualValues(t, 42, result.Snapshot.Context["x"])
	assert.Equal(t, now, result.Snapshot.CreatedAt)
	assert.Equal(t, 0, mock.Invocations("confirm"))
}

func TestEngine_ResumeContinuesPastPause(t *testing.T) {
	g, err := graph.New("pausing").
		WithVersion("7").
		AddModelNode("A", "gather", nil, []string{"x"}).
		AddToolNode("confirm", "calendar", []string{"approval"}, []string{"booking"}).
		AddTerminalPassNode("B").
		AddEdge("e1", "A", "confirm", graph.EdgeAlways).
		AddEdge("e2", "confirm", "B", graph.EdgeOnSuccess).
		WithEntryPoint("A").
		WithPauseNodes("confirm").
		Build()
	require.NoError(t, err)

	mock := NewMockInvoker().
		Script("A", Success(map[string]any{"x": 42})).
		Script("confirm", Success(map[string]any{"booking": "done"}))
	e := newEngine(t, mock, 10)

	paused, err := e.Execute(context.Background(), g, nil)
	require.NoError(t, err)
	require.Equal(t, StatePaused, paused.Status)

	resumed, err := e.Resume(context.Background(), g, paused.Snapshot, map[string]any{"approval": true})
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, resumed.Status)
	assert.Equal(t, 3, resumed.StepsExecuted)
	assert.Equal(t, paused.RunID, resumed.RunID)
	assert.EqualValues(t, 42, resumed.Output["x"])
	assert.Equal(t, "done", resumed.Output["booking"])
	assert.Equal(t, true, resumed.Output["approval"])
}

func TestEngine_ResumeEquivalentToUnpausedRun(t *testing.T) {
	build := func() *graph.Graph {
		g, err := graph.New("equivalence").
			WithVersion("1").
			AddModelNode("A", "gather", nil, []string{"x"}).
			AddToolNode("confirm", "calendar", []string{"extra"}, []string{"booking"}).
			AddTerminalPassNode("B").
			AddEdge("e1", "A", "confirm", graph.EdgeAlways).
			AddEdge("e2", "confirm", "B", graph.EdgeAlways).
			WithEntryPoint("A").
			Build()
		require.NoError(t, err)
		return g
	}
	script := func() *MockInvoker {
		return NewMockInvoker().
			Script("A", Success(map[string]any{"x": 1})).
			Script("confirm", Success(map[string]any{"booking": "ok"}))
	}

	// Baseline: no pause node, extra input present from the start.
	plain := build()
	ePlain := newEngine(t, script(), 10)
	baseline, err := ePlain.Execute(context.Background(), plain, map[string]any{"extra": "input"})
	require.NoError(t, err)
	require.Equal(t, StateSucceeded, baseline.Status)

	// Same graph with a pause at confirm, extra input supplied at resume.
	withPause := build()
	withPause.PauseNodes = []string{"confirm"}
	ePause := newEngine(t, script(), 10)
	paused, err := ePause.Execute(context.Background(), withPause, nil)
	require.NoError(t, err)
	require.Equal(t, StatePaused, paused.Status)

	resumed, err := ePause.Resume(context.Background(), withPause, paused.Snapshot, map[string]any{"extra": "input"})
	require.NoError(t, err)

	assert.Equal(t, baseline.Status, resumed.Status)
	assert.Equal(t, baseline.StepsExecuted, resumed.StepsExecuted)
	assert.Equal(t, baseline.Output, resumed.Output)
}

func TestEngine_PausesAgainOnCyclicReentry(t *testing.T) {
	g, err := graph.New("pause-loop").
		WithVersion("1").
		AddModelNode("step", "loop once", nil, nil).
		AddModelNode("hold", "await operator", nil, nil).
		AddEdge("sh", "step", "hold", graph.EdgeAlways).
		AddEdge("hs", "hold", "step", graph.EdgeAlways).
		WithEntryPoint("step").
		WithPauseNodes("hold").
		Build()
	require.NoError(t, err)

	mock := NewMockInvoker().
		Script("step", Success(nil)).
		Script("hold", Success(nil))
	e := newEngine(t, mock, 100)

	paused, err := e.Execute(context.Background(), g, nil)
	require.NoError(t, err)
	require.Equal(t, StatePaused, paused.Status)
	assert.Equal(t, 1, paused.StepsExecuted)

	// The resumed run passes hold once, loops through step, and pauses
	// again when it re-enters hold.
	again, err := e.Resume(context.Background(), g, paused.Snapshot, nil)
	require.NoError(t, err)
	assert.Equal(t, StatePaused, again.Status)
	assert.Equal(t, "hold", again.PausedAt)
	assert.Equal(t, 3, again.StepsExecuted)
}

func TestEngine_PauseAndTerminalNode(t *testing.T) {
	// A node that is both pause and terminal: pauses first, then after
	// resume it executes and terminates the run.
	g, err := graph.New("pause-terminal").
		WithVersion("1").
		AddModelNode("A", "gather", nil, nil).
		AddModelNode("end", "final step", nil, []string{"done"}).
		AddEdge("e1", "A", "end", graph.EdgeAlways).
		WithEntryPoint("A").
		WithPauseNodes("end").
		WithTerminalNodes("end").
		Build()
	require.NoError(t, err)

	mock := NewMockInvoker().
		Script("A", Success(nil)).
		Script("end", Success(map[string]any{"done": true}))
	e := newEngine(t, mock, 10)

	paused, err := e.Execute(context.Background(), g, nil)
	require.NoError(t, err)
	require.Equal(t, StatePaused, paused.Status)

	resumed, err := e.Resume(context.Background(), g, paused.Snapshot, nil)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, resumed.Status)
	assert.Equal(t, true, resumed.Output["done"])
}

func TestEngine_ResumeRejectsVersionMismatch(t *testing.T) {
	g, err := graph.New("versioned").
		WithVersion("2").
		AddModelNode("A", "gather", nil, nil).
		AddTerminalPassNode("B").
		AddEdge("e1", "A", "B", graph.EdgeAlways).
		WithEntryPoint("A").
		WithPauseNodes("A").
		Build()
	require.NoError(t, err)

	e := newEngine(t, NewMockInvoker(), 10)
	snapshot := &Snapshot{
		RunID:         types.NewID(),
		GraphVersion:  "1",
		PausedAt:      "A",
		Context:       map[string]any{},
		StepsExecuted: 0,
	}

	_, err = e.Resume(context.Background(), g, snapshot, nil)
	require.Error(t, err)
	assert.Equal(t, types.SESSION_OPEN_FAILED, types.CodeOf(err))
}

func TestEngine_ResumeRejectsUnknownPauseNode(t *testing.T) {
	g := twoNodeGraph(t)
	snapshot := &Snapshot{
		RunID:        types.NewID(),
		GraphVersion: "1",
		PausedAt:     "ghost",
		Context:      map[string]any{},
	}

	e := newEngine(t, NewMockInvoker(), 10)
	_, err := e.Resume(context.Background(), g, snapshot, nil)
	require.Error(t, err)
	assert.Equal(t, types.SESSION_OPEN_FAILED, types.CodeOf(err))
}

func TestEngine_CancellationBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := NewMockInvoker().Script("A", Success(nil))
	e := newEngine(t, mock, 10)

	result, err := e.Execute(ctx, twoNodeGraph(t), nil)
	require.NoError(t, err)

	assert.Equal(t, StateFailed, result.Status)
	require.NotNil(t, result.Error)
	assert.Equal(t, types.RUN_CANCELLED, result.Error.Code)
	assert.Equal(t, 0, mock.Invocations("A"), "cancelled runs invoke nothing")
}

func TestEngine_CredentialGate(t *testing.T) {
	registry := tool.NewRegistry()
	calls := 0
	require.NoError(t, registry.Register(&fakeTool{
		name:        "calendar",
		credentials: []string{"calendar-api-key"},
		execute: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			calls++
			return map[string]any{}, nil
		},
	}))

	g, err := graph.New("gated").
		AddToolNode("book", "calendar", nil, nil).
		AddTerminalPassNode("B").
		AddEdge("e1", "book", "B", graph.EdgeAlways).
		WithEntryPoint("book").
		Build()
	require.NoError(t, err)

	t.Run("missing credential fails before the call", func(t *testing.T) {
		e := newEngine(t, NewLiveInvoker(nil, registry, nil), 10,
			WithCredentialStore(registry, credential.NewStaticStore(nil)))

		result, execErr := e.Execute(context.Background(), g, nil)
		require.NoError(t, execErr)

		assert.Equal(t, StateFailed, result.Status)
		require.NotNil(t, result.Error)
		assert.Equal(t, types.MISSING_CREDENTIAL, result.Error.Code)
		assert.Equal(t, 0, calls, "the external call is never attempted")
	})

	t.Run("available credential lets the node run", func(t *testing.T) {
		store := credential.NewStaticStore(map[string]credential.Secret{
			"calendar-api-key": "sk-123",
		})
		e := newEngine(t, NewLiveInvoker(nil, registry, nil), 10,
			WithCredentialStore(registry, store))

		result, execErr := e.Execute(context.Background(), g, nil)
		require.NoError(t, execErr)

		assert.Equal(t, StateSucceeded, result.Status)
		assert.Equal(t, 1, calls)
	})
}

func TestEngine_ContextCarriesRunMetadata(t *testing.T) {
	registry := tool.NewRegistry()
	var seenRunID, seenNodeID string
	require.NoError(t, registry.Register(&fakeTool{
		name: "audit",
		execute: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			seenRunID = contextkeys.RunIDFrom(ctx)
			seenNodeID = contextkeys.NodeIDFrom(ctx)
			return map[string]any{}, nil
		},
	}))

	g, err := graph.New("metadata").
		AddToolNode("record", "audit", nil, nil).
		AddTerminalPassNode("B").
		AddEdge("e1", "record", "B", graph.EdgeAlways).
		WithEntryPoint("record").
		Build()
	require.NoError(t, err)

	e := newEngine(t, NewLiveInvoker(nil, registry, nil), 10)
	result, execErr := e.Execute(context.Background(), g, nil)
	require.NoError(t, execErr)

	assert.Equal(t, StateSucceeded, result.Status)
	assert.Equal(t, result.RunID.String(), seenRunID)
	assert.Equal(t, "record", seenNodeID)
}

func TestEngine_TerminalFailureFails(t *testing.T) {
	g, err := graph.New("terminal-failure").
		AddModelNode("A", "gather", nil, nil).
		AddModelNode("end", "final", nil, nil).
		AddEdge("e1", "A", "end", graph.EdgeAlways).
		WithEntryPoint("A").
		WithTerminalNodes("end").
		Build()
	require.NoError(t, err)

	mock := NewMockInvoker().
		Script("A", Success(nil)).
		Script("end", Failure(types.NewError(types.UPSTREAM_FAILURE, "boom")))
	e := newEngine(t, mock, 10)

	result, execErr := e.Execute(context.Background(), g, nil)
	require.NoError(t, execErr)

	assert.Equal(t, StateFailed, result.Status)
	require.NotNil(t, result.Error)
	assert.Equal(t, types.UPSTREAM_FAILURE, result.Error.Code)
}

func TestEngine_LiveResultNotMocked(t *testing.T) {
	g, err := graph.New("pure").
		AddConditionalNode("branch", &graph.ConditionalSpec{
			Expression: "true",
			IfTrue:     map[string]any{"route": "ok"},
		}, []string{"route"}).
		AddTerminalPassNode("B").
		AddEdge("e1", "branch", "B", graph.EdgeAlways).
		WithEntryPoint("branch").
		Build()
	require.NoError(t, err)

	e := newEngine(t, NewLiveInvoker(nil, nil, nil), 10)
	result, execErr := e.Execute(context.Background(), g, nil)
	require.NoError(t, execErr)

	assert.Equal(t, StateSucceeded, result.Status)
	assert.False(t, result.Mocked)
	assert.Equal(t, "ok", result.Output["route"])
}

// Determinism: identical graphs, inputs, and scripted outcomes always
// produce the same state, step count, and final context.
func TestEngine_Determinism(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		failFirst := rapid.Bool().Draw(t, "failFirst")
		budget := rapid.IntRange(1, 20).Draw(t, "budget")
		seed := rapid.Int().Draw(t, "seed")

		run := func() *Result {
			g, err := graph.New("det").
				WithVersion("1").
				AddModelNode("A", "step", nil, []string{"x"}).
				AddTerminalPassNode("B").
				AddTerminalPassNode("C").
				AddEdge("ok", "A", "B", graph.EdgeOnSuccess).
				AddEdge("bad", "A", "C", graph.EdgeOnFailure).
				WithEntryPoint("A").
				Build()
			if err != nil {
				t.Fatal(err)
			}

			mock := NewMockInvoker()
			if failFirst {
				mock.Script("A", Failure(types.NewError(types.UPSTREAM_FAILURE, "boom")))
			} else {
				mock.Script("A", Success(map[string]any{"x": seed}))
			}

			e, err := NewEngine(mock, budget)
			if err != nil {
				t.Fatal(err)
			}
			result, err := e.Execute(context.Background(), g, map[string]any{"seed": seed})
			if err != nil {
				t.Fatal(err)
			}
			return result
		}

		first := run()
		second := run()

		if first.Status != second.Status {
			t.Fatalf("status diverged: %s vs %s", first.Status, second.Status)
		}
		if first.StepsExecuted != second.StepsExecuted {
			t.Fatalf("steps diverged: %d vs %d", first.StepsExecuted, second.StepsExecuted)
		}
		if len(first.Output) != len(second.Output) {
			t.Fatalf("output diverged: %v vs %v", first.Output, second.Output)
		}
	})
}
