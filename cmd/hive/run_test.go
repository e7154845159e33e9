package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aden-hq/hive/internal/config"
	"github.com/aden-hq/hive/internal/engine"
	"github.com/aden-hq/hive/internal/graph"
	"github.com/aden-hq/hive/internal/types"
)

type gatedTool struct{}

func (gatedTool) Name() string          { return "gated-calendar" }
func (gatedTool) Description() string   { return "books meetings" }
func (gatedTool) Credentials() []string { return []string{"gate-test-token"} }
func (gatedTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	return map[string]any{"booking": "done"}, nil
}

// The credential gate and the live invoker share one tool registry, so a
// tool's declared credentials are enforced before any invocation reaches it.
func TestBuildEngine_GateSeesRegisteredTools(t *testing.T) {
	cfg = config.DefaultConfig()
	runMock = false
	t.Setenv("HIVE_GATE_TEST_TOKEN", "")
	require.NoError(t, toolRegistry.Register(gatedTool{}))

	g, err := graph.New("gated").
		AddToolNode("book", "gated-calendar", nil, []string{"booking"}).
		AddTerminalPassNode("done").
		AddEdge("e1", "book", "done", graph.EdgeAlways).
		WithEntryPoint("book").
		Build()
	require.NoError(t, err)

	eng, err := buildEngine()
	require.NoError(t, err)

	// HIVE_GATE_TEST_TOKEN is not set, so the run must fail at the gate
	// without the tool ever executing.
	result, err := eng.Execute(context.Background(), g, nil)
	require.NoError(t, err)

	assert.Equal(t, engine.StateFailed, result.Status)
	require.NotNil(t, result.Error)
	assert.Equal(t, types.MISSING_CREDENTIAL, result.Error.Code)
}
