package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aden-hq/hive/internal/contextkeys"
	"github.com/aden-hq/hive/internal/credential"
	"github.com/aden-hq/hive/internal/graph"
	"github.com/aden-hq/hive/internal/tool"
	"github.com/aden-hq/hive/internal/types"
)

// RunState is the engine state machine. Paused is a suspension point with a
// defined resumption target; the other non-Running states are terminal.
type RunState string

const (
	StateRunning        RunState = "running"
	StatePaused         RunState = "paused"
	StateSucceeded      RunState = "succeeded"
	StateFailed         RunState = "failed"
	StateBudgetExceeded RunState = "budget_exceeded"
)

// Result is what a run hands back to its caller. Exactly one of Error,
// PausedAt, or a normal Output is meaningful, keyed by Status.
type Result struct {
	RunID         types.ID       `json:"run_id"`
	Status        RunState       `json:"status"`
	StepsExecuted int            `json:"steps_executed"`
	Output        map[string]any `json:"output,omitempty"`
	Error         *types.HiveError `json:"error,omitempty"`
	PausedAt      string         `json:"paused_at,omitempty"`
	Snapshot      *Snapshot      `json:"snapshot,omitempty"`
	Goal          string         `json:"goal,omitempty"`
	Mocked        bool           `json:"mocked"`
	Duration      time.Duration  `json:"duration"`
}

// Engine drives the run loop: it dequeues the current node, invokes it with
// retry, routes via the Router, updates context, detects pause and terminal
// states, and enforces the step budget. A single Engine may serve many
// concurrent runs; each run owns its own Context and the Engine holds no
// per-run state.
type Engine struct {
	invoker     Invoker
	budget      int
	tools       *tool.Registry
	credentials credential.Store
	evaluator   *Evaluator
	router      *Router
	logger      *slog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithLogger configures the engine to use the specified structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTracer configures the engine to emit OpenTelemetry spans per run and
// per node invocation.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithCredentialStore enables the pre-invocation credential gate: any node
// whose tool refs declare required credentials fails with MissingCredential
// before the call is attempted.
func WithCredentialStore(tools *tool.Registry, store credential.Store) Option {
	return func(e *Engine) {
		e.tools = tools
		e.credentials = store
	}
}

// WithEvaluator replaces the default expression evaluator, e.g. to register
// custom predicate functions.
func WithEvaluator(evaluator *Evaluator) Option {
	return func(e *Engine) {
		e.evaluator = evaluator
	}
}

// WithClock overrides the engine clock. Used by tests to pin snapshot
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine around an invoker and a step budget. The
// budget is the cycle-safety net and is a required caller decision, not a
// hidden constant; it must be positive.
func NewEngine(invoker Invoker, stepBudget int, opts ...Option) (*Engine, error) {
	if invoker == nil {
		return nil, types.NewError(types.CONFIG_VALIDATION_FAILED, "invoker is required")
	}
	if stepBudget <= 0 {
		return nil, types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("step budget must be positive, got %d", stepBudget))
	}

	e := &Engine{
		invoker: invoker,
		budget:  stepBudget,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.evaluator == nil {
		e.evaluator = NewEvaluator()
	}
	e.router = NewRouter(e.evaluator)
	return e, nil
}

// Execute runs a graph from its entry point with the caller-supplied initial
// input. The graph is validated first; a structurally invalid graph never
// starts executing.
func (e *Engine) Execute(ctx context.Context, g *graph.Graph, input map[string]any) (*Result, error) {
	if errs := graph.Validate(g); len(errs) > 0 {
		return nil, types.NewError(types.STRUCTURAL_INVALID,
			fmt.Sprintf("graph %q is invalid: %v", graphName(g), errs))
	}

	runID := types.NewID()
	e.logger.InfoContext(ctx, "starting run",
		"run_id", runID,
		"graph", g.Name,
		"graph_version", g.Version,
		"entry_point", g.EntryPoint,
	)

	return e.run(ctx, g, runID, NewContext(input), g.EntryPoint, 0, false)
}

// Resume continues a paused run from its snapshot. Additional input is
// merged into the restored context before the pause node executes; the
// pause node is passed once and pauses again on any later re-entry.
//
// Resume does not delete the snapshot from any store; the caller deletes it
// after a non-Paused result, so a crashed resume can be retried.
func (e *Engine) Resume(ctx context.Context, g *graph.Graph, snapshot *Snapshot, extra map[string]any) (*Result, error) {
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	if errs := graph.Validate(g); len(errs) > 0 {
		return nil, types.NewError(types.STRUCTURAL_INVALID,
			fmt.Sprintf("graph %q is invalid: %v", graphName(g), errs))
	}
	if snapshot.GraphVersion != g.Version {
		return nil, types.NewError(types.SESSION_OPEN_FAILED,
			fmt.Sprintf("snapshot %s was taken against graph version %q, got %q",
				snapshot.RunID, snapshot.GraphVersion, g.Version))
	}
	if g.GetNode(snapshot.PausedAt) == nil {
		return nil, types.NewError(types.SESSION_OPEN_FAILED,
			fmt.Sprintf("snapshot %s paused at unknown node %q", snapshot.RunID, snapshot.PausedAt))
	}

	rc := NewContext(snapshot.Context)
	rc.Merge(extra)

	e.logger.InfoContext(ctx, "resuming run",
		"run_id", snapshot.RunID,
		"graph", g.Name,
		"paused_at", snapshot.PausedAt,
		"steps_executed", snapshot.StepsExecuted,
	)

	return e.run(ctx, g, snapshot.RunID, rc, snapshot.PausedAt, snapshot.StepsExecuted, true)
}

// run is the main loop, one iteration per visited node. resumed suppresses
// the pause check for the first node only.
func (e *Engine) run(ctx context.Context, g *graph.Graph, runID types.ID, rc *Context, start string, steps int, resumed bool) (*Result, error) {
	ctx = contextkeys.WithRunID(ctx, runID.String())
	if e.tracer != nil {
		var span trace.Span
		ctx, span = e.tracer.Start(ctx, "engine.run",
			trace.WithAttributes(
				attribute.String("run.id", runID.String()),
				attribute.String("graph.name", g.Name),
				attribute.String("graph.version", g.Version),
				attribute.Int("graph.node_count", len(g.Nodes)),
			),
		)
		defer span.End()
	}

	startTime := e.now()
	current := start
	skipPause := resumed

	for {
		// Cancellation is checked once per iteration; mid-invocation
		// cancellation is cooperative via the invoker's context.
		if err := ctx.Err(); err != nil {
			e.logger.WarnContext(ctx, "run cancelled",
				"run_id", runID, "node", current, "reason", err)
			return e.finish(ctx, g, runID, StateFailed, steps, rc, startTime,
				types.NewError(types.RUN_CANCELLED, "run cancelled between steps")), nil
		}

		node := g.GetNode(current)
		if node == nil {
			return e.finish(ctx, g, runID, StateFailed, steps, rc, startTime,
				types.NewError(types.STRUCTURAL_INVALID,
					fmt.Sprintf("routed to unknown node %q", current))), nil
		}

		if g.IsPauseNode(current) && !skipPause {
			snap := &Snapshot{
				RunID:         runID,
				GraphID:       g.ID,
				GraphVersion:  g.Version,
				PausedAt:      current,
				Context:       rc.Snapshot(),
				StepsExecuted: steps,
				CreatedAt:     e.now(),
			}
			e.logger.InfoContext(ctx, "run paused",
				"run_id", runID, "node", current, "steps_executed", steps)
			return &Result{
				RunID:         runID,
				Status:        StatePaused,
				StepsExecuted: steps,
				PausedAt:      current,
				Snapshot:      snap,
				Goal:          g.Goal,
				Mocked:        e.invoker.Mocked(),
				Duration:      e.now().Sub(startTime),
			}, nil
		}
		skipPause = false

		if steps >= e.budget {
			e.logger.WarnContext(ctx, "step budget exceeded",
				"run_id", runID, "node", current, "budget", e.budget)
			return e.finish(ctx, g, runID, StateBudgetExceeded, steps, rc, startTime,
				types.NewError(types.BUDGET_EXCEEDED,
					fmt.Sprintf("step budget of %d exceeded at node %s", e.budget, current))), nil
		}

		if err := e.checkCredentials(node); err != nil {
			return e.finish(ctx, g, runID, StateFailed, steps, rc, startTime, err), nil
		}

		inputs, err := rc.Get(node.InputKeys)
		if err != nil {
			return e.finish(ctx, g, runID, StateFailed, steps, rc, startTime,
				types.WrapError(types.MISSING_KEY,
					fmt.Sprintf("node %s inputs unavailable", node.ID), err)), nil
		}

		outcome := e.invokeWithRetry(ctx, node, inputs)
		steps++

		if !outcome.Succeeded() && outcome.Err != nil && outcome.Err.Code == types.RUN_CANCELLED {
			return e.finish(ctx, g, runID, StateFailed, steps, rc, startTime, outcome.Err), nil
		}

		// Produced output is committed only on the finally-successful
		// outcome; failed attempts never half-merge.
		if outcome.Succeeded() {
			rc.Merge(outcome.Produced)
		}

		if g.IsTerminalNode(current) {
			if outcome.Succeeded() {
				return e.finish(ctx, g, runID, StateSucceeded, steps, rc, startTime, nil), nil
			}
			return e.finish(ctx, g, runID, StateFailed, steps, rc, startTime, outcome.Err), nil
		}

		target, matched, err := e.router.Select(g, current, outcome, rc)
		if err != nil {
			hiveErr, ok := err.(*types.HiveError)
			if !ok {
				hiveErr = types.WrapError(types.EXPRESSION_INVALID, "edge predicate failed", err)
			}
			return e.finish(ctx, g, runID, StateFailed, steps, rc, startTime, hiveErr), nil
		}
		if !matched {
			return e.finish(ctx, g, runID, StateFailed, steps, rc, startTime,
				types.NewError(types.NO_MATCHING_EDGE,
					fmt.Sprintf("no edge matched out of node %s with outcome %s", current, outcome.Status))), nil
		}
		current = target
	}
}

// invokeWithRetry invokes a node with up to MaxRetries additional attempts
// on failure. Every retry reuses the same input snapshot; cancellation ends
// the attempt sequence immediately.
func (e *Engine) invokeWithRetry(ctx context.Context, node *graph.NodeSpec, inputs map[string]any) *Outcome {
	ctx = contextkeys.WithNodeID(ctx, node.ID)
	var span trace.Span
	if e.tracer != nil {
		ctx, span = e.tracer.Start(ctx, "engine.invoke",
			trace.WithAttributes(
				attribute.String("node.id", node.ID),
				attribute.String("node.type", node.Type.String()),
				attribute.Int("node.max_retries", node.MaxRetries),
			),
		)
		defer span.End()
	}

	attempts := node.MaxRetries + 1
	var outcome *Outcome
	for attempt := 1; attempt <= attempts; attempt++ {
		outcome = e.invoker.Invoke(ctx, node, copyView(inputs))
		if outcome.Succeeded() {
			return outcome
		}
		if outcome.Err != nil && outcome.Err.Code == types.RUN_CANCELLED {
			return outcome
		}
		if attempt < attempts {
			e.logger.DebugContext(ctx, "node attempt failed, retrying",
				"node", node.ID, "attempt", attempt, "error", outcome.Err)
		}
	}
	e.logger.WarnContext(ctx, "node failed after all attempts",
		"node", node.ID, "attempts", attempts, "error", outcome.Err)
	return outcome
}

// graphName tolerates the nil graphs Validate reports on, so diagnostics
// never dereference one.
func graphName(g *graph.Graph) string {
	if g == nil {
		return ""
	}
	return g.Name
}

// checkCredentials enforces the pre-invocation credential gate for model
// and tool nodes. A missing secret fails the run without the external call
// being attempted and without retrying.
func (e *Engine) checkCredentials(node *graph.NodeSpec) *types.HiveError {
	if e.credentials == nil || e.tools == nil || len(node.ToolRefs) == 0 {
		return nil
	}
	if node.Type != graph.NodeTypeModel && node.Type != graph.NodeTypeTool {
		return nil
	}

	for _, ref := range node.ToolRefs {
		t, err := e.tools.Get(ref)
		if err != nil {
			continue // unknown tool surfaces from the invoker, not the gate
		}
		for _, name := range t.Credentials() {
			if !e.credentials.IsAvailable(name) {
				return types.NewError(types.MISSING_CREDENTIAL,
					fmt.Sprintf("node %s requires credential %q for tool %q", node.ID, name, ref))
			}
		}
	}
	return nil
}

func (e *Engine) finish(ctx context.Context, g *graph.Graph, runID types.ID, status RunState, steps int, rc *Context, startTime time.Time, runErr *types.HiveError) *Result {
	result := &Result{
		RunID:         runID,
		Status:        status,
		StepsExecuted: steps,
		Error:         runErr,
		Goal:          g.Goal,
		Mocked:        e.invoker.Mocked(),
		Duration:      e.now().Sub(startTime),
	}
	if status == StateSucceeded {
		result.Output = rc.Snapshot()
	}

	if runErr != nil {
		e.logger.WarnContext(ctx, "run finished",
			"run_id", runID, "status", status, "steps_executed", steps, "error", runErr)
	} else {
		e.logger.InfoContext(ctx, "run finished",
			"run_id", runID, "status", status, "steps_executed", steps)
	}
	return result
}
