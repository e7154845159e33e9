package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aden-hq/hive/internal/credential"
	"github.com/aden-hq/hive/internal/engine"
	"github.com/aden-hq/hive/internal/graph"
	"github.com/aden-hq/hive/internal/llm"
	"github.com/aden-hq/hive/internal/session"
	"github.com/aden-hq/hive/internal/tool"
	"github.com/aden-hq/hive/internal/types"
)

var (
	runInput      string
	runStepBudget int
	runMock       bool
	runScriptPath string
	runSessionDB  string
)

var runCmd = &cobra.Command{
	Use:   "run <graph.yaml>",
	Short: "Execute a workflow graph from its entry point",
	Long: `Run loads a graph definition, validates it, and executes it from its
entry point. If the run reaches a pause node, the snapshot is persisted to
the session store and the run ID is printed for a later resume.

With --mock, model and tool nodes consume scripted outcomes from the
--script file instead of calling external capabilities; the result is
marked as mocked.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "{}", "Initial context as a JSON object")
	runCmd.Flags().IntVar(&runStepBudget, "step-budget", 0, "Override the configured step budget")
	runCmd.Flags().BoolVar(&runMock, "mock", false, "Substitute scripted outcomes for external calls")
	runCmd.Flags().StringVar(&runScriptPath, "script", "", "Scripted outcomes file for --mock (YAML)")
	runCmd.Flags().StringVar(&runSessionDB, "session-db", "", "Override the session database path")
}

func runRun(cmd *cobra.Command, args []string) error {
	g, err := graph.LoadYAMLFile(args[0])
	if err != nil {
		return err
	}

	input, err := parseInput(runInput)
	if err != nil {
		return err
	}

	eng, err := buildEngine()
	if err != nil {
		return err
	}

	result, err := eng.Execute(cmd.Context(), g, input)
	if err != nil {
		return err
	}

	if result.Status == engine.StatePaused {
		if err := persistSnapshot(cmd, args[0], result.Snapshot); err != nil {
			return err
		}
	}
	return printResult(cmd, result)
}

func parseInput(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, fmt.Errorf("--input must be a JSON object: %w", err)
	}
	return input, nil
}

func stepBudget() int {
	if runStepBudget > 0 {
		return runStepBudget
	}
	return cfg.StepBudget
}

// toolRegistry backs both the credential gate and the live invoker, so the
// gate checks exactly the tools an invocation could reach. An embedding
// application registers its tools here before executing graphs.
var toolRegistry = tool.NewRegistry()

func buildEngine() (*engine.Engine, error) {
	invoker, err := buildInvoker()
	if err != nil {
		return nil, err
	}
	return engine.NewEngine(invoker, stepBudget(),
		engine.WithLogger(slog.Default()),
		engine.WithCredentialStore(toolRegistry, credential.NewEnvStore(cfg.CredentialPrefix)),
	)
}

func buildInvoker() (engine.Invoker, error) {
	if runMock {
		mock := engine.NewMockInvoker()
		if runScriptPath != "" {
			if err := loadScript(runScriptPath, mock); err != nil {
				return nil, err
			}
		}
		return mock, nil
	}

	// Live invocation requires providers and tools registered by the
	// embedding application; the bare CLI runs conditional and
	// terminal-pass graphs, and everything under --mock.
	var provider llm.Provider
	return engine.NewLiveInvoker(provider, toolRegistry, nil,
		engine.WithDefaultTimeout(cfg.DefaultNodeTimeout)), nil
}

// scriptEntry is one scripted outcome in a --script file: a YAML mapping
// from node ID to an ordered list of entries.
type scriptEntry struct {
	Status   string         `yaml:"status"`
	Produced map[string]any `yaml:"produced,omitempty"`
	Code     string         `yaml:"error_code,omitempty"`
	Message  string         `yaml:"message,omitempty"`
}

func loadScript(path string, mock *engine.MockInvoker) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read script file: %w", err)
	}

	var script map[string][]scriptEntry
	if err := yaml.Unmarshal(data, &script); err != nil {
		return fmt.Errorf("failed to parse script file: %w", err)
	}

	for nodeID, entries := range script {
		for _, entry := range entries {
			switch entry.Status {
			case "success", "":
				mock.Script(nodeID, engine.Success(entry.Produced))
			case "failure":
				code := types.ErrorCode(entry.Code)
				if code == "" {
					code = types.UPSTREAM_FAILURE
				}
				msg := entry.Message
				if msg == "" {
					msg = fmt.Sprintf("scripted failure for node %s", nodeID)
				}
				mock.Script(nodeID, engine.Failure(types.NewError(code, msg)))
			default:
				return fmt.Errorf("script for node %s: unknown status %q", nodeID, entry.Status)
			}
		}
	}
	return nil
}

func sessionPath() string {
	if runSessionDB != "" {
		return runSessionDB
	}
	return cfg.SessionPath
}

// openStore opens the session database and expires snapshots of runs that
// have been paused for longer than the configured TTL.
func openStore(cmd *cobra.Command) (*session.SQLiteStore, error) {
	store, err := session.OpenSQLite(sessionPath())
	if err != nil {
		return nil, err
	}
	pruned, err := store.PruneExpired(cmd.Context(), cfg.SnapshotTTL)
	if err != nil {
		slog.Warn("failed to prune expired snapshots", "error", err)
	} else if pruned > 0 {
		slog.Debug("pruned expired snapshots", "count", pruned, "ttl", cfg.SnapshotTTL)
	}
	return store, nil
}

func persistSnapshot(cmd *cobra.Command, graphPath string, snapshot *engine.Snapshot) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(cmd.Context(), snapshot); err != nil {
		return err
	}
	cmd.PrintErrf("Run paused at %s; resume with: hive resume %s %s\n",
		snapshot.PausedAt, graphPath, snapshot.RunID)
	return nil
}

func printResult(cmd *cobra.Command, result *engine.Result) error {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}
