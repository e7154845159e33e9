package main

import (
	"github.com/spf13/cobra"

	"github.com/aden-hq/hive/internal/engine"
	"github.com/aden-hq/hive/internal/graph"
	"github.com/aden-hq/hive/internal/types"
)

var resumeInput string

var resumeCmd = &cobra.Command{
	Use:   "resume <graph.yaml> <run-id>",
	Short: "Resume a paused run from its persisted snapshot",
	Long: `Resume loads the snapshot for a paused run, merges any additional
input into its context, and continues execution from the pause node. The
snapshot is deleted once the resumed run finishes in a non-paused state;
a run that pauses again replaces it.`,
	Args: cobra.ExactArgs(2),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeInput, "input", "{}", "Additional context as a JSON object")
	resumeCmd.Flags().BoolVar(&runMock, "mock", false, "Substitute scripted outcomes for external calls")
	resumeCmd.Flags().StringVar(&runScriptPath, "script", "", "Scripted outcomes file for --mock (YAML)")
	resumeCmd.Flags().IntVar(&runStepBudget, "step-budget", 0, "Override the configured step budget")
	resumeCmd.Flags().StringVar(&runSessionDB, "session-db", "", "Override the session database path")
}

func runResume(cmd *cobra.Command, args []string) error {
	g, err := graph.LoadYAMLFile(args[0])
	if err != nil {
		return err
	}
	runID, err := types.ParseID(args[1])
	if err != nil {
		return err
	}
	extra, err := parseInput(resumeInput)
	if err != nil {
		return err
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	snapshot, err := store.Load(cmd.Context(), runID)
	if err != nil {
		return err
	}

	eng, err := buildEngine()
	if err != nil {
		return err
	}

	result, err := eng.Resume(cmd.Context(), g, snapshot, extra)
	if err != nil {
		return err
	}

	// The snapshot is consumed exactly once: replaced if the run paused
	// again, deleted otherwise.
	if result.Status == engine.StatePaused {
		if err := store.Save(cmd.Context(), result.Snapshot); err != nil {
			return err
		}
		cmd.PrintErrf("Run paused again at %s\n", result.PausedAt)
	} else if err := store.Delete(cmd.Context(), runID); err != nil {
		return err
	}

	return printResult(cmd, result)
}
