package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aden-hq/hive/internal/types"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage paused-run snapshots",
	RunE:  runSessionsList,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete the snapshot of a paused run",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	sessionsCmd.Flags().StringVar(&runSessionDB, "session-db", "", "Override the session database path")
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	snapshots, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		cmd.Println("No paused runs.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tPAUSED AT\tSTEPS\tGRAPH VERSION\tCREATED")
	for _, s := range snapshots {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			s.RunID, s.PausedAt, s.StepsExecuted, s.GraphVersion,
			s.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	runID, err := types.ParseID(args[0])
	if err != nil {
		return err
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(cmd.Context(), runID); err != nil {
		return err
	}
	cmd.Printf("Deleted snapshot for run %s\n", runID)
	return nil
}
