package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aden-hq/hive/internal/graph"
)

var validateCmd = &cobra.Command{
	Use:   "validate <graph.yaml>",
	Short: "Check a graph definition for structural errors",
	Long: `Validate loads a graph definition and reports every structural
error at once: missing entry point, dangling edge endpoints, input/output
key collisions, and the rest. A valid graph prints nothing and exits 0.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	g, err := graph.LoadYAMLFileUnvalidated(args[0])
	if err != nil {
		return err
	}

	errs := graph.Validate(g)
	if len(errs) == 0 {
		cmd.Printf("Graph %q is valid (%d nodes, %d edges)\n", g.Name, len(g.Nodes), len(g.Edges))
		return nil
	}

	for _, e := range errs {
		cmd.Printf("  - %s\n", e.Error())
	}
	return fmt.Errorf("graph %q has %d structural error(s)", g.Name, len(errs))
}
