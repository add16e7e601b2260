package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var organizeCmd = &cobra.Command{
	Use:   "organize",
	Short: "Generate a reorganization plan for repos matching the given filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		persist, _ := cmd.Flags().GetBool("persist")
		r, err := core.Organize(context.Background(), filterFromFlags(cmd), nil, persist)
		if err != nil {
			return err
		}
		return render(r)
	},
}

// organizeApplyCmd runs the two-phase-commit apply of a plan previously
// generated (and persisted) by `organize --persist` — spec.md §207 lists
// no separate CLI verb for apply_plan, so it lives as a subcommand of the
// verb that produces the plan being applied.
var organizeApplyCmd = &cobra.Command{
	Use:   "apply <plan-id>",
	Short: "Apply a previously generated plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		allowDirty, _ := cmd.Flags().GetBool("allow-dirty")
		r, err := core.ApplyPlan(context.Background(), args[0], allowDirty, 5*time.Second)
		if err != nil {
			return err
		}
		return render(r)
	},
}

func init() {
	filterFlags(organizeCmd)
	organizeCmd.Flags().Bool("persist", false, "persist the generated plan for a later apply")
	organizeApplyCmd.Flags().Bool("allow-dirty", false, "apply despite a dirty working tree")
	organizeCmd.AddCommand(organizeApplyCmd)
}
