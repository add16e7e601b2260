package main

import (
	"context"

	"github.com/spf13/cobra"
)

var depsCmd = &cobra.Command{
	Use:   "deps <path>",
	Short: "Show repos that depend on a repo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := core.Deps(context.Background(), args[0])
		if err != nil {
			return err
		}
		return render(r)
	},
}
