package main

import (
	"context"

	"github.com/spf13/cobra"
)

var relatedCmd = &cobra.Command{
	Use:   "related <path>",
	Short: "Show every one-hop neighbor of a repo, any edge type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := core.Related(context.Background(), args[0])
		if err != nil {
			return err
		}
		return render(r)
	},
}
