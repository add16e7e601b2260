package main

import (
	"context"

	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <path>",
	Short: "Force reclassification of a single repo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := core.Classify(context.Background(), args[0])
		if err != nil {
			return err
		}
		return render(r)
	},
}
