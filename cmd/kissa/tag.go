package main

import (
	"context"

	"github.com/spf13/cobra"
)

var tagCmd = &cobra.Command{
	Use:   "tag <path> <label>",
	Short: "Attach a label to a repo",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := core.Tag(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		return render(r)
	},
}
