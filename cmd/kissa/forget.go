package main

import (
	"context"

	"github.com/spf13/cobra"
)

var forgetCmd = &cobra.Command{
	Use:   "forget <path>",
	Short: "Remove a repo from the index without touching the filesystem",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := core.Forget(context.Background(), args[0])
		if err != nil {
			return err
		}
		return render(r)
	},
}
