package main

import (
	"context"

	"github.com/spf13/cobra"
)

// infoCmd is a synonym for status: spec.md §6 lists both `status` and
// `info` as distinct CLI verbs without describing a difference in
// content, so both render the same repo-vitals response.
var infoCmd = &cobra.Command{
	Use:   "info <path>",
	Short: "Show full git vitals and classification for one repo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := core.Status(context.Background(), args[0])
		if err != nil {
			return err
		}
		return render(r)
	},
}
