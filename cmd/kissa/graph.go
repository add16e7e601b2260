package main

import (
	"context"

	"github.com/spf13/cobra"
)

// graphCmd renders the same one-hop neighborhood as `related`: spec.md
// §6 names `graph` as a distinct CLI verb from `related`/`deps` without
// describing separate output, and the agent surface has no `graph` tool
// counterpart at all, so it is kept as the CLI-only, human-browsing name
// for the identical neighborhood query.
var graphCmd = &cobra.Command{
	Use:   "graph <path>",
	Short: "Show the local graph neighborhood of a repo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := core.Related(context.Background(), args[0])
		if err != nil {
			return err
		}
		return render(r)
	},
}
