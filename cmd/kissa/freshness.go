package main

import (
	"context"

	"github.com/spf13/cobra"
)

var freshnessCmd = &cobra.Command{
	Use:   "freshness [tier]",
	Short: "List repos by freshness tier (active, recent, stale, dormant, ancient)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tier := ""
		if len(args) == 1 {
			tier = args[0]
		}
		r, err := core.Freshness(context.Background(), tier)
		if err != nil {
			return err
		}
		return render(r)
	},
}
