package main

import (
	"context"

	"github.com/spf13/cobra"
)

var initDotKissaCmd = &cobra.Command{
	Use:   "init-dotkissa <path>",
	Short: "Scaffold a .kissa enrichment file at a repo's root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := core.InitDotKissa(context.Background(), args[0])
		if err != nil {
			return err
		}
		return render(r)
	},
}
