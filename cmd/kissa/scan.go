package main

import (
	"context"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan configured roots and update the index",
	RunE: func(cmd *cobra.Command, args []string) error {
		tier, _ := cmd.Flags().GetString("tier")
		r, err := core.Scan(context.Background(), tier)
		if err != nil {
			return err
		}
		return render(r)
	},
}

func init() {
	scanCmd.Flags().String("tier", "t2", "scan tier: t0 (index-only), t1 (quick verify), t2 (full walk)")
}
