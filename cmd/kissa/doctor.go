package main

import (
	"context"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run read-only health checks against the index and scan configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := core.Doctor(context.Background())
		if err != nil {
			return err
		}
		return render(r)
	},
}
