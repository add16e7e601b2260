package main

import (
	"context"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List repos matching the given filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := core.List(context.Background(), filterFromFlags(cmd))
		if err != nil {
			return err
		}
		return render(r)
	},
}

func init() {
	filterFlags(listCmd)
}
