package main

import (
	"context"

	"github.com/spf13/cobra"
)

var moveCmd = &cobra.Command{
	Use:   "move <path> <destination>",
	Short: "Move a single repo to an exact destination, bypassing pattern resolution",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := core.Move(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		return render(r)
	},
}
