package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kissa/kissa/internal/permission"
)

var execCmd = &cobra.Command{
	Use:                "exec <path> -- <git args...>",
	Short:              "Invoke a system git in a repo, the single passthrough boundary",
	Args:               cobra.MinimumNArgs(1),
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		gitArgs := args[1:]
		for len(gitArgs) > 0 && gitArgs[0] == "--" {
			gitArgs = gitArgs[1:]
		}
		r, err := core.Exec(context.Background(), path, gitArgs, permission.SurfaceCLI)
		if err != nil {
			return err
		}
		return render(r)
	},
}
