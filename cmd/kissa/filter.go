package main

import (
	"github.com/spf13/cobra"

	"github.com/kissa/kissa/internal/graphmodel"
)

// filterFlags attaches the Filter vocabulary (spec §4.5) as flags shared
// by every verb that queries the graph.
func filterFlags(cmd *cobra.Command) {
	cmd.Flags().String("org", "", "filter by organization")
	cmd.Flags().String("path-prefix", "", "filter by path prefix")
	cmd.Flags().String("category", "", "filter by category")
	cmd.Flags().String("ownership", "", "filter by ownership")
	cmd.Flags().String("intention", "", "filter by intention")
	cmd.Flags().String("managed-by", "", "filter by managed_by")
	cmd.Flags().String("project", "", "filter by project")
	cmd.Flags().String("freshness", "", "filter by freshness tier")
	cmd.Flags().StringSlice("tag", nil, "filter by tag (repeatable)")
	cmd.Flags().Bool("dirty", false, "only repos with a dirty working tree")
	cmd.Flags().Bool("unpushed", false, "only repos with unpushed commits")
	cmd.Flags().Bool("orphan", false, "only repos with no remote")
	cmd.Flags().Bool("duplicates", false, "only repos flagged as duplicates")
	cmd.Flags().Bool("lost", false, "only repos marked lost")
}

func filterFromFlags(cmd *cobra.Command) graphmodel.Filter {
	f := graphmodel.Filter{}
	f.Org, _ = cmd.Flags().GetString("org")
	f.PathPrefix, _ = cmd.Flags().GetString("path-prefix")
	f.Category, _ = cmd.Flags().GetString("category")
	f.Ownership, _ = cmd.Flags().GetString("ownership")
	f.Intention, _ = cmd.Flags().GetString("intention")
	f.ManagedBy, _ = cmd.Flags().GetString("managed-by")
	f.Project, _ = cmd.Flags().GetString("project")
	f.Freshness, _ = cmd.Flags().GetString("freshness")
	f.Tags, _ = cmd.Flags().GetStringSlice("tag")

	if v, _ := cmd.Flags().GetBool("dirty"); cmd.Flags().Changed("dirty") {
		f.Dirty = &v
	}
	if v, _ := cmd.Flags().GetBool("unpushed"); cmd.Flags().Changed("unpushed") {
		f.Unpushed = &v
	}
	if v, _ := cmd.Flags().GetBool("orphan"); cmd.Flags().Changed("orphan") {
		f.Orphan = &v
	}
	if v, _ := cmd.Flags().GetBool("duplicates"); cmd.Flags().Changed("duplicates") {
		f.Duplicates = &v
	}
	if v, _ := cmd.Flags().GetBool("lost"); cmd.Flags().Changed("lost") {
		f.Lost = &v
	}
	return f
}
