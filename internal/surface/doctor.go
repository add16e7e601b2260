package surface

import (
	"context"
	"fmt"
	"os"

	"github.com/kissa/kissa/internal/format"
)

// Doctor runs the read-only health checks of SPEC_FULL.md §12: scan-root
// reachability, orphaned edges (endpoints neither indexed nor lost), and
// mount-boundary configuration sanity. Schema-version mismatches surface
// at index.Open time (migrate runs before Core ever exists), so a running
// Core implies the schema already checked out.
func (c *Core) Doctor(ctx context.Context) (*format.Response, error) {
	var problems []string

	for _, root := range c.Config.Scan.Roots {
		info, err := os.Stat(root)
		switch {
		case os.IsNotExist(err):
			problems = append(problems, fmt.Sprintf("scan root %s does not exist", root))
		case err != nil:
			problems = append(problems, fmt.Sprintf("scan root %s: %v", root, err))
		case !info.IsDir():
			problems = append(problems, fmt.Sprintf("scan root %s is not a directory", root))
		}
	}

	nodes, err := c.Store.AllNodes(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[int64]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}
	edges, err := c.Store.AllEdges(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		if !known[e.SourceNodeID] || !known[e.TargetNodeID] {
			problems = append(problems, fmt.Sprintf("orphaned edge %s (#%d -> #%d)", e.EdgeType, e.SourceNodeID, e.TargetNodeID))
		}
	}

	for _, m := range c.Config.Scan.Boundaries.BlockMounts {
		for _, a := range c.Config.Scan.Boundaries.AllowMounts {
			if m == a {
				problems = append(problems, fmt.Sprintf("mount %s is both allowed and blocked", m))
			}
		}
	}

	if len(problems) == 0 {
		return format.New(format.Status, "no problems found"), nil
	}
	r := format.New(format.Warning, fmt.Sprintf("%d problem(s) found", len(problems)))
	r.WithDetails(problems...)
	return r, nil
}

// GetConfig renders the effective configuration, the `config`
// verb/`get_config` tool (read-only; the configuration is loaded once at
// startup and nothing changes it for the life of the process).
func (c *Core) GetConfig() *format.Response {
	cfg := c.Config
	return format.New(format.Status, "effective configuration").WithDetails(
		fmt.Sprintf("scan.roots: %v", cfg.Scan.Roots),
		fmt.Sprintf("scan.max_depth: %d", cfg.Scan.MaxDepth),
		fmt.Sprintf("organization.pattern: %s", cfg.Organization.Pattern),
		fmt.Sprintf("defaults.difficulty: %s (agent: %s)", cfg.Defaults.Difficulty, cfg.Defaults.MCPDifficulty),
		fmt.Sprintf("safety.max_plan_size: %d", cfg.Safety.MaxPlanSize),
		fmt.Sprintf("safety.protected_branches: %v", cfg.Safety.ProtectedBranches),
	)
}
