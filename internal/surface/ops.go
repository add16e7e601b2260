package surface

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kissa/kissa/internal/format"
	"github.com/kissa/kissa/internal/graphmodel"
	"github.com/kissa/kissa/internal/index"
)

func nodeLine(n *index.Node) string {
	return fmt.Sprintf("%s  %s/%s/%s  %s", n.Path, n.Category, n.Ownership, n.Intention, n.Lifecycle)
}

// List runs a Filter query and renders one line per matching node
// (spec.md §4.5, the `list` verb / `list_repos` tool).
func (c *Core) List(ctx context.Context, f graphmodel.Filter) (*format.Response, error) {
	nodes, err := c.Compiler.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	r := format.New(format.Listing, fmt.Sprintf("%d repo(s)", len(nodes)))
	for _, n := range nodes {
		r.WithDetails(nodeLine(n))
	}
	return r, nil
}

// Status reports one repo's full git vitals (the `status`/`info` verbs,
// `repo_status` tool).
func (c *Core) Status(ctx context.Context, path string) (*format.Response, error) {
	n, err := c.Store.GetNodeByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	r := format.New(format.Status, fmt.Sprintf("%s (%s)", n.Path, n.Lifecycle)).
		WithDetails(
			fmt.Sprintf("branch: %s", n.CurrentBranch),
			fmt.Sprintf("dirty=%v staged=%v untracked=%v", n.Dirty, n.Staged, n.Untracked),
			fmt.Sprintf("ahead=%d behind=%d", n.Ahead, n.Behind),
			fmt.Sprintf("category=%s ownership=%s intention=%s", n.Category, n.Ownership, n.Intention),
			fmt.Sprintf("freshness=%s", index.ComputeFreshness(n.LastCommit, time.Now().UTC())),
		)
	if n.Confidence > 0 && n.Confidence < 1 {
		r.WithDetails(fmt.Sprintf("intention confidence=%.2f", n.Confidence))
	}
	return r, nil
}

// Freshness lists nodes whose freshness tier matches tier (empty means
// all), one line each with the computed tier.
func (c *Core) Freshness(ctx context.Context, tier string) (*format.Response, error) {
	nodes, err := c.Compiler.Query(ctx, graphmodel.Filter{Freshness: tier})
	if err != nil {
		return nil, err
	}
	r := format.New(format.Status, fmt.Sprintf("%d repo(s) at freshness=%s", len(nodes), tierLabel(tier)))
	now := time.Now().UTC()
	for _, n := range nodes {
		r.WithDetails(fmt.Sprintf("%s  %s  last_commit=%s", n.Path, index.ComputeFreshness(n.LastCommit, now), n.LastCommit.Format("2006-01-02")))
	}
	return r, nil
}

func tierLabel(tier string) string {
	if tier == "" {
		return "any"
	}
	return tier
}

// Deps renders the incoming DEPENDS_ON set for the repo at path.
func (c *Core) Deps(ctx context.Context, path string) (*format.Response, error) {
	n, err := c.Store.GetNodeByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	deps, err := c.Compiler.Deps(ctx, n)
	if err != nil {
		return nil, err
	}
	r := format.New(format.Deps, fmt.Sprintf("%d repo(s) depend on %s", len(deps), n.Path))
	for _, d := range deps {
		r.WithDetails(d.Path)
	}
	return r, nil
}

// Related renders every one-hop neighbor of the repo at path, any edge type.
func (c *Core) Related(ctx context.Context, path string) (*format.Response, error) {
	n, err := c.Store.GetNodeByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	related, err := c.Compiler.Related(ctx, n)
	if err != nil {
		return nil, err
	}
	r := format.New(format.Related, fmt.Sprintf("%d repo(s) related to %s", len(related), n.Path))
	for _, rel := range related {
		r.WithDetails(fmt.Sprintf("%s (%s)", rel.Node.Path, rel.EdgeType))
	}
	return r, nil
}

// Search is a thin name/path substring filter over List, the agent
// surface's `search` tool (spec §6: tools list includes `search`, with no
// dedicated CLI verb of its own; the `list` verb's flags offer no
// name/path substring match).
func (c *Core) Search(ctx context.Context, query string) (*format.Response, error) {
	nodes, err := c.Compiler.Query(ctx, graphmodel.Filter{})
	if err != nil {
		return nil, err
	}
	r := format.New(format.Listing, "")
	var matched []*index.Node
	q := strings.ToLower(query)
	for _, n := range nodes {
		if strings.Contains(strings.ToLower(n.Path), q) || strings.Contains(strings.ToLower(n.Name), q) {
			matched = append(matched, n)
		}
	}
	r.Summary = fmt.Sprintf("%d repo(s) matching %q", len(matched), query)
	for _, n := range matched {
		r.WithDetails(nodeLine(n))
	}
	return r, nil
}
