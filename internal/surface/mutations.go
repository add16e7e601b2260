package surface

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kissa/kissa/internal/format"
	"github.com/kissa/kissa/internal/graphmodel"
	"github.com/kissa/kissa/internal/index"
	"github.com/kissa/kissa/internal/permission"
	"github.com/kissa/kissa/internal/planner"
	"github.com/kissa/kissa/internal/scanner"
)

// Scan runs the requested tier and renders a scan_complete response
// (spec §4.2's T0-T2; the `scan` verb/tool).
func (c *Core) Scan(ctx context.Context, tier string) (*format.Response, error) {
	switch tier {
	case "", "t2", "full":
		res, err := c.Scanner.T2FullWalk(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.classifyAfterScan(ctx); err != nil {
			return nil, err
		}
		return scanResponse(res), nil
	case "t1", "quick":
		res, err := c.Scanner.T1QuickVerify(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.classifyAfterScan(ctx); err != nil {
			return nil, err
		}
		return scanResponse(res), nil
	case "t0", "index":
		scan, err := c.Scanner.T0IndexOnly(ctx)
		if err != nil {
			return nil, err
		}
		if scan == nil {
			return format.New(format.ScanComplete, "no prior scan recorded"), nil
		}
		return format.New(format.ScanComplete, fmt.Sprintf("last scan: %s, %d seen, %d lost", scan.Tier, scan.NodesSeen, scan.NodesLost)), nil
	default:
		return nil, fmt.Errorf("unrecognized scan tier %q", tier)
	}
}

func scanResponse(res *scanner.Result) *format.Response {
	r := format.New(format.ScanComplete, fmt.Sprintf("%s scan: %d seen, %d lost, %d discovered", res.Tier, res.NodesSeen, res.NodesLost, len(res.Discovered)))
	for _, p := range res.Discovered {
		r.WithDetails(fmt.Sprintf("discovered: %s", p))
	}
	for _, w := range res.Warnings {
		r.WithDetails(fmt.Sprintf("warning: %s: %s", w.Path, w.Message))
	}
	return r
}

// Organize generates (and optionally persists) a reorganization plan
// against the repos matching scope (spec §4.6, `organize` verb/tool).
func (c *Core) Organize(ctx context.Context, scope graphmodel.Filter, archival *graphmodel.Filter, persist bool) (*format.Response, error) {
	nodes, err := c.Compiler.Query(ctx, scope)
	if err != nil {
		return nil, err
	}
	pattern := planner.FromConfig(c.Config)

	plan, actions, conflicts, err := c.Planner.Generate(ctx, nodes, pattern, archival, nil)
	if err != nil {
		if len(conflicts) > 0 {
			return format.FromError(err), nil
		}
		return nil, err
	}

	if len(actions) == 0 {
		return format.New(format.PlanReady, "no actions needed; every repo is already at its resolved destination"), nil
	}

	if persist {
		if err := c.Planner.Persist(ctx, plan, actions); err != nil {
			return nil, err
		}
	}

	r := format.New(format.PlanReady, fmt.Sprintf("plan %s: %d action(s)", plan.ID, len(actions)))
	for _, a := range actions {
		r.WithDetails(describeAction(a))
	}
	r.WithNext(fmt.Sprintf("kissa organize apply %s", plan.ID))
	return r, nil
}

func describeAction(a *index.PlanAction) string {
	switch a.Kind {
	case index.ActionMove:
		return fmt.Sprintf("move %s -> %s", a.FromPath, a.ToPath)
	case index.ActionArchive:
		return fmt.Sprintf("archive %s", a.FromPath)
	case index.ActionTag:
		return fmt.Sprintf("tag %s: %s", a.FromPath, a.TagsJSON)
	default:
		return string(a.Kind)
	}
}

// ApplyPlan runs the two-phase-commit apply of a previously generated
// plan by ID (spec §4.6, the `apply_plan` tool / `kissa organize apply`
// verb path).
func (c *Core) ApplyPlan(ctx context.Context, planID string, allowDirty bool, gitProbeTimeout time.Duration) (*format.Response, error) {
	plan, actions, err := c.Store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	result, err := planner.Apply(ctx, c.Store, c.Gate, plan, actions, allowDirty, gitProbeTimeout)
	if err != nil {
		if result != nil && result.Failed != nil {
			r := format.New(format.Error, fmt.Sprintf("plan %s failed at %s, rolled back %d action(s)", planID, describeAction(result.Failed), len(result.RolledBack)))
			return r, nil
		}
		return nil, err
	}

	r := format.New(format.PlanApplied, fmt.Sprintf("plan %s applied: %d action(s)", planID, len(result.Applied)))
	for nodeID, impacted := range result.DependencyImpacts {
		if len(impacted) > 0 {
			r.WithDetails(fmt.Sprintf("node #%d may break references in: %v", nodeID, impacted))
		}
	}
	return r, nil
}

// Move performs a single explicit move outside the pattern resolver — the
// `move` verb gives an exact destination rather than letting the Pattern
// compute one.
func (c *Core) Move(ctx context.Context, path, dest string) (*format.Response, error) {
	if err := c.Gate.Check(path, permission.LevelCommit, permission.SurfaceCLI); err != nil {
		return format.FromError(err), nil
	}

	n, err := c.Store.GetNodeByPath(ctx, path)
	if err != nil {
		return nil, err
	}

	plan := &index.Plan{ID: fmt.Sprintf("move-%d-%d", n.ID, time.Now().UnixNano()), CreatedAt: time.Now().UTC(), Status: index.PlanPending}
	actions := []*index.PlanAction{{Kind: index.ActionMove, NodeID: n.ID, FromPath: n.Path, ToPath: filepath.Clean(dest)}}
	if err := c.Store.CreatePlan(ctx, plan, actions); err != nil {
		return nil, err
	}

	result, err := planner.Apply(ctx, c.Store, c.Gate, plan, actions, false, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return format.New(format.Moved, fmt.Sprintf("%s -> %s", path, dest)).WithDetails(fmt.Sprintf("%d action(s) applied", len(result.Applied))), nil
}

// Tag attaches a label to the repo at path.
func (c *Core) Tag(ctx context.Context, path, label string) (*format.Response, error) {
	n, err := c.Store.GetNodeByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := c.Store.AddTag(ctx, n.ID, label); err != nil {
		return nil, err
	}
	return format.New(format.Executed, fmt.Sprintf("tagged %s with %q", path, label)), nil
}

// Classify forces reclassification of one repo, persisting any new tags
// a matched rule assigns.
func (c *Core) Classify(ctx context.Context, path string) (*format.Response, error) {
	n, err := c.Store.GetNodeByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	siblings, err := otherIndexedPaths(ctx, c, n.ID)
	if err != nil {
		return nil, err
	}
	tags := c.Classifier.Reclassify(n, siblings, time.Now().UTC())
	if err := c.Store.UpsertNode(ctx, n); err != nil {
		return nil, err
	}
	for _, tag := range tags {
		if err := c.Store.AddTag(ctx, n.ID, tag); err != nil {
			return nil, err
		}
	}
	return format.New(format.Executed, fmt.Sprintf("%s: category=%s ownership=%s intention=%s", path, n.Category, n.Ownership, n.Intention)), nil
}

// Forget purges the repo at path from the index entirely, without
// touching the filesystem (the `forget` verb).
func (c *Core) Forget(ctx context.Context, path string) (*format.Response, error) {
	n, err := c.Store.GetNodeByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := c.Store.ForgetNode(ctx, n.ID); err != nil {
		return nil, err
	}
	return format.New(format.Executed, fmt.Sprintf("forgot %s", path)), nil
}

// classifyAfterScan runs the Classifier over every non-lost node so that a
// scan actually completes spec.md §2's pipeline ("Scanner discovers repo
// roots -> Git Probe extracts vitals -> Classifier assigns axes -> Index
// Store persists nodes+edges") instead of leaving a freshly discovered
// node's category/ownership/intention blank until a user runs `classify`
// on it by hand.
func (c *Core) classifyAfterScan(ctx context.Context) error {
	all, err := c.Store.AllNodes(ctx)
	if err != nil {
		return err
	}
	nodes := make([]*index.Node, 0, len(all))
	for _, n := range all {
		if n.Lifecycle != string(index.LifecycleLost) {
			nodes = append(nodes, n)
		}
	}

	tagsByNode := c.Classifier.ClassifyAll(ctx, nodes, time.Now().UTC())
	for _, n := range nodes {
		if err := c.Store.UpsertNode(ctx, n); err != nil {
			return err
		}
	}
	for nodeID, tags := range tagsByNode {
		for _, tag := range tags {
			if err := c.Store.AddTag(ctx, nodeID, tag); err != nil {
				return err
			}
		}
	}
	return graphmodel.DetectEdges(ctx, c.Store)
}

// otherIndexedPaths returns the path of every indexed node besides
// excludeID, the "siblingPaths" vocabulary the Classifier's
// dependency-manifest inference scans (spec §4.4).
func otherIndexedPaths(ctx context.Context, c *Core, excludeID int64) ([]string, error) {
	nodes, err := c.Store.AllNodes(ctx)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.ID != excludeID {
			paths = append(paths, n.Path)
		}
	}
	return paths, nil
}
