package index

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kissa/kissa/internal/errs"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(bytes.NewBuffer(nil))
	s, err := Open(filepath.Join(t.TempDir(), "index.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertNodeInsertsThenUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	n := &Node{Path: "/repos/widget", Name: "widget", Category: "project", RemotesJSON: "[]", LanguagesJSON: "{}", OverridesJSON: "{}", Lifecycle: "active"}
	if err := s.UpsertNode(ctx, n); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n.ID == 0 {
		t.Fatal("expected insert to assign an id")
	}

	n.Category = "archive"
	if err := s.UpsertNode(ctx, n); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.GetNodeByPath(ctx, "/repos/widget")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != n.ID {
		t.Fatalf("expected the same id across insert and update, got %d vs %d", got.ID, n.ID)
	}
	if got.Category != "archive" {
		t.Fatalf("expected updated category, got %q", got.Category)
	}

	all, err := s.AllNodes(ctx)
	if err != nil {
		t.Fatalf("all nodes: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one node row after update, got %d", len(all))
	}
}

func TestGetNodeByPathUnknownRepoError(t *testing.T) {
	s := newStore(t)
	_, err := s.GetNodeByPath(context.Background(), "/nowhere")
	e, ok := errs.As(err)
	if !ok || e.Kind != errs.UnknownRepo {
		t.Fatalf("expected an UnknownRepo error, got %v", err)
	}
}

func TestMarkLostThenRebindReactivates(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	n := &Node{Path: "/repos/widget", Name: "widget", RemotesJSON: "[]", LanguagesJSON: "{}", OverridesJSON: "{}", Lifecycle: "active"}
	if err := s.UpsertNode(ctx, n); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.MarkLost(ctx, "/repos/widget"); err != nil {
		t.Fatalf("mark lost: %v", err)
	}
	if _, err := s.GetNodeByPath(ctx, "/repos/widget"); err == nil {
		t.Fatal("expected a lost node to no longer resolve by its old path")
	}

	if err := s.Rebind(ctx, n.ID, "/repos/widget-moved"); err != nil {
		t.Fatalf("rebind: %v", err)
	}
	got, err := s.GetNodeByPath(ctx, "/repos/widget-moved")
	if err != nil {
		t.Fatalf("expected rebind to reactivate at the new path: %v", err)
	}
	if got.ID != n.ID {
		t.Fatalf("expected rebind to preserve the node id, got %d vs %d", got.ID, n.ID)
	}
}

func TestMarkLostExceptOnlyMarksUnseen(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := &Node{Path: "/repos/a", Name: "a", RemotesJSON: "[]", LanguagesJSON: "{}", OverridesJSON: "{}", Lifecycle: "active"}
	b := &Node{Path: "/repos/b", Name: "b", RemotesJSON: "[]", LanguagesJSON: "{}", OverridesJSON: "{}", Lifecycle: "active"}
	for _, n := range []*Node{a, b} {
		if err := s.UpsertNode(ctx, n); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	lost, err := s.MarkLostExcept(ctx, map[string]bool{"/repos/a": true})
	if err != nil {
		t.Fatalf("mark lost except: %v", err)
	}
	if lost != 1 {
		t.Fatalf("expected exactly one node to be marked lost, got %d", lost)
	}
	if _, err := s.GetNodeByPath(ctx, "/repos/a"); err != nil {
		t.Fatalf("expected seen node to stay active: %v", err)
	}
	if _, err := s.GetNodeByPath(ctx, "/repos/b"); err == nil {
		t.Fatal("expected unseen node to be marked lost")
	}
}

func TestFindLostByRemotesMatchesOnURL(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	n := &Node{
		Path: "/repos/widget", Name: "widget", Lifecycle: "active",
		RemotesJSON:   `[{"name":"origin","url":"https://example.com/me/widget.git"}]`,
		LanguagesJSON: "{}", OverridesJSON: "{}",
	}
	if err := s.UpsertNode(ctx, n); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.MarkLost(ctx, "/repos/widget"); err != nil {
		t.Fatalf("mark lost: %v", err)
	}

	matches, err := s.FindLostByRemotes(ctx, []string{"https://example.com/me/widget.git"})
	if err != nil {
		t.Fatalf("find lost by remotes: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != n.ID {
		t.Fatalf("expected to find the lost node by its remote url, got %+v", matches)
	}

	none, err := s.FindLostByRemotes(ctx, []string{"https://example.com/other.git"})
	if err != nil {
		t.Fatalf("find lost by remotes: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no matches for an unrelated url, got %+v", none)
	}
}

func TestForgetNodeRemovesNodeTagsAndEdges(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := &Node{Path: "/repos/a", Name: "a", RemotesJSON: "[]", LanguagesJSON: "{}", OverridesJSON: "{}", Lifecycle: "active"}
	b := &Node{Path: "/repos/b", Name: "b", RemotesJSON: "[]", LanguagesJSON: "{}", OverridesJSON: "{}", Lifecycle: "active"}
	for _, n := range []*Node{a, b} {
		if err := s.UpsertNode(ctx, n); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if err := s.AddTag(ctx, a.ID, "personal"); err != nil {
		t.Fatalf("add tag: %v", err)
	}
	edge := &Edge{SourceNodeID: a.ID, TargetNodeID: b.ID, EdgeType: string(EdgeSibling), MetadataJSON: "{}"}
	if err := s.UpsertEdge(ctx, edge); err != nil {
		t.Fatalf("upsert edge: %v", err)
	}

	if err := s.ForgetNode(ctx, a.ID); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if _, err := s.GetNode(ctx, a.ID); err == nil {
		t.Fatal("expected forgotten node to be gone")
	}
	tags, err := s.TagsFor(ctx, a.ID)
	if err != nil {
		t.Fatalf("tags for: %v", err)
	}
	if len(tags) != 0 {
		t.Fatalf("expected no tags for a forgotten node, got %v", tags)
	}
	edges, err := s.EdgesTouching(ctx, b.ID)
	if err != nil {
		t.Fatalf("edges touching: %v", err)
	}
	if len(edges) != 0 {
		t.Fatalf("expected the edge to be removed along with the node, got %v", edges)
	}
}

func TestUpsertEdgeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := &Node{Path: "/repos/a", Name: "a", RemotesJSON: "[]", LanguagesJSON: "{}", OverridesJSON: "{}", Lifecycle: "active"}
	b := &Node{Path: "/repos/b", Name: "b", RemotesJSON: "[]", LanguagesJSON: "{}", OverridesJSON: "{}", Lifecycle: "active"}
	for _, n := range []*Node{a, b} {
		if err := s.UpsertNode(ctx, n); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		edge := &Edge{SourceNodeID: a.ID, TargetNodeID: b.ID, EdgeType: string(EdgeDependsOn), MetadataJSON: "{}"}
		if err := s.UpsertEdge(ctx, edge); err != nil {
			t.Fatalf("upsert edge %d: %v", i, err)
		}
	}
	edges, err := s.AllEdges(ctx)
	if err != nil {
		t.Fatalf("all edges: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected upserting the same edge twice to not duplicate it, got %d edges", len(edges))
	}
}

func TestScanLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	id, err := s.BeginScan(ctx, "T2")
	if err != nil {
		t.Fatalf("begin scan: %v", err)
	}
	if err := s.FinishScan(ctx, id, 3, 1); err != nil {
		t.Fatalf("finish scan: %v", err)
	}
	last, err := s.LastScan(ctx)
	if err != nil {
		t.Fatalf("last scan: %v", err)
	}
	if last == nil || last.ID != id || last.NodesSeen != 3 || last.NodesLost != 1 {
		t.Fatalf("unexpected last scan: %+v", last)
	}
}

func TestCreateAndGetPlan(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	n := &Node{Path: "/repos/widget", Name: "widget", RemotesJSON: "[]", LanguagesJSON: "{}", OverridesJSON: "{}", Lifecycle: "active"}
	if err := s.UpsertNode(ctx, n); err != nil {
		t.Fatalf("insert node: %v", err)
	}

	plan := &Plan{ID: "plan-1", CreatedAt: time.Now().UTC(), Status: PlanPending}
	actions := []*PlanAction{
		{Kind: ActionMove, NodeID: n.ID, FromPath: "/repos/widget", ToPath: "/org/widget", TagsJSON: "[]"},
	}
	if err := s.CreatePlan(ctx, plan, actions); err != nil {
		t.Fatalf("create plan: %v", err)
	}

	gotPlan, gotActions, err := s.GetPlan(ctx, "plan-1")
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if gotPlan.Status != PlanPending {
		t.Fatalf("expected pending status, got %v", gotPlan.Status)
	}
	if len(gotActions) != 1 || gotActions[0].ToPath != "/org/widget" {
		t.Fatalf("unexpected actions: %+v", gotActions)
	}

	if err := s.SetPlanStatus(ctx, "plan-1", PlanApplied); err != nil {
		t.Fatalf("set plan status: %v", err)
	}
	if err := s.SetActionResult(ctx, gotActions[0].ID, "ok", ""); err != nil {
		t.Fatalf("set action result: %v", err)
	}

	gotPlan2, gotActions2, err := s.GetPlan(ctx, "plan-1")
	if err != nil {
		t.Fatalf("get plan again: %v", err)
	}
	if gotPlan2.Status != PlanApplied {
		t.Fatalf("expected applied status, got %v", gotPlan2.Status)
	}
	if gotActions2[0].Result != "ok" {
		t.Fatalf("expected action result 'ok', got %q", gotActions2[0].Result)
	}
}

func TestOverridesUpsertByPathGlobAndField(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if err := s.SetOverride(ctx, "/repos/*", "intention", "reference"); err != nil {
		t.Fatalf("set override: %v", err)
	}
	if err := s.SetOverride(ctx, "/repos/*", "intention", "archived"); err != nil {
		t.Fatalf("set override again: %v", err)
	}
	overrides, err := s.Overrides(ctx)
	if err != nil {
		t.Fatalf("overrides: %v", err)
	}
	if len(overrides) != 1 {
		t.Fatalf("expected the second SetOverride to update in place, got %d rows", len(overrides))
	}
	if overrides[0].Value != "archived" {
		t.Fatalf("expected updated value 'archived', got %q", overrides[0].Value)
	}
}
