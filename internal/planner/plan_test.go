package planner

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/kissa/kissa/internal/graphmodel"
	"github.com/kissa/kissa/internal/index"
)

func openTestStore(t *testing.T) *index.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "kissa.db")
	logger := logrus.New()
	logger.SetOutput(testWriter{t})
	store, err := index.Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestGenerateDetectsDestinationConflicts(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	a := &index.Node{Path: "/repos/a", Name: "shared", RemotesJSON: "[]", LanguagesJSON: "{}", OverridesJSON: "{}"}
	b := &index.Node{Path: "/repos/b", Name: "shared", RemotesJSON: "[]", LanguagesJSON: "{}", OverridesJSON: "{}"}
	if err := store.UpsertNode(ctx, a); err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	if err := store.UpsertNode(ctx, b); err != nil {
		t.Fatalf("upsert b: %v", err)
	}

	pattern := Pattern{Rules: []PatternRule{
		{Match: graphmodel.Filter{}, PathTemplate: "/base/{repo_name}"},
	}}

	p := New(store, 50)
	_, _, conflicts, err := p.Generate(ctx, []*index.Node{a, b}, pattern, nil, nil)
	if err == nil {
		t.Fatal("expected a conflict error when two repos resolve to the same destination")
	}
	if len(conflicts) != 1 || conflicts[0] != "/base/shared" {
		t.Errorf("conflicts = %v, want [/base/shared]", conflicts)
	}
}

func TestGenerateRejectsOversizedScope(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	p := New(store, 1)

	nodes := []*index.Node{
		{Path: "/repos/a", Name: "a", RemotesJSON: "[]", LanguagesJSON: "{}", OverridesJSON: "{}"},
		{Path: "/repos/b", Name: "b", RemotesJSON: "[]", LanguagesJSON: "{}", OverridesJSON: "{}"},
	}
	pattern := Pattern{Rules: []PatternRule{{Match: graphmodel.Filter{}, PathTemplate: "/base/{repo_name}"}}}

	_, _, _, err := p.Generate(ctx, nodes, pattern, nil, nil)
	if err == nil {
		t.Fatal("expected max_plan_size to reject a two-repo scope with size 1")
	}
}

func TestGenerateSkipsNodesAlreadyAtDestination(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	n := &index.Node{Path: "/base/already-there", Name: "already-there", RemotesJSON: "[]", LanguagesJSON: "{}", OverridesJSON: "{}"}
	if err := store.UpsertNode(ctx, n); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	pattern := Pattern{Rules: []PatternRule{{Match: graphmodel.Filter{}, PathTemplate: "/base/{repo_name}"}}}
	p := New(store, 50)

	plan, actions, conflicts, err := p.Generate(ctx, []*index.Node{n}, pattern, nil, nil)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("expected no conflicts, got %v", conflicts)
	}
	if len(actions) != 0 {
		t.Errorf("expected no move action for a node already at its destination, got %d actions", len(actions))
	}
	if plan.Status != index.PlanPending {
		t.Errorf("expected a pending plan, got %v", plan.Status)
	}
}
