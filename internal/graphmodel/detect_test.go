package graphmodel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

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

func mustUpsert(t *testing.T, store *index.Store, n *index.Node) {
	t.Helper()
	if err := store.UpsertNode(context.Background(), n); err != nil {
		t.Fatalf("upsert %s: %v", n.Path, err)
	}
}

func edgeTypesBetween(t *testing.T, store *index.Store, a, b int64) []string {
	t.Helper()
	edges, err := store.EdgesTouching(context.Background(), a)
	if err != nil {
		t.Fatalf("edges touching: %v", err)
	}
	var types []string
	for _, e := range edges {
		if (e.SourceNodeID == a && e.TargetNodeID == b) || (e.SourceNodeID == b && e.TargetNodeID == a) {
			types = append(types, e.EdgeType)
		}
	}
	return types
}

func TestDetectDuplicatesByRemoteURL(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	a := &index.Node{Path: "/repos/a", Name: "a", RemotesJSON: `[{"name":"origin","url":"https://github.com/me/proj.git"}]`, LanguagesJSON: "{}", OverridesJSON: "{}"}
	b := &index.Node{Path: "/repos/clone-of-a", Name: "clone-of-a", RemotesJSON: `[{"name":"origin","url":"https://github.com/me/proj"}]`, LanguagesJSON: "{}", OverridesJSON: "{}"}
	c := &index.Node{Path: "/repos/unrelated", Name: "unrelated", RemotesJSON: `[{"name":"origin","url":"https://github.com/me/other.git"}]`, LanguagesJSON: "{}", OverridesJSON: "{}"}
	mustUpsert(t, store, a)
	mustUpsert(t, store, b)
	mustUpsert(t, store, c)

	if err := DetectEdges(ctx, store); err != nil {
		t.Fatalf("DetectEdges: %v", err)
	}

	types := edgeTypesBetween(t, store, a.ID, b.ID)
	if len(types) == 0 || types[0] != string(index.EdgeDuplicate) {
		t.Errorf("expected a DUPLICATE edge between a and b, got %v", types)
	}
	if types := edgeTypesBetween(t, store, a.ID, c.ID); contains(types, string(index.EdgeDuplicate)) {
		t.Errorf("did not expect a DUPLICATE edge between repos with different remotes, got %v", types)
	}
}

func TestDetectForkOfMatchesUpstreamToOrigin(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	upstream := &index.Node{Path: "/repos/upstream", Name: "upstream", RemotesJSON: `[{"name":"origin","url":"https://github.com/upstream/proj.git"}]`, LanguagesJSON: "{}", OverridesJSON: "{}"}
	fork := &index.Node{
		Path: "/repos/my-fork", Name: "my-fork", Category: string(index.CategoryFork),
		RemotesJSON:   `[{"name":"origin","url":"https://github.com/me/proj.git"},{"name":"upstream","url":"https://github.com/upstream/proj.git"}]`,
		LanguagesJSON: "{}", OverridesJSON: "{}",
	}
	mustUpsert(t, store, upstream)
	mustUpsert(t, store, fork)

	if err := DetectEdges(ctx, store); err != nil {
		t.Fatalf("DetectEdges: %v", err)
	}

	edges, err := store.EdgesFrom(ctx, fork.ID)
	if err != nil {
		t.Fatalf("edges from fork: %v", err)
	}
	var found bool
	for _, e := range edges {
		if e.EdgeType == string(index.EdgeForkOf) && e.TargetNodeID == upstream.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a FORK_OF edge from the fork to its upstream, got %+v", edges)
	}
}

func TestDetectSubmodulesResolvesGitmodulesPath(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	parentDir := t.TempDir()
	childDir := filepath.Join(parentDir, "vendor", "lib")
	if err := os.MkdirAll(childDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	gitmodules := "[submodule \"lib\"]\n\tpath = vendor/lib\n\turl = https://github.com/me/lib.git\n"
	if err := os.WriteFile(filepath.Join(parentDir, ".gitmodules"), []byte(gitmodules), 0o644); err != nil {
		t.Fatalf("write .gitmodules: %v", err)
	}

	parent := &index.Node{Path: parentDir, Name: "parent", RemotesJSON: "[]", LanguagesJSON: "{}", OverridesJSON: "{}"}
	child := &index.Node{Path: childDir, Name: "lib", RemotesJSON: "[]", LanguagesJSON: "{}", OverridesJSON: "{}"}
	mustUpsert(t, store, parent)
	mustUpsert(t, store, child)

	if err := DetectEdges(ctx, store); err != nil {
		t.Fatalf("DetectEdges: %v", err)
	}

	edges, err := store.EdgesFrom(ctx, parent.ID)
	if err != nil {
		t.Fatalf("edges from parent: %v", err)
	}
	var found bool
	for _, e := range edges {
		if e.EdgeType == string(index.EdgeSubmodule) && e.TargetNodeID == child.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a SUBMODULE edge from parent to the resolved submodule path, got %+v", edges)
	}
}

func TestDetectNestedAndSiblings(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	outer := &index.Node{Path: "/code/outer", Name: "outer", RemotesJSON: "[]", LanguagesJSON: "{}", OverridesJSON: "{}"}
	inner := &index.Node{Path: "/code/outer/inner", Name: "inner", RemotesJSON: "[]", LanguagesJSON: "{}", OverridesJSON: "{}"}
	sibling := &index.Node{Path: "/code/sibling", Name: "sibling", RemotesJSON: "[]", LanguagesJSON: "{}", OverridesJSON: "{}"}
	mustUpsert(t, store, outer)
	mustUpsert(t, store, inner)
	mustUpsert(t, store, sibling)

	if err := DetectEdges(ctx, store); err != nil {
		t.Fatalf("DetectEdges: %v", err)
	}

	if types := edgeTypesBetween(t, store, outer.ID, inner.ID); !contains(types, string(index.EdgeNested)) {
		t.Errorf("expected a NESTED edge between outer and inner, got %v", types)
	}
	if types := edgeTypesBetween(t, store, outer.ID, sibling.ID); !contains(types, string(index.EdgeSibling)) {
		t.Errorf("expected a SIBLING edge between outer and sibling, got %v", types)
	}
}

func TestDetectDependsOnFindsManifestReference(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	depDir := t.TempDir()
	dependentDir := t.TempDir()
	goMod := "module example.com/app\n\nrequire local.dep v0.0.0\n\nreplace local.dep => " + depDir + "\n"
	if err := os.WriteFile(filepath.Join(dependentDir, "go.mod"), []byte(goMod), 0o644); err != nil {
		t.Fatalf("write go.mod: %v", err)
	}

	dep := &index.Node{Path: depDir, Name: "local.dep", RemotesJSON: "[]", LanguagesJSON: "{}", OverridesJSON: "{}"}
	dependent := &index.Node{Path: dependentDir, Name: "app", RemotesJSON: "[]", LanguagesJSON: "{}", OverridesJSON: "{}"}
	mustUpsert(t, store, dep)
	mustUpsert(t, store, dependent)

	if err := DetectEdges(ctx, store); err != nil {
		t.Fatalf("DetectEdges: %v", err)
	}

	edges, err := store.EdgesFrom(ctx, dependent.ID)
	if err != nil {
		t.Fatalf("edges from dependent: %v", err)
	}
	var found bool
	for _, e := range edges {
		if e.EdgeType == string(index.EdgeDependsOn) && e.TargetNodeID == dep.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a DEPENDS_ON edge to the replace-directive target, got %+v", edges)
	}
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
