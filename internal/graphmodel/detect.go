package graphmodel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kissa/kissa/internal/index"
)

// dependencyManifestFiles mirrors the manifest set the planner's advisory
// dependency-impact scan already inspects (internal/planner/apply.go), so
// a DEPENDS_ON edge and an "impacted by this move" warning are derived
// from the same evidence.
var dependencyManifestFiles = []string{"go.mod", "package.json", "requirements.txt", "Gemfile", "Cargo.toml"}

// DetectEdges derives every edge type a scan can establish purely from
// data already in the store — DUPLICATE, FORK_OF, SUBMODULE, NESTED,
// SIBLING and DEPENDS_ON (spec.md §3's Edge types) — and persists them.
// User-declared relationships from a .kissa file (internal/enrichment)
// are untouched; this pass only adds edges, it never removes one, so a
// relationship a user hand-declared is never clobbered by a later scan.
func DetectEdges(ctx context.Context, store *index.Store) error {
	nodes, err := store.AllNodes(ctx)
	if err != nil {
		return err
	}

	if err := detectDuplicates(ctx, store, nodes); err != nil {
		return err
	}
	if err := detectForks(ctx, store, nodes); err != nil {
		return err
	}
	if err := detectSubmodules(ctx, store, nodes); err != nil {
		return err
	}
	if err := detectNested(ctx, store, nodes); err != nil {
		return err
	}
	if err := detectSiblings(ctx, store, nodes); err != nil {
		return err
	}
	return detectDependsOn(ctx, store, nodes)
}

func normalizeRemoteURL(url string) string {
	u := strings.TrimSuffix(strings.TrimSpace(url), "/")
	u = strings.TrimSuffix(u, ".git")
	return strings.ToLower(u)
}

func orderedPair(a, b *index.Node) (src, dst *index.Node) {
	if a.ID <= b.ID {
		return a, b
	}
	return b, a
}

// detectDuplicates upserts a DUPLICATE edge between every pair of
// non-lost nodes that share a non-empty remote URL (spec §3 Invariants:
// "a DUPLICATE edge exists between two nodes iff they share a non-empty
// remote URL set and have distinct paths").
func detectDuplicates(ctx context.Context, store *index.Store, nodes []*index.Node) error {
	byURL := make(map[string][]*index.Node)
	for _, n := range nodes {
		if n.Lifecycle == string(index.LifecycleLost) {
			continue
		}
		for _, r := range remotesFromJSON(n.RemotesJSON) {
			u := normalizeRemoteURL(r.URL)
			if u == "" {
				continue
			}
			byURL[u] = append(byURL[u], n)
		}
	}
	for _, group := range byURL {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if group[i].ID == group[j].ID {
					continue
				}
				src, dst := orderedPair(group[i], group[j])
				if err := store.UpsertEdge(ctx, &index.Edge{
					SourceNodeID: src.ID, TargetNodeID: dst.ID,
					EdgeType: string(index.EdgeDuplicate), MetadataJSON: "{}",
				}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// detectForks connects a fork-category node to the node whose "origin"
// remote matches the fork's "upstream" remote, grounding FORK_OF in the
// same upstream-remote signal the Classifier's inferCategory already uses
// to decide category=fork (internal/classify/infer.go).
func detectForks(ctx context.Context, store *index.Store, nodes []*index.Node) error {
	originByURL := make(map[string]*index.Node)
	for _, n := range nodes {
		if n.Lifecycle == string(index.LifecycleLost) {
			continue
		}
		for _, r := range remotesFromJSON(n.RemotesJSON) {
			if r.Name == "origin" {
				originByURL[normalizeRemoteURL(r.URL)] = n
			}
		}
	}

	for _, n := range nodes {
		if n.Lifecycle == string(index.LifecycleLost) || n.Category != string(index.CategoryFork) {
			continue
		}
		for _, r := range remotesFromJSON(n.RemotesJSON) {
			if r.Name != "upstream" {
				continue
			}
			target, ok := originByURL[normalizeRemoteURL(r.URL)]
			if !ok || target.ID == n.ID {
				continue
			}
			if err := store.UpsertEdge(ctx, &index.Edge{
				SourceNodeID: n.ID, TargetNodeID: target.ID,
				EdgeType: string(index.EdgeForkOf), MetadataJSON: "{}",
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// detectSubmodules parses each node's .gitmodules file (spec §3
// Invariants: "for every SUBMODULE edge, the parent's submodule-manifest
// lists the child's path") and links it to whichever indexed node
// resolves to the declared submodule path.
func detectSubmodules(ctx context.Context, store *index.Store, nodes []*index.Node) error {
	byPath := make(map[string]*index.Node, len(nodes))
	for _, n := range nodes {
		byPath[n.Path] = n
	}

	for _, n := range nodes {
		if n.Lifecycle == string(index.LifecycleLost) {
			continue
		}
		paths, err := parseGitmodulesPaths(n.Path)
		if err != nil {
			continue
		}
		for _, rel := range paths {
			abs := filepath.Clean(filepath.Join(n.Path, rel))
			target, ok := byPath[abs]
			if !ok || target.ID == n.ID {
				continue
			}
			if err := store.UpsertEdge(ctx, &index.Edge{
				SourceNodeID: n.ID, TargetNodeID: target.ID,
				EdgeType: string(index.EdgeSubmodule), MetadataJSON: fmt.Sprintf("{%q:%q}", "submodule_path", rel),
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseGitmodulesPaths extracts every "path = ..." value from repoPath's
// .gitmodules file. The full git config grammar supports more than this
// (quoting, continuation lines), but every submodule entry generated by
// `git submodule add` emits a plain unquoted path line, which is the only
// shape this needs to resolve.
func parseGitmodulesPaths(repoPath string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(repoPath, ".gitmodules"))
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "path") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		paths = append(paths, strings.TrimSpace(parts[1]))
	}
	return paths, nil
}

// detectNested links an outer node to every other indexed node whose path
// lies beneath it, the relationship the full-walk itself deliberately
// does not establish since it never recurses into a discovered repo root.
func detectNested(ctx context.Context, store *index.Store, nodes []*index.Node) error {
	for _, outer := range nodes {
		if outer.Lifecycle == string(index.LifecycleLost) {
			continue
		}
		for _, inner := range nodes {
			if inner.ID == outer.ID || inner.Lifecycle == string(index.LifecycleLost) {
				continue
			}
			rel, err := filepath.Rel(outer.Path, inner.Path)
			if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				continue
			}
			if err := store.UpsertEdge(ctx, &index.Edge{
				SourceNodeID: outer.ID, TargetNodeID: inner.ID,
				EdgeType: string(index.EdgeNested), MetadataJSON: "{}",
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// detectSiblings links every pair of non-lost nodes that share an
// immediate parent directory.
func detectSiblings(ctx context.Context, store *index.Store, nodes []*index.Node) error {
	byParent := make(map[string][]*index.Node)
	for _, n := range nodes {
		if n.Lifecycle == string(index.LifecycleLost) {
			continue
		}
		parent := filepath.Dir(n.Path)
		byParent[parent] = append(byParent[parent], n)
	}
	for _, group := range byParent {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				src, dst := orderedPair(group[i], group[j])
				if err := store.UpsertEdge(ctx, &index.Edge{
					SourceNodeID: src.ID, TargetNodeID: dst.ID,
					EdgeType: string(index.EdgeSibling), MetadataJSON: "{}",
				}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// detectDependsOn scans each node's package manifests for a textual
// reference to another indexed node's path (spec §3: "DEPENDS_ON,
// local-path dependency from a package manifest"), the same evidence the
// planner's scanDependencyImpact already gathers advisory-only.
func detectDependsOn(ctx context.Context, store *index.Store, nodes []*index.Node) error {
	for _, n := range nodes {
		if n.Lifecycle == string(index.LifecycleLost) {
			continue
		}
		for _, manifest := range dependencyManifestFiles {
			data, err := os.ReadFile(filepath.Join(n.Path, manifest))
			if err != nil {
				continue
			}
			content := string(data)
			for _, other := range nodes {
				if other.ID == n.ID || other.Lifecycle == string(index.LifecycleLost) {
					continue
				}
				if !strings.Contains(content, other.Path) {
					continue
				}
				if err := store.UpsertEdge(ctx, &index.Edge{
					SourceNodeID: n.ID, TargetNodeID: other.ID,
					EdgeType: string(index.EdgeDependsOn), MetadataJSON: fmt.Sprintf("{%q:%q}", "manifest", manifest),
				}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
