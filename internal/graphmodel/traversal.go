package graphmodel

import (
	"context"

	"github.com/kissa/kissa/internal/index"
)

// Deps returns the source node of every DEPENDS_ON edge whose target is repo
// (spec §4.5: "deps(repo) — incoming DEPENDS_ON").
func (c *Compiler) Deps(ctx context.Context, repo *index.Node) ([]*index.Node, error) {
	edges, err := c.store.EdgesTo(ctx, repo.ID)
	if err != nil {
		return nil, err
	}
	var deps []*index.Node
	for _, e := range edges {
		if e.EdgeType != string(index.EdgeDependsOn) {
			continue
		}
		n, err := c.store.GetNode(ctx, e.SourceNodeID)
		if err != nil {
			continue
		}
		deps = append(deps, n)
	}
	return deps, nil
}

// RelatedNode pairs a node with the edge that connects it to the query
// subject, since `related` exposes both the neighbor and the relationship
// kind that produced it.
type RelatedNode struct {
	Node     *index.Node
	EdgeType string
}

// Related returns every node one hop from repo, over any edge type, in
// either direction (spec §4.5: "related(repo) — any edge type, one hop").
func (c *Compiler) Related(ctx context.Context, repo *index.Node) ([]RelatedNode, error) {
	edges, err := c.store.EdgesTouching(ctx, repo.ID)
	if err != nil {
		return nil, err
	}
	var related []RelatedNode
	for _, e := range edges {
		otherID := e.TargetNodeID
		if otherID == repo.ID {
			otherID = e.SourceNodeID
		}
		n, err := c.store.GetNode(ctx, otherID)
		if err != nil {
			continue
		}
		related = append(related, RelatedNode{Node: n, EdgeType: e.EdgeType})
	}
	return related, nil
}

// Duplicates returns every node participating in at least one DUPLICATE
// edge, grouped by the set of nodes that are mutually duplicates (spec
// §4.5: "list --duplicates").
func (c *Compiler) Duplicates(ctx context.Context) ([][]*index.Node, error) {
	edges, err := c.store.AllEdges(ctx)
	if err != nil {
		return nil, err
	}

	parent := make(map[int64]int64)
	find := func(id int64) int64 {
		for parent[id] != 0 && parent[id] != id {
			id = parent[id]
		}
		return id
	}
	union := func(a, b int64) {
		if _, ok := parent[a]; !ok {
			parent[a] = a
		}
		if _, ok := parent[b]; !ok {
			parent[b] = b
		}
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for _, e := range edges {
		if e.EdgeType == string(index.EdgeDuplicate) {
			union(e.SourceNodeID, e.TargetNodeID)
		}
	}

	groups := make(map[int64][]*index.Node)
	for id := range parent {
		n, err := c.store.GetNode(ctx, id)
		if err != nil {
			continue
		}
		root := find(id)
		groups[root] = append(groups[root], n)
	}

	var result [][]*index.Node
	for _, g := range groups {
		if len(g) > 1 {
			result = append(result, g)
		}
	}
	return result, nil
}
