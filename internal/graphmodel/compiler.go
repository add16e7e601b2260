package graphmodel

import (
	"context"
	"time"

	"github.com/kissa/kissa/internal/index"
)

// Compiler runs Filter queries and the handful of relationship
// traversals against one Index Store.
type Compiler struct {
	store *index.Store
}

func NewCompiler(store *index.Store) *Compiler {
	return &Compiler{store: store}
}

// Query returns every node matching f, loading the full node set once and
// filtering in memory — the Index Store is a single embedded file sized
// for a personal machine's repo count (spec.md Non-goals exclude
// multi-tenant scale), so this is the appropriate granularity rather than
// compiling each predicate to a separate SQL clause.
func (c *Compiler) Query(ctx context.Context, f Filter) ([]*index.Node, error) {
	nodes, err := c.store.AllNodes(ctx)
	if err != nil {
		return nil, err
	}

	duplicateIDs, err := c.duplicateNodeIDs(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var matched []*index.Node
	for _, n := range nodes {
		tags, err := c.store.TagsFor(ctx, n.ID)
		if err != nil {
			return nil, err
		}
		mctx := matchContext{
			remotes:     remotesFromJSON(n.RemotesJSON),
			tags:        tags,
			isDuplicate: duplicateIDs[n.ID],
			now:         now,
		}
		if f.Matches(n, mctx) {
			matched = append(matched, n)
		}
	}
	return matched, nil
}

func (c *Compiler) duplicateNodeIDs(ctx context.Context) (map[int64]bool, error) {
	edges, err := c.store.AllEdges(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[int64]bool)
	for _, e := range edges {
		if e.EdgeType == string(index.EdgeDuplicate) {
			ids[e.SourceNodeID] = true
			ids[e.TargetNodeID] = true
		}
	}
	return ids, nil
}
