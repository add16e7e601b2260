package surface

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kissa/kissa/internal/format"
	"github.com/kissa/kissa/internal/index"
)

// exportRecord is one line of the newline-delimited export stream: nodes
// first, then edges, each self-identifying via Kind so a single stream
// round-trips through Import without a second file.
//
// index.Node tags its remotes/languages/overrides JSON-blob columns
// json:"-" (they're internal storage detail, kept out of any API
// response), so a bare json.Marshal of the node would silently drop
// them. exportRecord carries them alongside under their own keys and
// Import writes them back before upserting.
type exportRecord struct {
	Kind string      `json:"kind"`
	Node *index.Node `json:"node,omitempty"`
	Edge *index.Edge `json:"edge,omitempty"`

	RemotesJSON   string `json:"remotes_json,omitempty"`
	LanguagesJSON string `json:"languages_json,omitempty"`
	OverridesJSON string `json:"overrides_json,omitempty"`
}

func nodeExportRecord(n *index.Node) exportRecord {
	return exportRecord{
		Kind:          "node",
		Node:          n,
		RemotesJSON:   n.RemotesJSON,
		LanguagesJSON: n.LanguagesJSON,
		OverridesJSON: n.OverridesJSON,
	}
}

// Export writes every node then every edge as newline-delimited JSON,
// grounded on the teacher's AI-mode JSON projection (ToAIMode's flat,
// self-describing output shape) but plain-NDJSON rather than one big
// object, so an import can stream it back in without buffering the whole
// graph in memory.
func (c *Core) Export(ctx context.Context, w io.Writer) (*format.Response, error) {
	nodes, err := c.Store.AllNodes(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := c.Store.AllEdges(ctx)
	if err != nil {
		return nil, err
	}

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, n := range nodes {
		if err := enc.Encode(nodeExportRecord(n)); err != nil {
			return nil, err
		}
	}
	for _, e := range edges {
		if err := enc.Encode(exportRecord{Kind: "edge", Edge: e}); err != nil {
			return nil, err
		}
	}
	if err := bw.Flush(); err != nil {
		return nil, err
	}
	return format.New(format.Executed, fmt.Sprintf("exported %d node(s), %d edge(s)", len(nodes), len(edges))), nil
}

// Import reads a stream previously produced by Export and upserts every
// record. Nodes are applied before edges regardless of stream order, so
// that edge foreign keys always resolve against an already-upserted node.
func (c *Core) Import(ctx context.Context, r io.Reader) (*format.Response, error) {
	dec := json.NewDecoder(r)
	var nodes []*index.Node
	var edges []*index.Edge
	for {
		var rec exportRecord
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		switch rec.Kind {
		case "node":
			if rec.Node != nil {
				rec.Node.RemotesJSON = defaultJSON(rec.RemotesJSON, "[]")
				rec.Node.LanguagesJSON = defaultJSON(rec.LanguagesJSON, "{}")
				rec.Node.OverridesJSON = defaultJSON(rec.OverridesJSON, "{}")
				nodes = append(nodes, rec.Node)
			}
		case "edge":
			if rec.Edge != nil {
				edges = append(edges, rec.Edge)
			}
		default:
			return nil, fmt.Errorf("unrecognized import record kind %q", rec.Kind)
		}
	}

	for _, n := range nodes {
		if err := c.Store.UpsertNode(ctx, n); err != nil {
			return nil, err
		}
	}
	for _, e := range edges {
		if err := c.Store.UpsertEdge(ctx, e); err != nil {
			return nil, err
		}
	}
	return format.New(format.Executed, fmt.Sprintf("imported %d node(s), %d edge(s)", len(nodes), len(edges))), nil
}

func defaultJSON(raw, fallback string) string {
	if raw == "" {
		return fallback
	}
	return raw
}
