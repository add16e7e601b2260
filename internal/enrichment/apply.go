package enrichment

import (
	"encoding/json"

	"github.com/kissa/kissa/internal/index"
)

// ApplyIdentity pins whichever classification axes f.Identity sets onto n,
// marking them overridden so the Classifier (spec §4.4) leaves them alone
// on every subsequent reclassification.
func ApplyIdentity(n *index.Node, f *File) {
	if f == nil {
		return
	}

	var overrides index.Overrides
	_ = json.Unmarshal([]byte(n.OverridesJSON), &overrides)

	if f.Identity.Category != "" {
		n.Category = f.Identity.Category
		overrides.Category = true
	}
	if f.Identity.Ownership != "" {
		n.Ownership = f.Identity.Ownership
		overrides.Ownership = true
	}
	if f.Identity.Intention != "" {
		n.Intention = f.Identity.Intention
		overrides.Intention = true
	}
	if f.Identity.ManagedBy != "" {
		n.ManagedBy = f.Identity.ManagedBy
		overrides.ManagedBy = true
	}

	data, _ := json.Marshal(overrides)
	n.OverridesJSON = string(data)
	n.HasEnrichment = true
}

// PendingEdge is one relationship declaration resolved against the
// current set of indexed nodes, ready to be upserted as an index.Edge.
type PendingEdge struct {
	SourceNodeID int64
	TargetPath   string
	TargetNodeID int64
	EdgeType     string
}

// ResolveRelationships turns f.Relationships into edges sourced from n,
// looking up each declared target path via lookup. A relationship whose
// target isn't currently indexed is skipped (returned separately as
// unresolved paths) rather than erroring, since the other repo may simply
// not have been scanned yet.
func ResolveRelationships(n *index.Node, f *File, lookup func(path string) (*index.Node, bool)) (edges []PendingEdge, unresolved []string) {
	if f == nil {
		return nil, nil
	}
	for _, rel := range f.Relationships {
		target, ok := lookup(rel.Path)
		if !ok {
			unresolved = append(unresolved, rel.Path)
			continue
		}
		edges = append(edges, PendingEdge{
			SourceNodeID: n.ID,
			TargetPath:   rel.Path,
			TargetNodeID: target.ID,
			EdgeType:     normalizeEdgeType(rel.Type),
		})
	}
	return edges, unresolved
}

func normalizeEdgeType(t string) string {
	switch t {
	case string(index.EdgeSubmodule), string(index.EdgeNested), string(index.EdgeSibling),
		string(index.EdgeDependsOn), string(index.EdgeForkOf), string(index.EdgeDuplicate):
		return t
	default:
		return t
	}
}
