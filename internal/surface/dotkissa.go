package surface

import (
	"context"
	"fmt"

	"github.com/kissa/kissa/internal/enrichment"
	"github.com/kissa/kissa/internal/format"
)

// InitDotKissa scaffolds a .kissa file at the repo's root with its
// currently-inferred identity pre-filled, so a user only has to edit the
// fields they want to pin rather than write the file from scratch
// (spec.md §6, the `init-dotkissa` verb).
func (c *Core) InitDotKissa(ctx context.Context, path string) (*format.Response, error) {
	if enrichment.Exists(path) {
		return format.New(format.Warning, fmt.Sprintf("%s already has a .kissa file", path)), nil
	}

	n, err := c.Store.GetNodeByPath(ctx, path)
	if err != nil {
		return nil, err
	}

	f := &enrichment.File{
		Identity: enrichment.Identity{
			Category:  n.Category,
			Ownership: n.Ownership,
			Intention: n.Intention,
			ManagedBy: n.ManagedBy,
		},
	}
	if err := enrichment.Write(path, f); err != nil {
		return nil, err
	}
	return format.New(format.Executed, fmt.Sprintf("wrote %s/%s", path, enrichment.FileName)), nil
}
