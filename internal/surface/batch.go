package surface

import (
	"context"
	"fmt"

	"github.com/kissa/kissa/internal/format"
	"github.com/kissa/kissa/internal/graphmodel"
)

// BatchCommand is one entry of a read-only batch (spec §4.8). Only the
// fields the named command needs are read; the rest are ignored.
type BatchCommand struct {
	Name   string
	Path   string
	Query  string
	Tier   string
	Filter graphmodel.Filter
}

// readOnlyCommands is the exact vocabulary spec §4.8 allows in a batch.
var readOnlyCommands = map[string]bool{
	"listing":    true,
	"status":     true,
	"freshness":  true,
	"search":     true,
	"related":    true,
	"deps":       true,
	"doctor":     true,
	"get_config": true,
}

// Batch runs an ordered list of read-only commands and renders one batch
// response wrapping each sub-result. Any command outside the read-only
// vocabulary rejects the entire batch before a single command runs.
func (c *Core) Batch(ctx context.Context, cmds []BatchCommand) (*format.Response, error) {
	for _, cmd := range cmds {
		if !readOnlyCommands[cmd.Name] {
			return format.New(format.Error, fmt.Sprintf("batch rejected: %q is not a read-only command", cmd.Name)), nil
		}
	}

	batch := format.New(format.Batch, fmt.Sprintf("%d command(s)", len(cmds)))
	for _, cmd := range cmds {
		sub, err := c.runBatchCommand(ctx, cmd)
		if err != nil {
			return nil, err
		}
		batch.Records = append(batch.Records, map[string]interface{}{
			"command": cmd.Name,
			"tag":     string(sub.Tag),
			"summary": sub.Summary,
			"details": sub.Details,
		})
		batch.WithDetails(fmt.Sprintf("[%s] %s", sub.Tag, sub.Summary))
		batch.Details = append(batch.Details, sub.Details...)
	}
	return batch, nil
}

func (c *Core) runBatchCommand(ctx context.Context, cmd BatchCommand) (*format.Response, error) {
	switch cmd.Name {
	case "listing":
		return c.List(ctx, cmd.Filter)
	case "status":
		return c.Status(ctx, cmd.Path)
	case "freshness":
		return c.Freshness(ctx, cmd.Tier)
	case "search":
		return c.Search(ctx, cmd.Query)
	case "related":
		return c.Related(ctx, cmd.Path)
	case "deps":
		return c.Deps(ctx, cmd.Path)
	case "doctor":
		return c.Doctor(ctx)
	case "get_config":
		return c.GetConfig(), nil
	default:
		return nil, fmt.Errorf("unreachable: unrecognized read-only command %q", cmd.Name)
	}
}
