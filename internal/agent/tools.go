package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kissa/kissa/internal/format"
	"github.com/kissa/kissa/internal/graphmodel"
	"github.com/kissa/kissa/internal/permission"
	"github.com/kissa/kissa/internal/surface"
)

// funcTool adapts a plain function plus a static schema into a Tool,
// sparing every tool its own named struct type.
type funcTool struct {
	schema map[string]interface{}
	run    func(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

func (f funcTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	return asText(f.run(ctx, args))
}

// asText renders a *format.Response through the text projection with color
// off, so the agent surface answers with the same tagged text as the CLI.
// Results of any other type pass through unchanged.
func asText(res interface{}, err error) (interface{}, error) {
	r, ok := res.(*format.Response)
	if err != nil || !ok {
		return res, err
	}
	var sb strings.Builder
	if werr := format.NewTextWriter(&sb, false, false).Write(r); werr != nil {
		return nil, werr
	}
	return sb.String(), nil
}

func (f funcTool) Schema() map[string]interface{} { return f.schema }

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func boolArg(args map[string]interface{}, key string) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return false
}

func stringSliceArg(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func filterArg(args map[string]interface{}) graphmodel.Filter {
	f := graphmodel.Filter{
		Freshness:  stringArg(args, "freshness"),
		Org:        stringArg(args, "org"),
		PathPrefix: stringArg(args, "path_prefix"),
		Category:   stringArg(args, "category"),
		Ownership:  stringArg(args, "ownership"),
		Intention:  stringArg(args, "intention"),
		ManagedBy:  stringArg(args, "managed_by"),
		Project:    stringArg(args, "project"),
		Tags:       stringSliceArg(args, "tags"),
	}
	return f
}

// RegisterTools wires the 14 agent-surface tools of spec.md §6 onto h,
// each a thin adapter calling into core; its *format.Response is rendered
// as text (see asText) and that string becomes the JSON-RPC result.
func RegisterTools(h *Handler, core *surface.Core) {
	h.RegisterTool("scan", funcTool{
		schema: map[string]interface{}{"tier": "string, one of t0/t1/t2 (default t2)"},
		run: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return core.Scan(ctx, stringArg(args, "tier"))
		},
	})
	h.RegisterTool("list_repos", funcTool{
		schema: map[string]interface{}{"freshness, org, path_prefix, category, ownership, intention, managed_by, project, tags": "optional top-level filter predicates (tags is an array of string)"},
		run: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return core.List(ctx, filterArg(args))
		},
	})
	h.RegisterTool("related", funcTool{
		schema: map[string]interface{}{"path": "string, required"},
		run: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return core.Related(ctx, stringArg(args, "path"))
		},
	})
	h.RegisterTool("deps", funcTool{
		schema: map[string]interface{}{"path": "string, required"},
		run: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return core.Deps(ctx, stringArg(args, "path"))
		},
	})
	h.RegisterTool("repo_status", funcTool{
		schema: map[string]interface{}{"path": "string, required"},
		run: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return core.Status(ctx, stringArg(args, "path"))
		},
	})
	h.RegisterTool("freshness", funcTool{
		schema: map[string]interface{}{"tier": "string, one of active/recent/stale/dormant/ancient (optional)"},
		run: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return core.Freshness(ctx, stringArg(args, "tier"))
		},
	})
	h.RegisterTool("search", funcTool{
		schema: map[string]interface{}{"query": "string, required"},
		run: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return core.Search(ctx, stringArg(args, "query"))
		},
	})
	h.RegisterTool("doctor", funcTool{
		schema: map[string]interface{}{},
		run: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return core.Doctor(ctx)
		},
	})
	h.RegisterTool("organize", funcTool{
		schema: map[string]interface{}{
			"freshness, org, path_prefix, category, ownership, intention, managed_by, project, tags": "optional top-level filter predicates naming the scope to organize",
			"persist": "bool, persist the generated plan for later apply_plan",
		},
		run: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return core.Organize(ctx, filterArg(args), nil, boolArg(args, "persist"))
		},
	})
	h.RegisterTool("apply_plan", funcTool{
		schema: map[string]interface{}{
			"plan_id":     "string, required",
			"allow_dirty": "bool, apply despite a dirty working tree",
		},
		run: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return core.ApplyPlan(ctx, stringArg(args, "plan_id"), boolArg(args, "allow_dirty"), 5*time.Second)
		},
	})
	h.RegisterTool("exec", funcTool{
		schema: map[string]interface{}{
			"path": "string, required",
			"args": "array of string, the git argument vector",
		},
		run: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return core.Exec(ctx, stringArg(args, "path"), stringSliceArg(args, "args"), permission.SurfaceAgent)
		},
	})
	h.RegisterTool("tag", funcTool{
		schema: map[string]interface{}{"path": "string, required", "label": "string, required"},
		run: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return core.Tag(ctx, stringArg(args, "path"), stringArg(args, "label"))
		},
	})
	h.RegisterTool("get_config", funcTool{
		schema: map[string]interface{}{},
		run: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return core.GetConfig(), nil
		},
	})
	h.RegisterTool("run", funcTool{
		schema: map[string]interface{}{
			"commands": "array of {name, path, query, tier, plus the list_repos filter predicates}, read-only command names only",
		},
		run: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			raw, ok := args["commands"].([]interface{})
			if !ok {
				return nil, fmt.Errorf("'commands' must be an array")
			}
			cmds := make([]surface.BatchCommand, 0, len(raw))
			for _, item := range raw {
				m, ok := item.(map[string]interface{})
				if !ok {
					return nil, fmt.Errorf("each batch command must be an object")
				}
				cmds = append(cmds, surface.BatchCommand{
					Name:   stringArg(m, "name"),
					Path:   stringArg(m, "path"),
					Query:  stringArg(m, "query"),
					Tier:   stringArg(m, "tier"),
					Filter: filterArg(m),
				})
			}
			return core.Batch(ctx, cmds)
		},
	})
}

// RegisterResources wires the 3 agent-surface resources of spec.md §6.
func RegisterResources(h *Handler, core *surface.Core) {
	h.RegisterResource("summary", resourceFunc(func(ctx context.Context) (interface{}, error) {
		return core.List(ctx, graphmodel.Filter{})
	}))
	h.RegisterResource("config", resourceFunc(func(ctx context.Context) (interface{}, error) {
		return core.GetConfig(), nil
	}))
	h.RegisterResource("problems", resourceFunc(func(ctx context.Context) (interface{}, error) {
		return core.Doctor(ctx)
	}))
}

type resourceFunc func(ctx context.Context) (interface{}, error)

func (f resourceFunc) Read(ctx context.Context) (interface{}, error) { return asText(f(ctx)) }
