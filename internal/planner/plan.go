package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kissa/kissa/internal/errs"
	"github.com/kissa/kissa/internal/graphmodel"
	"github.com/kissa/kissa/internal/index"
)

// Planner generates and applies reorganization plans against one Index
// Store.
type Planner struct {
	store       *index.Store
	maxPlanSize int
}

func New(store *index.Store, maxPlanSize int) *Planner {
	if maxPlanSize <= 0 {
		maxPlanSize = 50
	}
	return &Planner{store: store, maxPlanSize: maxPlanSize}
}

// Generate computes a move destination for every node in scope (via the
// pattern), plus archive and tag actions, collecting destination
// conflicts rather than resolving them (spec §4.6).
// archival is nil when no archival predicate was requested; a non-nil,
// zero-value Filter would otherwise match every node, so "no archival
// pass" is expressed as the absence of a filter rather than an empty one.
func (p *Planner) Generate(ctx context.Context, nodes []*index.Node, pattern Pattern, archival *graphmodel.Filter, pendingTags map[int64][]string) (*index.Plan, []*index.PlanAction, []string, error) {
	if len(nodes) > p.maxPlanSize {
		return nil, nil, nil, errs.New(errs.PlanConflict, fmt.Sprintf("scope of %d repos exceeds max_plan_size %d; narrow the filter", len(nodes), p.maxPlanSize))
	}

	now := time.Now().UTC()
	destinations := make(map[string][]string) // dest path -> source paths
	var actions []*index.PlanAction

	for _, n := range nodes {
		var remotes []index.Remote
		_ = json.Unmarshal([]byte(n.RemotesJSON), &remotes)
		tags, _ := p.store.TagsFor(ctx, n.ID)

		dest, err := pattern.Resolve(n, remotes, tags, languagesOf(n), now)
		if err != nil {
			return nil, nil, nil, err
		}
		dest = filepath.Clean(dest)

		if dest != n.Path {
			destinations[dest] = append(destinations[dest], n.Path)
			actions = append(actions, &index.PlanAction{
				Kind:     index.ActionMove,
				NodeID:   n.ID,
				FromPath: n.Path,
				ToPath:   dest,
			})
		}

		if archival != nil && archival.Matches(n, graphmodel.NewMatchContext(remotes, tags, false, now)) {
			actions = append(actions, &index.PlanAction{
				Kind:     index.ActionArchive,
				NodeID:   n.ID,
				FromPath: n.Path,
			})
		}

		if newTags := pendingTags[n.ID]; len(newTags) > 0 {
			tagsJSON, _ := json.Marshal(newTags)
			actions = append(actions, &index.PlanAction{
				Kind:     index.ActionTag,
				NodeID:   n.ID,
				FromPath: n.Path,
				TagsJSON: string(tagsJSON),
			})
		}
	}

	var conflicts []string
	for dest, sources := range destinations {
		if len(sources) > 1 {
			conflicts = append(conflicts, dest)
		}
	}
	if len(conflicts) > 0 {
		return nil, nil, conflicts, errs.PlanConflictErr(
			fmt.Sprintf("%d destination(s) claimed by more than one repo", len(conflicts)), conflicts)
	}

	if len(actions) > p.maxPlanSize {
		return nil, nil, nil, errs.New(errs.PlanConflict, fmt.Sprintf("plan of %d actions exceeds max_plan_size %d; narrow the filter", len(actions), p.maxPlanSize))
	}

	plan := &index.Plan{
		ID:        uuid.NewString(),
		CreatedAt: now,
		Status:    index.PlanPending,
	}
	return plan, actions, nil, nil
}

func languagesOf(n *index.Node) map[string]int {
	var languages map[string]int
	_ = json.Unmarshal([]byte(n.LanguagesJSON), &languages)
	return languages
}

// Persist records a generated plan so it can be applied later by ID.
func (p *Planner) Persist(ctx context.Context, plan *index.Plan, actions []*index.PlanAction) error {
	return p.store.CreatePlan(ctx, plan, actions)
}
