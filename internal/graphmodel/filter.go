// Package graphmodel compiles the named-predicate filter vocabulary and the
// small set of relationship traversals of spec.md §4.5 against the Index
// Store. There is no generic multi-hop query surface — dedicated functions
// cover deps/related/duplicates, matching the spec's explicit choice not to
// expose multi-hop traversal generically.
package graphmodel

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/kissa/kissa/internal/index"
)

// Filter is an AND-combination of the recognized predicates of spec §4.5.
// A zero-value field means "predicate not applied"; boolean predicates use
// a pointer so "false" can be asserted explicitly (e.g. `dirty=false`).
type Filter struct {
	Dirty      *bool
	Staged     *bool
	Untracked  *bool
	Unpushed   *bool // ahead > 0
	Orphan     *bool // no remote
	HasRemote  *bool
	Duplicates *bool
	Lost       *bool

	Freshness  string
	Org        string
	PathPrefix string
	Category   string
	Ownership  string
	Intention  string
	ManagedBy  string
	Project    string
	Tags       []string
}

// matchContext carries the per-node facts a Filter needs beyond the raw
// Node row: its remotes (for `org`/`orphan`/`has_remote`), its tags, and
// whether it currently participates in any DUPLICATE edge.
type matchContext struct {
	remotes     []index.Remote
	tags        []string
	isDuplicate bool
	now         time.Time
}

// NewMatchContext builds the per-node facts a Filter needs, for callers
// outside this package (e.g. the planner's pattern resolver, which reuses
// the filter vocabulary for match rules per spec §4.6).
func NewMatchContext(remotes []index.Remote, tags []string, isDuplicate bool, now time.Time) matchContext {
	return matchContext{remotes: remotes, tags: tags, isDuplicate: isDuplicate, now: now}
}

// Matches reports whether n satisfies every predicate set on f.
func (f Filter) Matches(n *index.Node, ctx matchContext) bool {
	if n.Lifecycle == string(index.LifecycleLost) {
		if f.Lost != nil && !*f.Lost {
			return false
		}
	} else if f.Lost != nil && *f.Lost {
		return false
	}

	if f.Dirty != nil && n.Dirty != *f.Dirty {
		return false
	}
	if f.Staged != nil && n.Staged != *f.Staged {
		return false
	}
	if f.Untracked != nil && n.Untracked != *f.Untracked {
		return false
	}
	if f.Unpushed != nil && (n.Ahead > 0) != *f.Unpushed {
		return false
	}

	hasRemote := len(ctx.remotes) > 0
	if f.Orphan != nil && hasRemote == *f.Orphan {
		return false
	}
	if f.HasRemote != nil && hasRemote != *f.HasRemote {
		return false
	}
	if f.Duplicates != nil && ctx.isDuplicate != *f.Duplicates {
		return false
	}

	if f.Freshness != "" && string(index.ComputeFreshness(n.LastCommit, ctx.now)) != f.Freshness {
		return false
	}
	if f.Org != "" && !orgMatches(ctx.remotes, f.Org) {
		return false
	}
	if f.PathPrefix != "" && !strings.HasPrefix(n.Path, f.PathPrefix) {
		return false
	}
	if f.Category != "" && n.Category != f.Category {
		return false
	}
	if f.Ownership != "" && n.Ownership != f.Ownership {
		return false
	}
	if f.Intention != "" && n.Intention != f.Intention {
		return false
	}
	if f.ManagedBy != "" && n.ManagedBy != f.ManagedBy {
		return false
	}
	if f.Project != "" && n.Name != f.Project {
		return false
	}
	if len(f.Tags) > 0 && !tagsSuperset(ctx.tags, f.Tags) {
		return false
	}

	return true
}

func orgMatches(remotes []index.Remote, org string) bool {
	for _, r := range remotes {
		if owner := ownerOf(r.URL); strings.EqualFold(owner, org) {
			return true
		}
	}
	return false
}

// ownerOf duplicates the small amount of remote-URL parsing classify also
// needs; kept local rather than exported from internal/classify to avoid a
// cross-package dependency for five lines of string splitting.
func ownerOf(url string) string {
	u := strings.TrimSuffix(url, ".git")
	if strings.HasPrefix(u, "git@") {
		parts := strings.SplitN(strings.TrimPrefix(u, "git@"), ":", 2)
		if len(parts) == 2 {
			segs := strings.Split(parts[1], "/")
			if len(segs) > 0 {
				return segs[0]
			}
		}
		return ""
	}
	if i := strings.Index(u, "://"); i >= 0 {
		segs := strings.SplitN(u[i+3:], "/", 3)
		if len(segs) >= 2 {
			return segs[1]
		}
	}
	return ""
}

func tagsSuperset(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, t := range have {
		set[t] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

func remotesFromJSON(data string) []index.Remote {
	var remotes []index.Remote
	_ = json.Unmarshal([]byte(data), &remotes)
	return remotes
}
