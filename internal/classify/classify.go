// Package classify implements the three-axis Classification Engine of
// spec.md §4.4: built-in path heuristics, user-defined rules, then
// probabilistic inference, with user overrides taking precedence at every
// step. Grounded on the teacher's accumulator-style validator
// (internal/config/validator.go) for the "evaluate in order, first match
// wins" shape, generalized from config validation to per-axis assignment.
package classify

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/kissa/kissa/internal/config"
	"github.com/kissa/kissa/internal/index"
)

// Classifier evaluates category/ownership/intention/managed_by for nodes.
type Classifier struct {
	identity     config.IdentityConfig
	rules        []config.Rule
	builtins     []builtinRule
}

func New(cfg *config.Config) *Classifier {
	return &Classifier{
		identity: cfg.Identity,
		rules:    cfg.Classify,
		builtins: defaultBuiltins(),
	}
}

// Assignment is the per-axis outcome of one classify pass, including which
// axes the engine actually changed (vs. left alone because of an override).
type Assignment struct {
	Category   string
	Ownership  string
	Intention  string
	ManagedBy  string
	Tags       []string
	Confidence float64
	Overrides  index.Overrides
}

// ClassifyAll evaluates every node, resolving `dependency` intention
// against the full path set (spec §4.4: "some other indexed repo's
// manifest references this path").
// ClassifyAll evaluates every node and returns any rule-derived tags to
// append, keyed by node ID, since tag persistence goes through
// Store.AddTag rather than the node row itself.
func (c *Classifier) ClassifyAll(ctx context.Context, nodes []*index.Node, now time.Time) map[int64][]string {
	allPaths := make([]string, 0, len(nodes))
	for _, n := range nodes {
		allPaths = append(allPaths, n.Path)
	}
	tagsByNode := make(map[int64][]string)
	for _, n := range nodes {
		if tags := c.classifyOne(n, allPaths, now); len(tags) > 0 {
			tagsByNode[n.ID] = tags
		}
	}
	return tagsByNode
}

// Reclassify re-applies the pipeline to a single node, honoring its
// existing overrides (spec §4.4's "classify --reapply" re-application
// policy: every field with user_override=true is left untouched).
func (c *Classifier) Reclassify(n *index.Node, siblingPaths []string, now time.Time) []string {
	return c.classifyOne(n, siblingPaths, now)
}

func (c *Classifier) classifyOne(n *index.Node, siblingPaths []string, now time.Time) []string {
	var overrides index.Overrides
	_ = json.Unmarshal([]byte(n.OverridesJSON), &overrides)

	var remotes []index.Remote
	_ = json.Unmarshal([]byte(n.RemotesJSON), &remotes)

	var languages map[string]int
	_ = json.Unmarshal([]byte(n.LanguagesJSON), &languages)

	var tags []string

	// Step 1: built-in path heuristics (lowest priority — matched first but
	// applied after the user rules, only to fields those rules left unset).
	category, ownership, intention, managedBy := "", "", "", ""
	builtinManagedBy := ""
	for _, b := range c.builtins {
		if b.match(n.Path) {
			builtinManagedBy = b.managedBy
		}
	}

	// Step 2: user rules, top to bottom, first rule to set a field wins.
	for _, r := range c.rules {
		if !ruleMatches(r, n, remotes) {
			continue
		}
		if category == "" && r.Category != "" {
			category = r.Category
		}
		if ownership == "" && r.Ownership != "" {
			ownership = r.Ownership
		}
		if intention == "" && r.Intention != "" {
			intention = r.Intention
		}
		if managedBy == "" && r.ManagedBy != "" {
			managedBy = r.ManagedBy
		}
		tags = append(tags, r.Tags...)
	}
	if builtinManagedBy != "" {
		if managedBy == "" {
			managedBy = builtinManagedBy
		}
		if intention == "" {
			intention = string(index.IntentionDependency)
		}
		if ownership == "" {
			ownership = "third-party"
		}
	}

	confidence := 1.0
	if category == "" {
		category = c.inferCategory(n, remotes)
	}
	if ownership == "" {
		ownership = c.inferOwnership(remotes)
	}
	if intention == "" {
		var conf float64
		intention, conf = c.inferIntention(n, category, remotes, languages, siblingPaths, now)
		confidence = conf
	}

	if !overrides.Category {
		n.Category = category
	}
	if !overrides.Ownership {
		n.Ownership = ownership
	}
	if !overrides.Intention {
		n.Intention = intention
		n.Confidence = confidence
	}
	if !overrides.ManagedBy && managedBy != "" {
		n.ManagedBy = managedBy
	}

	overridesJSON, _ := json.Marshal(overrides)
	n.OverridesJSON = string(overridesJSON)
	return tags
}

func ruleMatches(r config.Rule, n *index.Node, remotes []index.Remote) bool {
	if r.PathGlob != "" {
		if ok, _ := filepath.Match(r.PathGlob, n.Path); !ok {
			return false
		}
	}
	if r.NameGlob != "" {
		if ok, _ := filepath.Match(r.NameGlob, n.Name); !ok {
			return false
		}
	}
	if r.RemoteOrg != "" {
		found := false
		for _, rem := range remotes {
			if _, owner := parseRemoteURL(rem.URL); owner == r.RemoteOrg {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if r.HasRemote != nil && (len(remotes) > 0) != *r.HasRemote {
		return false
	}
	if r.IsBare != nil && n.IsBare != *r.IsBare {
		return false
	}
	return true
}

// parseRemoteURL extracts (host, owner) from a common git remote URL shape
// (https://host/owner/repo.git or git@host:owner/repo.git).
func parseRemoteURL(url string) (host, owner string) {
	u := strings.TrimSuffix(url, ".git")
	switch {
	case strings.HasPrefix(u, "git@"):
		u = strings.TrimPrefix(u, "git@")
		parts := strings.SplitN(u, ":", 2)
		if len(parts) != 2 {
			return "", ""
		}
		host = parts[0]
		segs := strings.Split(parts[1], "/")
		if len(segs) > 0 {
			owner = segs[0]
		}
	case strings.Contains(u, "://"):
		u = u[strings.Index(u, "://")+3:]
		segs := strings.SplitN(u, "/", 3)
		if len(segs) >= 1 {
			host = segs[0]
		}
		if len(segs) >= 2 {
			owner = segs[1]
		}
	}
	return host, owner
}
