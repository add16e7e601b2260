// Package planner implements the Pattern resolver, plan generation, and
// two-phase-commit apply/rollback of spec.md §4.6.
package planner

import (
	"fmt"
	"strings"
	"time"

	"github.com/kissa/kissa/internal/config"
	"github.com/kissa/kissa/internal/graphmodel"
	"github.com/kissa/kissa/internal/index"
)

// PatternRule pairs a graphmodel.Filter match against a destination
// path-template (spec §4.6: "an ordered list of (match, path-template)
// rules plus a required catch-all").
type PatternRule struct {
	Match        graphmodel.Filter
	PathTemplate string
}

// Pattern is an ordered rule list; the first matching rule per repo
// decides the destination. The last rule must be a catch-all (an empty
// Filter, which matches everything).
type Pattern struct {
	Rules []PatternRule
}

// FromConfig builds a Pattern from organization.rules plus a synthesized
// catch-all using organization.base_path and the configured pattern
// (platform/role/project/hybrid), so a pattern is always resolvable even
// with zero user-defined rules.
func FromConfig(cfg *config.Config) Pattern {
	var rules []PatternRule
	for _, r := range cfg.Organization.Rules {
		rules = append(rules, PatternRule{
			Match:        filterFromRule(r),
			PathTemplate: r.PathTemplate,
		})
	}
	rules = append(rules, PatternRule{
		Match:        graphmodel.Filter{},
		PathTemplate: catchAllTemplate(cfg.Organization.Pattern, cfg.Organization.BasePath),
	})
	return Pattern{Rules: rules}
}

func filterFromRule(r config.Rule) graphmodel.Filter {
	f := graphmodel.Filter{
		PathPrefix: r.PathGlob,
		Category:   r.Category,
		Ownership:  r.Ownership,
		Intention:  r.Intention,
		ManagedBy:  r.ManagedBy,
	}
	if r.HasRemote != nil {
		f.HasRemote = r.HasRemote
	}
	return f
}

func catchAllTemplate(pattern config.OrganizationPattern, basePath string) string {
	switch pattern {
	case config.PatternRole:
		return basePath + "/{intention}/{repo_name}"
	case config.PatternProject:
		return basePath + "/{project}/{repo_name}"
	case config.PatternHybrid:
		return basePath + "/{ownership}/{org}/{repo_name}"
	default: // platform
		return basePath + "/{platform}/{org}/{repo_name}"
	}
}

// Resolve returns the destination path for n under the first matching
// rule.
func (p Pattern) Resolve(n *index.Node, remotes []index.Remote, tags []string, languages map[string]int, now time.Time) (string, error) {
	mctx := graphmodel.NewMatchContext(remotes, tags, false, now)
	for _, rule := range p.Rules {
		if rule.Match.Matches(n, mctx) {
			return expandTemplate(rule.PathTemplate, n, remotes, languages), nil
		}
	}
	return "", fmt.Errorf("no pattern rule matched %s (catch-all missing)", n.Path)
}

func expandTemplate(tmpl string, n *index.Node, remotes []index.Remote, languages map[string]int) string {
	platform, org := "", ""
	if len(remotes) > 0 {
		platform, org = splitRemote(remotes[0].URL)
	}
	username := org

	lang0 := ""
	if len(languages) > 0 {
		best, bestCount := "", -1
		for l, count := range languages {
			if count > bestCount {
				best, bestCount = l, count
			}
		}
		lang0 = best
	}

	label := strings.TrimPrefix(n.Ownership, "work:")

	replacer := strings.NewReplacer(
		"{repo_name}", n.Name,
		"{org}", org,
		"{platform}", platform,
		"{username}", username,
		"{label}", label,
		"{project}", n.Name,
		"{category}", n.Category,
		"{ownership}", n.Ownership,
		"{intention}", n.Intention,
		"{languages.0}", lang0,
	)
	return replacer.Replace(tmpl)
}

func splitRemote(url string) (platform, org string) {
	u := strings.TrimSuffix(url, ".git")
	if strings.HasPrefix(u, "git@") {
		parts := strings.SplitN(strings.TrimPrefix(u, "git@"), ":", 2)
		if len(parts) == 2 {
			platform = parts[0]
			segs := strings.Split(parts[1], "/")
			if len(segs) > 0 {
				org = segs[0]
			}
		}
		return platform, org
	}
	if i := strings.Index(u, "://"); i >= 0 {
		segs := strings.SplitN(u[i+3:], "/", 3)
		if len(segs) >= 1 {
			platform = segs[0]
		}
		if len(segs) >= 2 {
			org = segs[1]
		}
	}
	return platform, org
}
