package planner

import (
	"testing"
	"time"

	"github.com/kissa/kissa/internal/config"
	"github.com/kissa/kissa/internal/graphmodel"
	"github.com/kissa/kissa/internal/index"
)

func TestCatchAllTemplateByPattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern config.OrganizationPattern
		want    string
	}{
		{"platform", config.PatternPlatform, "/base/{platform}/{org}/{repo_name}"},
		{"role", config.PatternRole, "/base/{intention}/{repo_name}"},
		{"project", config.PatternProject, "/base/{project}/{repo_name}"},
		{"hybrid", config.PatternHybrid, "/base/{ownership}/{org}/{repo_name}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := catchAllTemplate(tt.pattern, "/base")
			if got != tt.want {
				t.Errorf("catchAllTemplate(%s) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestResolveExpandsTemplateFields(t *testing.T) {
	pattern := Pattern{Rules: []PatternRule{
		{PathTemplate: "/base/{platform}/{org}/{repo_name}"},
	}}
	n := &index.Node{Name: "tool", Category: "origin", Ownership: "personal", Intention: "developing"}
	remotes := []index.Remote{{Name: "origin", URL: "https://github.com/alice/tool.git"}}

	got, err := pattern.Resolve(n, remotes, nil, map[string]int{"Go": 10}, time.Now())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := "/base/github.com/alice/tool"
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolveFailsWithoutCatchAll(t *testing.T) {
	pattern := Pattern{Rules: nil}
	_, err := pattern.Resolve(&index.Node{Name: "x"}, nil, nil, nil, time.Now())
	if err == nil {
		t.Error("expected an error when no rule (not even a catch-all) matches")
	}
}

func TestResolveFirstMatchingRuleWins(t *testing.T) {
	pattern := Pattern{Rules: []PatternRule{
		{Match: graphmodel.Filter{Category: "fork"}, PathTemplate: "/forks/{repo_name}"},
		{Match: graphmodel.Filter{}, PathTemplate: "/base/{repo_name}"},
	}}

	forkNode := &index.Node{Name: "tool", Category: "fork"}
	got, err := pattern.Resolve(forkNode, nil, nil, nil, time.Now())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != "/forks/tool" {
		t.Errorf("Resolve() = %q, want the fork-specific rule to win", got)
	}

	originNode := &index.Node{Name: "tool", Category: "origin"}
	got, err = pattern.Resolve(originNode, nil, nil, nil, time.Now())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != "/base/tool" {
		t.Errorf("Resolve() = %q, want the catch-all to win for a non-fork", got)
	}
}
