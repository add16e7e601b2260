package classify

import (
	"testing"
	"time"

	"github.com/kissa/kissa/internal/config"
	"github.com/kissa/kissa/internal/index"
)

func TestComputeFreshnessIsPureFunction(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		age    time.Duration
		expect index.Freshness
	}{
		{"just now", 0, index.FreshnessActive},
		{"six days", 6 * 24 * time.Hour, index.FreshnessActive},
		{"twenty days", 20 * 24 * time.Hour, index.FreshnessRecent},
		{"sixty days", 60 * 24 * time.Hour, index.FreshnessStale},
		{"two hundred days", 200 * 24 * time.Hour, index.FreshnessDormant},
		{"two years", 2 * 365 * 24 * time.Hour, index.FreshnessAncient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := index.ComputeFreshness(now.Add(-tt.age), now)
			if got != tt.expect {
				t.Errorf("ComputeFreshness(age=%s) = %v, want %v", tt.age, got, tt.expect)
			}
		})
	}
}

func TestInferOwnershipPrecedence(t *testing.T) {
	c := &Classifier{identity: config.IdentityConfig{
		Usernames:     []string{"alice"},
		WorkOrgs:      map[string]string{"acme-corp": "acme"},
		CommunityOrgs: []string{"golang"},
	}}

	tests := []struct {
		name   string
		remote string
		want   string
	}{
		{"personal", "https://github.com/alice/tool.git", "personal"},
		{"work", "https://github.com/acme-corp/service.git", "work:acme"},
		{"community", "git@github.com:golang/go.git", "community"},
		{"third-party", "https://github.com/someoneelse/lib.git", "third-party"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.inferOwnership([]index.Remote{{Name: "origin", URL: tt.remote}})
			if got != tt.want {
				t.Errorf("inferOwnership(%s) = %q, want %q", tt.remote, got, tt.want)
			}
		})
	}

	if got := c.inferOwnership(nil); got != "local" {
		t.Errorf("inferOwnership(no remotes) = %q, want local", got)
	}
}

func TestInferCategoryForkVsClone(t *testing.T) {
	c := &Classifier{identity: config.IdentityConfig{Usernames: []string{"alice"}}}

	fork := []index.Remote{
		{Name: "origin", URL: "https://github.com/alice/tool.git"},
		{Name: "upstream", URL: "https://github.com/original/tool.git"},
	}
	if got := c.inferCategory(&index.Node{}, fork); got != string(index.CategoryFork) {
		t.Errorf("expected fork, got %q", got)
	}

	clone := []index.Remote{{Name: "origin", URL: "https://github.com/someoneelse/tool.git"}}
	if got := c.inferCategory(&index.Node{}, clone); got != string(index.CategoryClone) {
		t.Errorf("expected clone, got %q", got)
	}

	bare := &index.Node{IsBare: true}
	if got := c.inferCategory(bare, nil); got != string(index.CategoryMirror) {
		t.Errorf("expected mirror for bare repo, got %q", got)
	}
}

func TestClassifyOneRespectsOverrides(t *testing.T) {
	c := New(&config.Config{Identity: config.IdentityConfig{Usernames: []string{"alice"}}})
	n := &index.Node{
		Path:          "/home/alice/repos/tool",
		Name:          "tool",
		RemotesJSON:   "[]",
		LanguagesJSON: "{}",
		OverridesJSON: `{"intention":true}`,
		Intention:     "dotfiles",
	}

	c.Reclassify(n, nil, time.Now())

	if n.Intention != "dotfiles" {
		t.Errorf("reclassify changed overridden intention: got %q", n.Intention)
	}
	if n.Ownership != "local" {
		t.Errorf("expected local ownership with no remotes, got %q", n.Ownership)
	}
}

func TestRuleMatchPrecedesInference(t *testing.T) {
	cfg := &config.Config{
		Classify: []config.Rule{
			{PathGlob: "/opt/tools/*", Intention: string(index.IntentionInfrastructure)},
		},
	}
	c := New(cfg)
	n := &index.Node{
		Path:          "/opt/tools/deploy",
		Name:          "deploy",
		RemotesJSON:   "[]",
		LanguagesJSON: "{}",
		OverridesJSON: "{}",
	}
	c.Reclassify(n, nil, time.Now())
	if n.Intention != string(index.IntentionInfrastructure) {
		t.Errorf("expected user rule to win, got %q", n.Intention)
	}
}
