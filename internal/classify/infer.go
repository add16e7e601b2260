package classify

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kissa/kissa/internal/index"
)

var dotfileMarkers = []string{".config", "dotfiles"}
var infraMarkers = []string{"terraform", "ansible", "kubernetes", "k8s", "infra", "docker-compose", "helm"}
var manifestFiles = []string{"go.mod", "package.json", "requirements.txt", "Gemfile", "Cargo.toml", "go.sum"}

func (c *Classifier) inferCategory(n *index.Node, remotes []index.Remote) string {
	if n.IsBare {
		return string(index.CategoryMirror)
	}

	var originOwner string
	hasUpstream := false
	for _, r := range remotes {
		_, owner := parseRemoteURL(r.URL)
		if r.Name == "origin" {
			originOwner = owner
		}
		if r.Name == "upstream" {
			hasUpstream = true
		}
	}

	if originOwner == "" {
		return string(index.CategoryOrigin)
	}
	if c.isOwnIdentity(originOwner) && hasUpstream {
		return string(index.CategoryFork)
	}
	if !c.isOwnIdentity(originOwner) && !hasUpstream {
		return string(index.CategoryClone)
	}
	return string(index.CategoryOrigin)
}

func (c *Classifier) isOwnIdentity(owner string) bool {
	for _, u := range c.identity.Usernames {
		if strings.EqualFold(u, owner) {
			return true
		}
	}
	return false
}

func (c *Classifier) inferOwnership(remotes []index.Remote) string {
	if len(remotes) == 0 {
		return "local"
	}
	for _, r := range remotes {
		_, owner := parseRemoteURL(r.URL)
		if c.isOwnIdentity(owner) {
			return "personal"
		}
	}
	for _, r := range remotes {
		_, owner := parseRemoteURL(r.URL)
		if label, ok := c.identity.WorkOrgs[owner]; ok {
			return "work:" + label
		}
	}
	for _, r := range remotes {
		_, owner := parseRemoteURL(r.URL)
		for _, community := range c.identity.CommunityOrgs {
			if strings.EqualFold(community, owner) {
				return "community"
			}
		}
	}
	return "third-party"
}

// inferIntention walks the precedence chain of spec.md §4.4, returning the
// chosen value and a confidence signal since intention inference is
// probabilistic by nature.
func (c *Classifier) inferIntention(n *index.Node, category string, remotes []index.Remote, languages map[string]int, siblingPaths []string, now time.Time) (string, float64) {
	lowerName := strings.ToLower(n.Name)
	lowerPath := strings.ToLower(n.Path)

	for _, marker := range dotfileMarkers {
		if strings.Contains(lowerPath, marker) || lowerName == marker {
			return string(index.IntentionDotfiles), 0.75
		}
	}

	for _, marker := range infraMarkers {
		if strings.Contains(lowerName, marker) {
			return string(index.IntentionInfrastructure), 0.6
		}
	}
	if languages["Dockerfile"] > 0 || languages["Terraform"] > 0 {
		return string(index.IntentionInfrastructure), 0.65
	}

	if referencedByManifest(n, siblingPaths) {
		return string(index.IntentionDependency), 0.7
	}

	if category == string(index.CategoryFork) && (n.Ahead > 0 || n.Behind > 0) {
		return string(index.IntentionContributing), 0.7
	}

	recentActivity := !n.LastCommit.IsZero() && now.Sub(n.LastCommit) < 30*24*time.Hour
	nonDefaultBranch := n.CurrentBranch != "" && n.CurrentBranch != n.DefaultBranch
	if (n.Dirty || n.Staged || nonDefaultBranch) && recentActivity {
		return string(index.IntentionDeveloping), 0.6
	}

	if len(remotes) == 0 && n.LocalBranchCount <= 1 {
		return string(index.IntentionExperiment), 0.5
	}

	sixMonthsAgo := now.Add(-6 * 30 * 24 * time.Hour)
	clean := !n.Dirty && !n.Staged && !n.Untracked
	onDefault := n.CurrentBranch == "" || n.CurrentBranch == n.DefaultBranch
	if !n.LastCommit.IsZero() && n.LastCommit.Before(sixMonthsAgo) && clean && onDefault {
		return string(index.IntentionArchived), 0.65
	}

	return string(index.IntentionReference), 0.4
}

// referencedByManifest does a best-effort textual scan of each sibling's
// manifest files for this node's directory name, approximating "some other
// indexed repo's manifest references this path" without a full dependency
// parser (spec §4.4).
func referencedByManifest(n *index.Node, siblingPaths []string) bool {
	for _, sibling := range siblingPaths {
		if sibling == n.Path {
			continue
		}
		for _, manifest := range manifestFiles {
			data, err := os.ReadFile(filepath.Join(sibling, manifest))
			if err != nil {
				continue
			}
			if strings.Contains(string(data), n.Name) || strings.Contains(string(data), n.Path) {
				return true
			}
		}
	}
	return false
}
