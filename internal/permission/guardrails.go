package permission

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kissa/kissa/internal/errs"
	"github.com/kissa/kissa/internal/index"
)

// generatedExtensions and generatedNames are the heuristics behind
// "looks important": an untracked file NOT matching one of these is
// assumed to be something a user would not want silently destroyed.
var generatedExtensions = map[string]bool{
	".log": true, ".tmp": true, ".cache": true, ".pyc": true,
	".o": true, ".obj": true, ".class": true,
}

var generatedNames = map[string]bool{
	"node_modules": true, "__pycache__": true, ".DS_Store": true,
	"dist": true, "build": true, ".terraform": true,
}

// looksGenerated reports whether path matches a common build-artifact
// pattern and is therefore safe to drop without a confirmation prompt.
func looksGenerated(path string) bool {
	base := filepath.Base(path)
	if generatedNames[base] {
		return true
	}
	for dir := path; dir != "." && dir != string(filepath.Separator); dir = filepath.Dir(dir) {
		if generatedNames[filepath.Base(dir)] {
			return true
		}
	}
	return generatedExtensions[filepath.Ext(base)]
}

// CheckDelete enforces the unpushed-commits guard rail (spec §4.7): deleting
// a repo with any commit not yet pushed to a remote requires a separate,
// positive confirmation regardless of the caller's permission level.
func (g *Gate) CheckDelete(n *index.Node, confirmed bool) error {
	if n.Ahead > 0 && !confirmed {
		return errs.New(errs.PermissionDenied,
			fmt.Sprintf("%s has %d unpushed commit(s); deleting it requires confirmation", n.Path, n.Ahead)).
			WithContext("rule", "unpushed_commits_guard_rail").
			WithContext("ahead", n.Ahead)
	}
	return nil
}

// CheckForcePush enforces the protected-branch guard rail: force-pushing to
// a branch named in protected_branches requires explicit confirmation even
// when the caller already holds LevelForce or above.
func (g *Gate) CheckForcePush(branch string, confirmed bool) error {
	if g.IsProtectedBranch(branch) && !confirmed {
		return errs.New(errs.PermissionDenied,
			fmt.Sprintf("%s is a protected branch; force-pushing requires confirmation", branch)).
			WithContext("rule", "protected_branch_guard_rail").
			WithContext("branch", branch)
	}
	return nil
}

// CheckRecursiveClean enforces the "looks important" guard rail: recursively
// removing untracked files requires confirmation unless every one of them
// matches a known generated-artifact pattern.
func (g *Gate) CheckRecursiveClean(untrackedFiles []string, confirmed bool) error {
	if confirmed {
		return nil
	}
	var important []string
	for _, f := range untrackedFiles {
		if !looksGenerated(f) {
			important = append(important, f)
		}
	}
	if len(important) > 0 {
		return errs.New(errs.PermissionDenied,
			fmt.Sprintf("%d untracked file(s) don't look generated (e.g. %s); recursive clean requires confirmation",
				len(important), strings.Join(firstN(important, 3), ", "))).
			WithContext("rule", "looks_important_guard_rail").
			WithContext("files", important)
	}
	return nil
}

func firstN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
