// Package gitprobe extracts per-repo vitals through go-git, a pure-Go git
// implementation that never shells out to a system git binary and therefore
// never executes repository hooks (spec.md §4.1, §1 out-of-scope boundary:
// object-level git operations are delegated to a hook-free library). Every
// call here is bounded by a context deadline.
package gitprobe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/kissa/kissa/internal/errs"
	"github.com/kissa/kissa/internal/fsutil"
)

// Remote is one (name, URL) pair from the repo's remote configuration.
type Remote struct {
	Name string
	URL  string
}

// Vitals is everything the Git Probe extracts from a working tree in one call.
type Vitals struct {
	Remotes          []Remote
	DefaultBranch    string
	CurrentBranch    string
	LocalBranchCount int
	RemoteBranchCount int
	MergedBranchCount int
	Dirty            bool
	Staged           bool
	Untracked        bool
	Ahead            int
	Behind           int
	LastCommit       time.Time
	IsBare           bool
	SymlinkWarning   string // non-empty if a symlinked .git pointed outside scan roots
}

// Probe runs the full vitals extraction for the working tree at path,
// bounded by deadline. It never executes hooks: go-git implements the git
// wire/object protocols itself and has no hook-execution code path.
// scanRoots, when non-empty, is the configured set of scan roots (spec
// §4.1) used to flag a symlinked .git pointing outside all of them; pass
// nil when the caller has no scan-root configuration to check against.
func Probe(ctx context.Context, path string, deadline time.Duration, scanRoots []string) (*Vitals, error) {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	resultCh := make(chan probeResult, 1)
	go func() {
		v, err := probe(path, scanRoots)
		resultCh <- probeResult{v, err}
	}()

	select {
	case <-ctx.Done():
		return nil, errs.New(errs.ProbeTimeout, fmt.Sprintf("probe of %s exceeded %s", path, deadline))
	case r := <-resultCh:
		return r.vitals, r.err
	}
}

type probeResult struct {
	vitals *Vitals
	err    error
}

func probe(path string, scanRoots []string) (*Vitals, error) {
	warning, err := resolveSymlinkedGitDir(path, scanRoots)
	if err != nil {
		return nil, err
	}

	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: false})
	if err != nil {
		if err == git.ErrRepositoryNotExists {
			return nil, errs.Wrap(errs.NotARepo, fmt.Sprintf("%s is not a git working tree", path), err)
		}
		return nil, errs.Wrap(errs.Corrupted, fmt.Sprintf("failed to open %s", path), err)
	}

	cfg, err := repo.Config()
	if err != nil {
		return nil, errs.Wrap(errs.Corrupted, "failed to read git config", err)
	}

	v := &Vitals{SymlinkWarning: warning, IsBare: cfg.Core.IsBare}

	remotes, err := repo.Remotes()
	if err != nil {
		return nil, errs.Wrap(errs.Corrupted, "failed to enumerate remotes", err)
	}
	for _, r := range remotes {
		rc := r.Config()
		url := ""
		if len(rc.URLs) > 0 {
			url = rc.URLs[0]
		}
		v.Remotes = append(v.Remotes, Remote{Name: rc.Name, URL: url})
	}

	head, err := repo.Head()
	if err == nil {
		if head.Name().IsBranch() {
			v.CurrentBranch = head.Name().Short()
		}
	} else if err != plumbing.ErrReferenceNotFound {
		return nil, errs.Wrap(errs.Corrupted, "failed to resolve HEAD", err)
	}

	v.DefaultBranch = defaultBranch(repo, cfg)

	branches, err := repo.Branches()
	if err == nil {
		_ = branches.ForEach(func(ref *plumbing.Reference) error {
			v.LocalBranchCount++
			return nil
		})
	}
	refs, err := repo.References()
	if err == nil {
		_ = refs.ForEach(func(ref *plumbing.Reference) error {
			if ref.Name().IsRemote() {
				v.RemoteBranchCount++
			}
			return nil
		})
	}

	if v.DefaultBranch != "" {
		v.MergedBranchCount = countMergedBranches(repo, v.DefaultBranch)
	}

	if !v.IsBare {
		wt, err := repo.Worktree()
		if err == nil {
			status, serr := wt.Status()
			if serr == nil {
				for _, s := range status {
					switch {
					case s.Worktree == git.Untracked:
						v.Untracked = true
					case s.Staging != git.Unmodified && s.Staging != git.Untracked:
						v.Staged = true
					case s.Worktree != git.Unmodified:
						v.Dirty = true
					}
				}
			}
		}
	}

	v.Ahead, v.Behind = trackingDivergence(repo, v.CurrentBranch)

	if head, err := repo.Head(); err == nil {
		commit, cerr := repo.CommitObject(head.Hash())
		if cerr == nil {
			v.LastCommit = commit.Committer.When
		}
	} else {
		commitIter, citerErr := repo.Log(&git.LogOptions{All: true})
		if citerErr == nil {
			_ = commitIter.ForEach(func(c *object.Commit) error {
				if c.Committer.When.After(v.LastCommit) {
					v.LastCommit = c.Committer.When
				}
				return nil
			})
		}
	}

	return v, nil
}

// UntrackedFiles lists every untracked working-tree path in the repo at
// path, for the Permission Gate's "looks important" recursive-clean guard
// rail (spec §4.7) to inspect before a `git clean` is allowed through.
func UntrackedFiles(path string) ([]string, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: false})
	if err != nil {
		return nil, errs.Wrap(errs.Corrupted, fmt.Sprintf("failed to open %s", path), err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, errs.Wrap(errs.Corrupted, "failed to open worktree", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, errs.Wrap(errs.Corrupted, "failed to read status", err)
	}
	var untracked []string
	for file, s := range status {
		if s.Worktree == git.Untracked {
			untracked = append(untracked, file)
		}
	}
	return untracked, nil
}

func defaultBranch(repo *git.Repository, cfg *gitconfig.Config) string {
	if ref, err := repo.Reference(plumbing.ReferenceName("refs/remotes/origin/HEAD"), true); err == nil {
		return ref.Name().Short()
	}
	for _, name := range []string{"main", "master"} {
		if _, err := repo.Reference(plumbing.NewBranchReferenceName(name), false); err == nil {
			return name
		}
	}
	return ""
}

func countMergedBranches(repo *git.Repository, defaultBranchName string) int {
	defaultRef, err := repo.Reference(plumbing.NewBranchReferenceName(defaultBranchName), true)
	if err != nil {
		return 0
	}
	defaultCommit, err := repo.CommitObject(defaultRef.Hash())
	if err != nil {
		return 0
	}

	count := 0
	branches, err := repo.Branches()
	if err != nil {
		return 0
	}
	_ = branches.ForEach(func(ref *plumbing.Reference) error {
		if ref.Name().Short() == defaultBranchName {
			return nil
		}
		commit, err := repo.CommitObject(ref.Hash())
		if err != nil {
			return nil
		}
		isAncestor, err := commit.IsAncestor(defaultCommit)
		if err == nil && isAncestor {
			count++
		}
		return nil
	})
	return count
}

// trackingDivergence computes ahead/behind counts of branch against
// refs/remotes/origin/<branch> (the configured upstream is not read),
// walking both histories from their merge-base.
func trackingDivergence(repo *git.Repository, branch string) (ahead, behind int) {
	if branch == "" {
		return 0, 0
	}
	localRef, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		return 0, 0
	}
	upstreamRef, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return 0, 0
	}
	localCommit, err := repo.CommitObject(localRef.Hash())
	if err != nil {
		return 0, 0
	}
	upstreamCommit, err := repo.CommitObject(upstreamRef.Hash())
	if err != nil {
		return 0, 0
	}
	bases, err := localCommit.MergeBase(upstreamCommit)
	if err != nil || len(bases) == 0 {
		return 0, 0
	}
	base := bases[0]
	ahead = countCommitsSince(localCommit, base)
	behind = countCommitsSince(upstreamCommit, base)
	return ahead, behind
}

func countCommitsSince(from, base *object.Commit) int {
	count := 0
	iter := object.NewCommitPreorderIter(from, nil, nil)
	_ = iter.ForEach(func(c *object.Commit) error {
		if c.Hash == base.Hash {
			return storer.ErrStop
		}
		count++
		return nil
	})
	return count
}

// resolveSymlinkedGitDir lstats path/.git without following it; if it is a
// symlink, the target is verified to be a real git directory, and a
// warning string is returned (non-fatal, per §4.1) when the target lies
// outside every path in scanRoots.
func resolveSymlinkedGitDir(repoPath string, scanRoots []string) (string, error) {
	gitPath := filepath.Join(repoPath, ".git")
	info, err := os.Lstat(gitPath)
	if err != nil {
		return "", errs.Wrap(errs.Unreadable, fmt.Sprintf("cannot stat %s", gitPath), err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return "", nil
	}

	target, err := os.Readlink(gitPath)
	if err != nil {
		return "", errs.Wrap(errs.Unreadable, fmt.Sprintf("cannot resolve symlink %s", gitPath), err)
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(repoPath, target)
	}
	targetInfo, err := os.Stat(target)
	if err != nil || !targetInfo.IsDir() {
		return "", errs.New(errs.Corrupted, fmt.Sprintf("%s points to a missing or non-directory target", gitPath))
	}
	if _, err := os.Stat(filepath.Join(target, "HEAD")); err != nil {
		return "", errs.New(errs.Corrupted, fmt.Sprintf("%s points to %s, which is not a git directory", gitPath, target))
	}
	if repoDev, err := fsutil.DeviceOf(repoPath); err == nil {
		if targetDev, err := fsutil.DeviceOf(target); err == nil && targetDev != repoDev {
			return "", errs.New(errs.MountSkipped, fmt.Sprintf("%s points to %s on a different filesystem", gitPath, target))
		}
	}

	if len(scanRoots) > 0 && !withinScanRoots(target, scanRoots) {
		return fmt.Sprintf(".git symlink at %s points outside configured scan roots (%s)", repoPath, target), nil
	}
	return "", nil
}

// withinScanRoots reports whether target is equal to or nested under any
// of roots.
func withinScanRoots(target string, roots []string) bool {
	absTarget, err := filepath.Abs(target)
	if err != nil {
		absTarget = target
	}
	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			absRoot = root
		}
		rel, err := filepath.Rel(absRoot, absTarget)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return true
		}
	}
	return false
}
