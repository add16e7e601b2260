// Package scanner implements the tiered discovery pipeline of spec.md §4.2:
// T0 index-only, T1 quick-verify, T2 full-walk, T3 watch, T4 opportunistic.
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kissa/kissa/internal/config"
	"github.com/kissa/kissa/internal/fsutil"
	"github.com/kissa/kissa/internal/gitprobe"
	"github.com/kissa/kissa/internal/index"
)

// Scanner drives all tiers against one Index Store.
type Scanner struct {
	store  *index.Store
	cfg    *config.Config
	logger *logrus.Logger
}

func New(store *index.Store, cfg *config.Config, logger *logrus.Logger) *Scanner {
	return &Scanner{store: store, cfg: cfg, logger: logger}
}

// Warning is a non-fatal condition recorded during a scan (mount skip,
// stat timeout) — spec §7: "Mount and stat timeouts are warnings, never
// failures."
type Warning struct {
	Path    string
	Message string
}

// Result summarizes one scan run.
type Result struct {
	ScanID      int64
	Tier        string
	NodesSeen   int
	NodesLost   int
	Discovered  []string
	Warnings    []Warning
}

// T0IndexOnly reads the store without touching the filesystem and reports
// how long ago the index was last verified.
func (s *Scanner) T0IndexOnly(ctx context.Context) (*index.Scan, error) {
	return s.store.LastScan(ctx)
}

// T1QuickVerify lstat's <path>/.git/HEAD for every indexed node; an
// unchanged mtime trusts existing vitals, a changed mtime schedules a
// refresh, a missing path marks the node lost. Budget: one stat per node.
func (s *Scanner) T1QuickVerify(ctx context.Context) (*Result, error) {
	scanID, err := s.store.BeginScan(ctx, "T1")
	if err != nil {
		return nil, err
	}
	result := &Result{ScanID: scanID, Tier: "T1"}

	nodes, err := s.store.AllNodes(ctx)
	if err != nil {
		return nil, err
	}

	for _, n := range nodes {
		if n.Lifecycle == string(index.LifecycleLost) {
			continue
		}
		headPath := filepath.Join(n.Path, ".git", "HEAD")
		info, statErr := os.Lstat(headPath)
		if statErr != nil {
			if err := s.store.MarkLost(ctx, n.Path); err != nil {
				return nil, err
			}
			result.NodesLost++
			continue
		}

		changed := n.LastVerified.IsZero() || info.ModTime().After(n.LastVerified)
		if changed {
			warning, err := s.refreshNode(ctx, n, scanID)
			if err != nil {
				s.logger.WithError(err).WithField("path", n.Path).Warn("refresh failed during T1")
				continue
			}
			if warning != "" {
				result.Warnings = append(result.Warnings, Warning{Path: n.Path, Message: warning})
			}
		}
		result.NodesSeen++
	}

	return result, s.store.FinishScan(ctx, scanID, result.NodesSeen, result.NodesLost)
}

// T2FullWalk performs a bounded BFS from every configured scan root,
// respecting exclusions, max depth, and mount boundaries, discovering new
// repo roots and marking previously indexed, now-unseen paths as lost.
//
// Fan-out is a recursive errgroup tree bounded by a counting semaphore:
// every directory visit either recurses inline or spawns a sibling g.Go
// call, and g.Wait only returns once every spawned call (including ones
// spawned from inside other spawned calls) has returned. There is no
// shared work queue to close, so there is no way for one goroutine to
// send on a channel another goroutine has already closed.
func (s *Scanner) T2FullWalk(ctx context.Context) (*Result, error) {
	scanID, err := s.store.BeginScan(ctx, "T2")
	if err != nil {
		return nil, err
	}
	result := &Result{ScanID: scanID, Tier: "T2"}

	var mu sync.Mutex
	seen := make(map[string]bool)

	sem := make(chan struct{}, numWorkers())
	g, gctx := errgroup.WithContext(ctx)

	for _, r := range s.cfg.Scan.Roots {
		root := r
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			s.walkDir(gctx, root, root, 0, &mu, seen, result, scanID, sem, g)
			return nil
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		return nil, err
	}

	lost, err := s.store.MarkLostExcept(ctx, seen)
	if err != nil {
		return nil, err
	}
	result.NodesLost = lost
	result.NodesSeen = len(seen)

	return result, s.store.FinishScan(ctx, scanID, result.NodesSeen, result.NodesLost)
}

func (s *Scanner) walkDir(ctx context.Context, root, dir string, depth int, mu *sync.Mutex, seen map[string]bool, result *Result, scanID int64, sem chan struct{}, g *errgroup.Group) {
	select {
	case <-ctx.Done():
		return
	default:
	}

	if s.cfg.Scan.MaxDepth > 0 && depth > s.cfg.Scan.MaxDepth {
		return
	}
	for _, ex := range s.cfg.Scan.Exclude {
		if matchPrefix(dir, ex) {
			return
		}
	}

	if depth > 0 {
		if skip, warn := s.checkMountBoundary(root, dir); skip {
			mu.Lock()
			result.Warnings = append(result.Warnings, Warning{Path: dir, Message: warn})
			mu.Unlock()
			return
		}
	}

	if isGitRoot(dir) {
		mu.Lock()
		seen[dir] = true
		mu.Unlock()
		n, warning, err := s.buildNode(ctx, dir, scanID)
		if err != nil {
			s.logger.WithError(err).WithField("path", dir).Warn("probe failed during T2 (recorded locally)")
			return
		}
		if warning != "" {
			mu.Lock()
			result.Warnings = append(result.Warnings, Warning{Path: dir, Message: warning})
			mu.Unlock()
		}
		if err := s.store.UpsertNode(ctx, n); err != nil {
			s.logger.WithError(err).WithField("path", dir).Error("index write failed")
		}
		return // do not recurse into a repo root (nested-repo detection is separate, §4.2)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		child := filepath.Join(dir, e.Name())
		select {
		case sem <- struct{}{}:
			g.Go(func() error {
				defer func() { <-sem }()
				s.walkDir(ctx, root, child, depth+1, mu, seen, result, scanID, sem, g)
				return nil
			})
		default:
			// Semaphore saturated: recurse inline instead of blocking a worker.
			s.walkDir(ctx, root, child, depth+1, mu, seen, result, scanID, sem, g)
		}
	}
}

func isGitRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && (info.IsDir() || info.Mode()&os.ModeSymlink != 0 || !info.IsDir())
}

// checkMountBoundary implements spec §4.2's mount-boundary rule: if dir's
// device differs from its parent's, it's a mount point; skip it unless
// explicitly allow-listed, and always skip if block-listed.
func (s *Scanner) checkMountBoundary(root, dir string) (skip bool, warning string) {
	parent := filepath.Dir(dir)

	statDone := make(chan struct {
		dev uint64
		err error
	}, 1)
	go func() {
		dev, err := fsutil.DeviceOf(dir)
		statDone <- struct {
			dev uint64
			err error
		}{dev, err}
	}()

	timeout := time.Duration(s.cfg.Scan.Boundaries.StatTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}

	select {
	case <-time.After(timeout):
		return true, "stat timeout exceeded " + timeout.String()
	case r := <-statDone:
		if r.err != nil {
			return true, "stat failed: " + r.err.Error()
		}
		parentDev, perr := fsutil.DeviceOf(parent)
		if perr != nil || r.dev == parentDev {
			return false, ""
		}
		for _, blocked := range s.cfg.Scan.Boundaries.BlockMounts {
			if blocked == dir {
				return true, "mount point explicitly blocked: " + dir
			}
		}
		for _, allowed := range s.cfg.Scan.Boundaries.AllowMounts {
			if allowed == dir {
				return false, ""
			}
		}
		if s.cfg.Scan.Boundaries.CrossMounts {
			return false, ""
		}
		return true, "mount boundary crossed at " + dir
	}
}

func matchPrefix(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	if strings.HasPrefix(path, prefix) {
		return true
	}
	m, _ := filepath.Match(prefix+"*", path)
	return m
}

func numWorkers() int {
	n := 4
	if cpus := cpuCount(); cpus > 0 {
		n = cpus
	}
	if n > 16 {
		n = 16
	}
	return n
}

// buildNode probes path and projects the result into an index.Node, also
// returning any non-fatal symlink warning the probe recorded (spec §4.1:
// a warning when a symlinked .git points outside every configured scan
// root).
func (s *Scanner) buildNode(ctx context.Context, path string, scanID int64) (*index.Node, string, error) {
	deadline := time.Duration(s.cfg.GitProbeTimeoutSeconds) * time.Second
	if deadline <= 0 {
		deadline = 5 * time.Second
	}
	vitals, err := gitprobe.Probe(ctx, path, deadline, s.cfg.Scan.Roots)
	if err != nil {
		return nodeFromProbeError(path, scanID, err), "", nil
	}
	return nodeFromVitals(path, vitals, scanID), vitals.SymlinkWarning, nil
}

func (s *Scanner) refreshNode(ctx context.Context, n *index.Node, scanID int64) (string, error) {
	updated, warning, err := s.buildNode(ctx, n.Path, scanID)
	if err != nil {
		return "", err
	}
	updated.ID = n.ID
	updated.Category = n.Category
	updated.Ownership = n.Ownership
	updated.Intention = n.Intention
	updated.ManagedBy = n.ManagedBy
	updated.OverridesJSON = n.OverridesJSON
	return warning, s.store.UpsertNode(ctx, updated)
}
