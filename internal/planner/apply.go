package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kissa/kissa/internal/errs"
	"github.com/kissa/kissa/internal/fsutil"
	"github.com/kissa/kissa/internal/gitprobe"
	"github.com/kissa/kissa/internal/index"
	"github.com/kissa/kissa/internal/permission"
)

// ApplyResult summarizes one plan-apply run.
type ApplyResult struct {
	Applied           []int64
	Failed            *index.PlanAction
	RolledBack        []int64
	DependencyImpacts map[int64][]string // action node id -> paths whose manifests reference the old path
}

// Apply executes a plan's actions in order under the two-phase-commit
// discipline of spec §4.6: prepare, execute, verify, rolling back every
// already-applied action in reverse order the moment one fails.
func Apply(ctx context.Context, store *index.Store, gate *permission.Gate, plan *index.Plan, actions []*index.PlanAction, allowDirty bool, gitProbeTimeout time.Duration) (*ApplyResult, error) {
	result := &ApplyResult{DependencyImpacts: make(map[int64][]string)}

	for _, action := range actions {
		select {
		case <-ctx.Done():
			return result, rollback(ctx, store, actions[:len(result.Applied)], result, ctx.Err())
		default:
		}

		if err := applyOne(ctx, store, gate, action, allowDirty, gitProbeTimeout); err != nil {
			_ = store.SetActionResult(ctx, action.ID, "failed", err.Error())
			result.Failed = action
			rollErr := rollback(ctx, store, takeUntil(actions, action), result, err)
			_ = store.SetPlanStatus(ctx, plan.ID, index.PlanFailed)
			return result, rollErr
		}

		_ = store.SetActionResult(ctx, action.ID, "ok", "")
		result.Applied = append(result.Applied, action.ID)

		if action.Kind == index.ActionMove {
			result.DependencyImpacts[action.NodeID] = scanDependencyImpact(ctx, store, action.FromPath)
		}
	}

	if err := store.SetPlanStatus(ctx, plan.ID, index.PlanApplied); err != nil {
		return result, err
	}
	return result, nil
}

func takeUntil(actions []*index.PlanAction, failed *index.PlanAction) []*index.PlanAction {
	for i, a := range actions {
		if a.ID == failed.ID {
			return actions[:i]
		}
	}
	return actions
}

func applyOne(ctx context.Context, store *index.Store, gate *permission.Gate, action *index.PlanAction, allowDirty bool, gitProbeTimeout time.Duration) error {
	switch action.Kind {
	case index.ActionMove:
		return applyMove(ctx, store, gate, action, allowDirty, gitProbeTimeout)
	case index.ActionArchive:
		return applyArchive(ctx, store, action)
	case index.ActionTag:
		return applyTag(ctx, store, action)
	default:
		return fmt.Errorf("unknown action kind %q", action.Kind)
	}
}

// applyMove implements prepare/execute/verify for one move action. A move
// across filesystems copies the working tree then removes the source
// (moveDir), which is a genuine delete of the original repo; that delete
// runs behind the same unpushed-commits guard rail as an explicit forget
// (spec §4.7), with allowDirty standing in as the apply run's single
// already-confirmed override.
func applyMove(ctx context.Context, store *index.Store, gate *permission.Gate, action *index.PlanAction, allowDirty bool, gitProbeTimeout time.Duration) error {
	// Prepare.
	if _, err := os.Stat(action.FromPath); err != nil {
		return errs.Wrap(errs.Unreadable, fmt.Sprintf("source %s no longer exists", action.FromPath), err)
	}
	if entries, err := os.ReadDir(action.ToPath); err == nil && len(entries) > 0 {
		return errs.New(errs.PlanConflict, fmt.Sprintf("destination %s already exists and is not empty", action.ToPath))
	}
	vitals, verr := gitprobe.Probe(ctx, action.FromPath, gitProbeTimeout, nil)
	if verr == nil {
		if !allowDirty && (vitals.Dirty || vitals.Staged) {
			return errs.New(errs.PlanConflict, fmt.Sprintf("%s has uncommitted changes; move requires an explicit dirty-move allowance", action.FromPath))
		}
		if gate != nil && !sameFilesystem(action.FromPath, action.ToPath) {
			n := &index.Node{Path: action.FromPath, Ahead: vitals.Ahead}
			if err := gate.CheckDelete(n, allowDirty); err != nil {
				return err
			}
		}
	}

	// Execute.
	if err := os.MkdirAll(filepath.Dir(action.ToPath), 0o755); err != nil {
		return fmt.Errorf("create destination parent: %w", err)
	}
	if err := moveDir(action.FromPath, action.ToPath); err != nil {
		return fmt.Errorf("move %s to %s: %w", action.FromPath, action.ToPath, err)
	}
	if err := store.Rebind(ctx, action.NodeID, action.ToPath); err != nil {
		return fmt.Errorf("rebind index: %w", err)
	}

	// Verify.
	if _, err := gitprobe.Probe(ctx, action.ToPath, gitProbeTimeout, nil); err != nil {
		return errs.Wrap(errs.Corrupted, fmt.Sprintf("post-move probe of %s failed", action.ToPath), err)
	}
	return nil
}

func applyArchive(ctx context.Context, store *index.Store, action *index.PlanAction) error {
	return store.AddTag(ctx, action.NodeID, "archived")
}

func applyTag(ctx context.Context, store *index.Store, action *index.PlanAction) error {
	var tags []string
	if action.TagsJSON != "" {
		_ = json.Unmarshal([]byte(action.TagsJSON), &tags)
	}
	for _, t := range tags {
		if err := store.AddTag(ctx, action.NodeID, t); err != nil {
			return err
		}
	}
	return nil
}

// moveDir renames when source and destination share a filesystem, or
// copies then deletes when they don't (spec §4.6 Execute step).
func moveDir(from, to string) error {
	if sameFilesystem(from, to) {
		if err := os.Rename(from, to); err == nil {
			return nil
		}
	}
	if err := copyDir(from, to); err != nil {
		return err
	}
	return os.RemoveAll(from)
}

func sameFilesystem(a, b string) bool {
	devA, errA := fsutil.DeviceOf(filepath.Dir(a))
	devB, errB := fsutil.DeviceOf(parentOrSelf(filepath.Dir(b)))
	return errA == nil && errB == nil && devA == devB
}

func parentOrSelf(dir string) string {
	if _, err := os.Stat(dir); err == nil {
		return dir
	}
	return filepath.Dir(dir)
}

func copyDir(from, to string) error {
	return filepath.Walk(from, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(from, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(to, rel)
		if info.IsDir() {
			return os.MkdirAll(dest, info.Mode())
		}
		return copyFile(path, dest, info.Mode())
	})
}

func copyFile(from, to string, mode os.FileMode) error {
	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(to, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// rollback reverses every successfully applied action in reverse order,
// moving repos back and restoring index state (spec §4.6 Verify step).
func rollback(ctx context.Context, store *index.Store, applied []*index.PlanAction, result *ApplyResult, cause error) error {
	for i := len(applied) - 1; i >= 0; i-- {
		a := applied[i]
		if a.Kind != index.ActionMove {
			continue
		}
		if err := moveDir(a.ToPath, a.FromPath); err != nil {
			return fmt.Errorf("rollback of %s failed: %w (original failure: %v)", a.ToPath, err, cause)
		}
		if err := store.Rebind(ctx, a.NodeID, a.FromPath); err != nil {
			return fmt.Errorf("rollback index rebind failed: %w (original failure: %v)", err, cause)
		}
		_ = store.SetActionResult(ctx, a.ID, "rolled-back", "")
		result.RolledBack = append(result.RolledBack, a.ID)
	}
	return cause
}

// scanDependencyImpact reports every indexed repo whose manifest files
// mention oldPath, advisory-only per spec §4.6 ("Rewriting references is
// out of scope for the plan").
func scanDependencyImpact(ctx context.Context, store *index.Store, oldPath string) []string {
	nodes, err := store.AllNodes(ctx)
	if err != nil {
		return nil
	}
	var impacted []string
	for _, n := range nodes {
		if n.Path == oldPath {
			continue
		}
		for _, manifest := range manifestFileNames {
			data, err := os.ReadFile(filepath.Join(n.Path, manifest))
			if err != nil {
				continue
			}
			if strings.Contains(string(data), oldPath) {
				impacted = append(impacted, n.Path)
				break
			}
		}
	}
	return impacted
}

var manifestFileNames = []string{"go.mod", "package.json", "requirements.txt", "Gemfile", "Cargo.toml"}
