package surface

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kissa/kissa/internal/format"
	"github.com/kissa/kissa/internal/gitprobe"
	"github.com/kissa/kissa/internal/permission"
)

// Exec is the single passthrough boundary to a system git binary (spec.md
// §6's "Passthrough boundary"): always invoked via an argument vector,
// never a shell, and always behind a permission check gated on the
// operation's inferred minimum level.
func (c *Core) Exec(ctx context.Context, path string, args []string, surface permission.Surface) (*format.Response, error) {
	minimum := execMinimumLevel(args)
	if err := c.Gate.Check(path, minimum, surface); err != nil {
		return format.FromError(err), nil
	}

	if isForcePush(args) {
		branch := forcePushBranch(args)
		if err := c.Gate.CheckForcePush(branch, false); err != nil {
			return format.FromError(err), nil
		}
	}

	if isRecursiveClean(args) {
		untracked, err := gitprobe.UntrackedFiles(path)
		if err != nil {
			return nil, err
		}
		if err := c.Gate.CheckRecursiveClean(untracked, false); err != nil {
			return format.FromError(err), nil
		}
	}

	if _, err := exec.LookPath("git"); err != nil {
		return format.New(format.Warning, "no system git binary found on PATH; exec is unavailable"), nil
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = path
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return format.New(format.Error, fmt.Sprintf("git %v exited %d", args, exitErr.ExitCode())).
				WithDetails(stderr.String()), nil
		}
		return nil, err
	}

	return format.New(format.Executed, fmt.Sprintf("git %v", args)).WithDetails(stdout.String()), nil
}

// execMinimumLevel infers the permission minimum an arbitrary git
// passthrough command needs, per spec §4.7's per-operation minimum-level
// tag: read commands need nothing beyond readonly, anything that writes
// to the remote needs fetch/commit, and a forced rewrite needs force.
func execMinimumLevel(args []string) permission.Level {
	if len(args) == 0 {
		return permission.LevelReadonly
	}
	switch args[0] {
	case "fetch", "pull":
		return permission.LevelFetch
	case "push":
		if isForcePush(args) {
			return permission.LevelForce
		}
		return permission.LevelCommit
	case "commit", "merge", "rebase", "cherry-pick", "reset", "checkout", "branch", "tag":
		return permission.LevelCommit
	case "clean":
		return permission.LevelForce
	default:
		return permission.LevelReadonly
	}
}

func isForcePush(args []string) bool {
	if len(args) == 0 || args[0] != "push" {
		return false
	}
	for _, a := range args[1:] {
		if a == "--force" || a == "-f" || a == "--force-with-lease" {
			return true
		}
	}
	return false
}

// isRecursiveClean reports whether args invoke `git clean` with a flag
// that actually removes untracked files (-f or --force); a dry-run clean
// (e.g. `git clean -n`) never deletes anything and needs no guard rail.
func isRecursiveClean(args []string) bool {
	if len(args) == 0 || args[0] != "clean" {
		return false
	}
	for _, a := range args[1:] {
		if a == "-f" || a == "--force" || strings.HasPrefix(a, "-") && strings.Contains(a, "f") && !strings.HasPrefix(a, "--") {
			return true
		}
	}
	return false
}

func forcePushBranch(args []string) string {
	for _, a := range args[1:] {
		if a != "" && a[0] != '-' {
			return a
		}
	}
	return ""
}
