// Package permission implements the five-level Permission Gate of
// spec.md §4.7, including the unconditional guard rails that apply above
// every level.
package permission

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kissa/kissa/internal/config"
	"github.com/kissa/kissa/internal/errs"
)

// Level is one of the five strictly-ordered permission levels.
type Level int

const (
	LevelReadonly Level = iota
	LevelFetch
	LevelCommit
	LevelForce
	LevelUnsafe
)

func (l Level) String() string {
	switch l {
	case LevelReadonly:
		return "readonly"
	case LevelFetch:
		return "fetch"
	case LevelCommit:
		return "commit"
	case LevelForce:
		return "force"
	case LevelUnsafe:
		return "unsafe"
	default:
		return "unknown"
	}
}

// ParseLevel parses the configuration/override string form of a level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "readonly":
		return LevelReadonly, nil
	case "fetch":
		return LevelFetch, nil
	case "commit":
		return LevelCommit, nil
	case "force":
		return LevelForce, nil
	case "unsafe":
		return LevelUnsafe, nil
	default:
		return 0, fmt.Errorf("unrecognized permission level %q", s)
	}
}

// Surface identifies which default applies when no per-repo override is set.
type Surface int

const (
	SurfaceCLI Surface = iota
	SurfaceAgent
)

// override is one configured path-glob -> level entry (spec §6.1:
// "map of path-glob to difficulty level").
type override struct {
	glob  string
	level Level
}

// Gate evaluates whether an operation may proceed against a specific repo.
type Gate struct {
	scanRoots         []string
	overrides         []override
	protectedBranches []string
	cliDefault        Level
	agentDefault      Level
}

// New builds a Gate from configuration, parsing cfg.Overrides (a
// path-glob -> level-name map, §6.1) into typed Levels.
func New(cfg *config.Config) (*Gate, error) {
	cliDefault, err := ParseLevel(cfg.Defaults.Difficulty)
	if err != nil {
		return nil, errs.Wrap(errs.ConfigInvalid, "defaults.difficulty", err)
	}
	agentDefault, err := ParseLevel(cfg.Defaults.MCPDifficulty)
	if err != nil {
		return nil, errs.Wrap(errs.ConfigInvalid, "defaults.mcp_difficulty", err)
	}

	overrides := make([]override, 0, len(cfg.Overrides))
	for glob, levelName := range cfg.Overrides {
		lvl, err := ParseLevel(levelName)
		if err != nil {
			return nil, errs.Wrap(errs.ConfigInvalid, fmt.Sprintf("overrides[%q]", glob), err)
		}
		overrides = append(overrides, override{glob: glob, level: lvl})
	}
	sort.Slice(overrides, func(i, j int) bool { return overrides[i].glob < overrides[j].glob })

	return &Gate{
		scanRoots:         cfg.Scan.Roots,
		overrides:         overrides,
		protectedBranches: cfg.Safety.ProtectedBranches,
		cliDefault:        cliDefault,
		agentDefault:      agentDefault,
	}, nil
}

// EffectiveLevel is the level of the first configured override glob that
// matches repoPath, else the invoking surface's configured default.
// Overrides are glob patterns (e.g. "/home/user/work/*"), matched the same
// way IsProtectedBranch matches protected_branches.
func (g *Gate) EffectiveLevel(repoPath string, surface Surface) Level {
	for _, o := range g.overrides {
		if ok, _ := filepath.Match(o.glob, repoPath); ok {
			return o.level
		}
	}
	if surface == SurfaceAgent {
		return g.agentDefault
	}
	return g.cliDefault
}

// Check rejects an operation whose minimum level exceeds the effective
// level for repoPath, or that targets a path outside every scan root
// (spec §4.7's unconditional "operation outside scan roots is rejected"
// guard rail, checked first since no level can ever permit it).
func (g *Gate) Check(repoPath string, minimum Level, surface Surface) error {
	if !g.withinScanRoots(repoPath) {
		return errs.New(errs.PermissionDenied, fmt.Sprintf("%s is outside the configured scan roots", repoPath)).
			WithContext("rule", "scan_root_boundary")
	}

	effective := g.EffectiveLevel(repoPath, surface)
	if minimum > effective {
		return errs.PermissionDeniedErr(
			fmt.Sprintf("operation requires %s, repo %s is at %s", minimum, repoPath, effective),
			minimum.String())
	}
	return nil
}

func (g *Gate) withinScanRoots(repoPath string) bool {
	for _, root := range g.scanRoots {
		rel, err := filepath.Rel(root, repoPath)
		if err == nil && !strings.HasPrefix(rel, "..") {
			return true
		}
	}
	return false
}

// IsProtectedBranch reports whether branch matches any of the configured
// protected_branches globs.
func (g *Gate) IsProtectedBranch(branch string) bool {
	for _, pattern := range g.protectedBranches {
		if ok, _ := filepath.Match(pattern, branch); ok {
			return true
		}
	}
	return false
}
