package config

import (
	"fmt"
	"path/filepath"

	"github.com/kissa/kissa/internal/errs"
)

// ValidationResult accumulates errors and warnings the way the teacher's
// config validator does, so callers can decide whether to report warnings
// without treating them as fatal.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks invariants the rest of kissa assumes hold: scan roots are
// absolute, the organization pattern is a known value, no mount is in both
// allow_mounts and block_mounts, safety.max_plan_size is positive, and
// defaults.difficulty names a permission level. Configuration errors are
// fatal at startup only (spec §7) — every violation found is listed in the
// single ConfigInvalid error that Load returns directly.
func Validate(cfg *Config) error {
	result := &ValidationResult{Valid: true}

	for _, root := range cfg.Scan.Roots {
		if !filepath.IsAbs(root) {
			result.AddError("scan.roots entry %q must be an absolute path", root)
		}
	}

	switch cfg.Organization.Pattern {
	case "", PatternPlatform, PatternRole, PatternProject, PatternHybrid:
	default:
		result.AddError("organization.pattern %q is not one of platform|role|project|hybrid", cfg.Organization.Pattern)
	}

	for _, mount := range cfg.Scan.Boundaries.AllowMounts {
		for _, blocked := range cfg.Scan.Boundaries.BlockMounts {
			if mount == blocked {
				result.AddError("mount %q appears in both allow_mounts and block_mounts", mount)
			}
		}
	}

	if cfg.Safety.MaxPlanSize <= 0 {
		result.AddError("safety.max_plan_size must be positive, got %d", cfg.Safety.MaxPlanSize)
	}

	switch cfg.Defaults.Difficulty {
	case "", "readonly", "fetch", "commit", "force", "unsafe":
	default:
		result.AddError("defaults.difficulty %q is not a recognized permission level", cfg.Defaults.Difficulty)
	}

	if !result.Valid {
		return errs.New(errs.ConfigInvalid, fmt.Sprintf("invalid configuration: %v", result.Errors))
	}
	return nil
}
