// Package config loads kissa's configuration from <config-dir>/kissa/config.toml
// (and KISSA_-prefixed environment overrides) via viper, once per process,
// matching the schema in spec.md §6.1. Viper's TOML backend (pelletier/go-toml)
// does the text parsing; this package only declares the shape and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// OrganizationPattern selects how the Planner's default path-templates read.
type OrganizationPattern string

const (
	PatternPlatform OrganizationPattern = "platform"
	PatternRole     OrganizationPattern = "role"
	PatternProject  OrganizationPattern = "project"
	PatternHybrid   OrganizationPattern = "hybrid"
)

// Rule is one ordered classify/organize rule, shared shape for both
// classify.rules and organization.rules (§4.4, §4.6).
type Rule struct {
	// Match criteria, AND-combined.
	PathGlob  string `mapstructure:"path_glob"`
	RemoteOrg string `mapstructure:"remote_org"`
	NameGlob  string `mapstructure:"name_glob"`
	HasRemote *bool  `mapstructure:"has_remote"`
	IsBare    *bool  `mapstructure:"is_bare"`

	// Settable fields (classify.rules).
	Category  string   `mapstructure:"category"`
	Ownership string   `mapstructure:"ownership"`
	Intention string   `mapstructure:"intention"`
	ManagedBy string   `mapstructure:"managed_by"`
	Tags      []string `mapstructure:"tags"`

	// path-template (organization.rules).
	PathTemplate string `mapstructure:"path_template"`
}

type ScanConfig struct {
	Roots             []string       `mapstructure:"roots"`
	Exclude           []string       `mapstructure:"exclude"`
	MaxDepth          int            `mapstructure:"max_depth"`
	AutoVerifySeconds int            `mapstructure:"auto_verify_seconds"`
	Boundaries        BoundaryConfig `mapstructure:"boundaries"`
}

type BoundaryConfig struct {
	CrossMounts   bool     `mapstructure:"cross_mounts"`
	AllowMounts   []string `mapstructure:"allow_mounts"`
	BlockMounts   []string `mapstructure:"block_mounts"`
	StatTimeoutMS int      `mapstructure:"stat_timeout_ms"`
}

type IdentityConfig struct {
	Usernames     []string          `mapstructure:"usernames"`
	WorkOrgs      map[string]string `mapstructure:"work_orgs"`
	CommunityOrgs []string          `mapstructure:"community_orgs"`
}

type OrganizationConfig struct {
	Pattern  OrganizationPattern `mapstructure:"pattern"`
	BasePath string              `mapstructure:"base_path"`
	Rules    []Rule              `mapstructure:"rules"`
}

type DefaultsConfig struct {
	Difficulty    string `mapstructure:"difficulty"`
	MCPDifficulty string `mapstructure:"mcp_difficulty"`
}

type SafetyConfig struct {
	ProtectedBranches            []string `mapstructure:"protected_branches"`
	AlwaysConfirmDestructive     bool     `mapstructure:"always_confirm_destructive"`
	MaxPlanSize                  int      `mapstructure:"max_plan_size"`
	MoveCorrelationWindowSeconds int      `mapstructure:"move_correlation_window_seconds"`
}

type DisplayConfig struct {
	CatMode bool `mapstructure:"cat_mode"`
}

// Config is the full schema of config.toml, §6.1.
type Config struct {
	Scan         ScanConfig         `mapstructure:"scan"`
	Identity     IdentityConfig     `mapstructure:"identity"`
	Organization OrganizationConfig `mapstructure:"organization"`
	Defaults     DefaultsConfig     `mapstructure:"defaults"`
	Overrides    map[string]string  `mapstructure:"overrides"`
	Safety       SafetyConfig       `mapstructure:"safety"`
	Classify     []Rule             `mapstructure:"classify"`
	Display      DisplayConfig      `mapstructure:"display"`

	// GitProbeTimeoutSeconds bounds every Git Probe call (§4.1, default 5s).
	GitProbeTimeoutSeconds int `mapstructure:"git_probe_timeout_seconds"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			MaxDepth:          6,
			AutoVerifySeconds: 3600,
			Boundaries: BoundaryConfig{
				CrossMounts:   false,
				StatTimeoutMS: 500,
			},
		},
		Organization: OrganizationConfig{
			Pattern:  PatternPlatform,
			BasePath: filepath.Join(mustHome(), "repos"),
		},
		Defaults: DefaultsConfig{
			Difficulty:    "commit",
			MCPDifficulty: "readonly",
		},
		Safety: SafetyConfig{
			ProtectedBranches:            []string{"main", "master", "production", "release/*"},
			MaxPlanSize:                  50,
			MoveCorrelationWindowSeconds: 5,
		},
		GitProbeTimeoutSeconds: 5,
	}
}

func mustHome() string {
	h, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return h
}

// ConfigDir returns <config-dir>/kissa per the XDG-style layout in spec §6.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "kissa")
	}
	return filepath.Join(mustHome(), ".config", "kissa")
}

// DataDir returns <data-dir>/kissa.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "kissa")
	}
	return filepath.Join(mustHome(), ".local", "share", "kissa")
}

// CacheDir returns <cache-dir>/kissa.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "kissa")
	}
	return filepath.Join(mustHome(), ".cache", "kissa")
}

// Load reads config.toml from path (or the default location when path is
// empty), overlays KISSA_-prefixed environment variables, and validates the
// result. Configuration errors are fatal at process startup only (spec §7);
// callers at cmd/ entrypoints should treat a non-nil error as terminal.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(ConfigDir())
	}

	v.SetEnvPrefix("KISSA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No config file: defaults + env overlay only.
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
