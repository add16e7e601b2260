// Package index is kissa's Index Store: a single-file, crash-safe,
// concurrent-read/single-writer store of repo nodes, edges, scans, plans,
// tags and overrides (spec.md §3, §4.3), backed by SQLite in WAL mode —
// grounded on the teacher's internal/storage/sqlite.go.
package index

import "time"

// Category is the "what is it" classification axis.
type Category string

const (
	CategoryOrigin Category = "origin"
	CategoryClone  Category = "clone"
	CategoryFork   Category = "fork"
	CategoryMirror Category = "mirror"
)

// Intention is the "why kept" classification axis.
type Intention string

const (
	IntentionDeveloping    Intention = "developing"
	IntentionContributing  Intention = "contributing"
	IntentionReference     Intention = "reference"
	IntentionDependency    Intention = "dependency"
	IntentionDotfiles      Intention = "dotfiles"
	IntentionInfrastructure Intention = "infrastructure"
	IntentionExperiment    Intention = "experiment"
	IntentionArchived      Intention = "archived"
)

// Lifecycle describes whether a node's path is currently reachable.
type Lifecycle string

const (
	LifecycleActive  Lifecycle = "active"
	LifecycleLost    Lifecycle = "lost"
	LifecycleTimeout Lifecycle = "timeout"
)

// Freshness tiers, computed at query time from LastCommit — never stored.
type Freshness string

const (
	FreshnessActive  Freshness = "active"
	FreshnessRecent  Freshness = "recent"
	FreshnessStale   Freshness = "stale"
	FreshnessDormant Freshness = "dormant"
	FreshnessAncient Freshness = "ancient"
)

// ComputeFreshness is a pure function of lastCommit and now (spec §3 Invariants,
// §8: "freshness(N) is a pure function of last_commit(N) and current time").
// A zero lastCommit (no commits yet) is defined as ancient per spec §9's Open
// Question resolution.
func ComputeFreshness(lastCommit, now time.Time) Freshness {
	if lastCommit.IsZero() {
		return FreshnessAncient
	}
	age := now.Sub(lastCommit)
	switch {
	case age <= 7*24*time.Hour:
		return FreshnessActive
	case age <= 30*24*time.Hour:
		return FreshnessRecent
	case age <= 90*24*time.Hour:
		return FreshnessStale
	case age <= 365*24*time.Hour:
		return FreshnessDormant
	default:
		return FreshnessAncient
	}
}

// Remote is one (name, URL) pair, stored JSON-encoded on the node row.
type Remote struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Overrides records which classification fields a user has pinned.
type Overrides struct {
	Category  bool `json:"category"`
	Ownership bool `json:"ownership"`
	Intention bool `json:"intention"`
	ManagedBy bool `json:"managed_by"`
}

// Node is the Repo node of spec.md §3.
type Node struct {
	ID   int64  `db:"id" json:"id"`
	Path string `db:"path" json:"path"`
	Name string `db:"name" json:"name"`

	RemotesJSON       string `db:"remotes_json" json:"-"`
	DefaultBranch     string `db:"default_branch" json:"default_branch"`
	CurrentBranch     string `db:"current_branch" json:"current_branch"`
	LocalBranchCount  int    `db:"local_branch_count" json:"local_branch_count"`
	RemoteBranchCount int    `db:"remote_branch_count" json:"remote_branch_count"`
	MergedBranchCount int    `db:"merged_branch_count" json:"merged_branch_count"`
	IsBare            bool   `db:"is_bare" json:"is_bare"`
	Dirty             bool   `db:"dirty" json:"dirty"`
	Staged            bool   `db:"staged" json:"staged"`
	Untracked         bool   `db:"untracked" json:"untracked"`
	Ahead             int    `db:"ahead" json:"ahead"`
	Behind            int    `db:"behind" json:"behind"`
	LastCommit        time.Time `db:"last_commit" json:"last_commit"`

	LanguagesJSON   string `db:"languages_json" json:"-"`
	WorkingTreeSize int64  `db:"working_tree_size" json:"working_tree_size"`
	HasEnrichment   bool   `db:"has_enrichment" json:"has_enrichment"`

	Category  string `db:"category" json:"category"`
	Ownership string `db:"ownership" json:"ownership"`
	Intention string `db:"intention" json:"intention"`
	ManagedBy string `db:"managed_by" json:"managed_by"`
	Confidence float64 `db:"confidence" json:"confidence"`
	OverridesJSON string `db:"overrides_json" json:"-"`

	Lifecycle string `db:"lifecycle" json:"lifecycle"`

	LastVerified  time.Time `db:"last_verified" json:"last_verified"`
	ScanGeneration int64     `db:"scan_generation" json:"scan_generation"`
}

// EdgeType enumerates the directed relationship kinds of spec.md §3.
type EdgeType string

const (
	EdgeSubmodule EdgeType = "SUBMODULE"
	EdgeNested    EdgeType = "NESTED"
	EdgeSibling   EdgeType = "SIBLING"
	EdgeDependsOn EdgeType = "DEPENDS_ON"
	EdgeForkOf    EdgeType = "FORK_OF"
	EdgeDuplicate EdgeType = "DUPLICATE"
)

// Edge is a directed, typed relationship between two nodes, referenced by
// node-id so it survives either endpoint going lost (spec §3 Invariants).
type Edge struct {
	ID           int64  `db:"id" json:"id"`
	SourceNodeID int64  `db:"source_node_id" json:"source_node_id"`
	TargetNodeID int64  `db:"target_node_id" json:"target_node_id"`
	EdgeType     string `db:"edge_type" json:"edge_type"`
	MetadataJSON string `db:"metadata_json" json:"-"`
}

// Scan describes a recorded scan generation.
type Scan struct {
	ID         int64     `db:"id" json:"id"`
	Tier       string    `db:"tier" json:"tier"`
	StartedAt  time.Time `db:"started_at" json:"started_at"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`
	NodesSeen  int       `db:"nodes_seen" json:"nodes_seen"`
	NodesLost  int       `db:"nodes_lost" json:"nodes_lost"`
}

// PlanStatus enumerates the Plan lifecycle of spec.md §3.
type PlanStatus string

const (
	PlanPending    PlanStatus = "pending"
	PlanApplied    PlanStatus = "applied"
	PlanFailed     PlanStatus = "failed"
	PlanRolledBack PlanStatus = "rolled-back"
)

// Plan is a named reorganization transaction.
type Plan struct {
	ID        string     `db:"id" json:"id"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	Status    PlanStatus `db:"status" json:"status"`
}

// ActionKind enumerates plan action kinds.
type ActionKind string

const (
	ActionMove    ActionKind = "move"
	ActionTag     ActionKind = "tag"
	ActionArchive ActionKind = "archive"
)

// PlanAction is one ordered step of a Plan.
type PlanAction struct {
	ID          int64      `db:"id" json:"id"`
	PlanID      string     `db:"plan_id" json:"plan_id"`
	Seq         int        `db:"seq" json:"seq"`
	Kind        ActionKind `db:"kind" json:"kind"`
	NodeID      int64      `db:"node_id" json:"node_id"`
	FromPath    string     `db:"from_path" json:"from_path"`
	ToPath      string     `db:"to_path" json:"to_path"`
	TagsJSON    string     `db:"tags_json" json:"-"`
	Result      string     `db:"result" json:"result"` // "", "ok", "failed", "rolled-back"
	ResultError string     `db:"result_error" json:"result_error"`
}

// Tag is a many-to-many user label on a node.
type Tag struct {
	ID     int64  `db:"id" json:"id"`
	NodeID int64  `db:"node_id" json:"node_id"`
	Label  string `db:"label" json:"label"`
}

// Override is a per-path classification or difficulty override.
type Override struct {
	ID        int64  `db:"id" json:"id"`
	PathGlob  string `db:"path_glob" json:"path_glob"`
	Field     string `db:"field" json:"field"` // e.g. "intention", "difficulty"
	Value     string `db:"value" json:"value"`
}
