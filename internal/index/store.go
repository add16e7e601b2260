package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/kissa/kissa/internal/errs"
)

// schemaVersion is bumped whenever migrations add a step. At open time the
// store compares the recorded version with len(migrations) (not with this
// constant) and applies any pending migrations in order before serving
// requests (spec.md §4.3).
const schemaVersion = 1

// Store is the Index Store: single SQLite file, WAL mode, one writer at a
// time enforced by SQLite's own locking, many concurrent readers.
type Store struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// Open opens (creating if necessary) the index database at path, applying
// pending schema migrations.
func Open(path string, logger *logrus.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_meta (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_meta: %w", err)
	}

	var current int
	err := s.db.Get(&current, `SELECT version FROM schema_meta LIMIT 1`)
	if err == sql.ErrNoRows {
		current = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	migrations := []string{migrationV1}
	for v := current; v < len(migrations); v++ {
		if _, err := s.db.Exec(migrations[v]); err != nil {
			return fmt.Errorf("apply migration v%d: %w", v+1, err)
		}
	}

	if current == 0 {
		_, err = s.db.Exec(`INSERT INTO schema_meta (version) VALUES (?)`, len(migrations))
	} else {
		_, err = s.db.Exec(`UPDATE schema_meta SET version = ?`, len(migrations))
	}
	if err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

const migrationV1 = `
CREATE TABLE IF NOT EXISTS nodes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL,
	name TEXT NOT NULL,
	remotes_json TEXT NOT NULL DEFAULT '[]',
	default_branch TEXT,
	current_branch TEXT,
	local_branch_count INTEGER NOT NULL DEFAULT 0,
	remote_branch_count INTEGER NOT NULL DEFAULT 0,
	merged_branch_count INTEGER NOT NULL DEFAULT 0,
	is_bare INTEGER NOT NULL DEFAULT 0,
	dirty INTEGER NOT NULL DEFAULT 0,
	staged INTEGER NOT NULL DEFAULT 0,
	untracked INTEGER NOT NULL DEFAULT 0,
	ahead INTEGER NOT NULL DEFAULT 0,
	behind INTEGER NOT NULL DEFAULT 0,
	last_commit DATETIME,
	languages_json TEXT NOT NULL DEFAULT '{}',
	working_tree_size INTEGER NOT NULL DEFAULT 0,
	has_enrichment INTEGER NOT NULL DEFAULT 0,
	category TEXT NOT NULL DEFAULT '',
	ownership TEXT NOT NULL DEFAULT '',
	intention TEXT NOT NULL DEFAULT '',
	managed_by TEXT NOT NULL DEFAULT '',
	confidence REAL NOT NULL DEFAULT 0,
	overrides_json TEXT NOT NULL DEFAULT '{}',
	lifecycle TEXT NOT NULL DEFAULT 'active',
	last_verified DATETIME,
	scan_generation INTEGER NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_nodes_path_active ON nodes(path) WHERE lifecycle != 'lost';
CREATE INDEX IF NOT EXISTS idx_nodes_lifecycle ON nodes(lifecycle);

CREATE TABLE IF NOT EXISTS edges (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_node_id INTEGER NOT NULL,
	target_node_id INTEGER NOT NULL,
	edge_type TEXT NOT NULL,
	metadata_json TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_node_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_node_id);

CREATE TABLE IF NOT EXISTS scans (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tier TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	finished_at DATETIME,
	nodes_seen INTEGER NOT NULL DEFAULT 0,
	nodes_lost INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS plans (
	id TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL,
	status TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS plan_actions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	plan_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	kind TEXT NOT NULL,
	node_id INTEGER NOT NULL,
	from_path TEXT NOT NULL DEFAULT '',
	to_path TEXT NOT NULL DEFAULT '',
	tags_json TEXT NOT NULL DEFAULT '[]',
	result TEXT NOT NULL DEFAULT '',
	result_error TEXT NOT NULL DEFAULT '',
	FOREIGN KEY (plan_id) REFERENCES plans(id)
);
CREATE INDEX IF NOT EXISTS idx_plan_actions_plan ON plan_actions(plan_id, seq);

CREATE TABLE IF NOT EXISTS tags (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	node_id INTEGER NOT NULL,
	label TEXT NOT NULL,
	UNIQUE(node_id, label)
);
CREATE INDEX IF NOT EXISTS idx_tags_node ON tags(node_id);

CREATE TABLE IF NOT EXISTS overrides (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path_glob TEXT NOT NULL,
	field TEXT NOT NULL,
	value TEXT NOT NULL,
	UNIQUE(path_glob, field)
);
`

// UpsertNode inserts a new node or updates the existing one at the same
// path, within one transaction per repo refresh (spec §4.3).
func (s *Store) UpsertNode(ctx context.Context, n *Node) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existingID int64
	err = tx.GetContext(ctx, &existingID, `SELECT id FROM nodes WHERE path = ? AND lifecycle != 'lost'`, n.Path)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.NamedExecContext(ctx, insertNodeSQL, n)
		if err != nil {
			return fmt.Errorf("insert node: %w", err)
		}
		id, _ := res.LastInsertId()
		n.ID = id
	case err != nil:
		return fmt.Errorf("lookup node: %w", err)
	default:
		n.ID = existingID
		if _, err := tx.NamedExecContext(ctx, updateNodeSQL, n); err != nil {
			return fmt.Errorf("update node: %w", err)
		}
	}
	return tx.Commit()
}

const insertNodeSQL = `
INSERT INTO nodes (
	path, name, remotes_json, default_branch, current_branch,
	local_branch_count, remote_branch_count, merged_branch_count, is_bare,
	dirty, staged, untracked, ahead, behind, last_commit,
	languages_json, working_tree_size, has_enrichment,
	category, ownership, intention, managed_by, confidence, overrides_json,
	lifecycle, last_verified, scan_generation
) VALUES (
	:path, :name, :remotes_json, :default_branch, :current_branch,
	:local_branch_count, :remote_branch_count, :merged_branch_count, :is_bare,
	:dirty, :staged, :untracked, :ahead, :behind, :last_commit,
	:languages_json, :working_tree_size, :has_enrichment,
	:category, :ownership, :intention, :managed_by, :confidence, :overrides_json,
	:lifecycle, :last_verified, :scan_generation
)`

const updateNodeSQL = `
UPDATE nodes SET
	name = :name, remotes_json = :remotes_json, default_branch = :default_branch,
	current_branch = :current_branch, local_branch_count = :local_branch_count,
	remote_branch_count = :remote_branch_count, merged_branch_count = :merged_branch_count,
	is_bare = :is_bare,
	dirty = :dirty, staged = :staged, untracked = :untracked, ahead = :ahead, behind = :behind,
	last_commit = :last_commit, languages_json = :languages_json,
	working_tree_size = :working_tree_size, has_enrichment = :has_enrichment,
	category = :category, ownership = :ownership, intention = :intention,
	managed_by = :managed_by, confidence = :confidence, overrides_json = :overrides_json,
	lifecycle = :lifecycle, last_verified = :last_verified, scan_generation = :scan_generation
WHERE id = :id`

// GetNode fetches a node by id.
func (s *Store) GetNode(ctx context.Context, id int64) (*Node, error) {
	var n Node
	err := s.db.GetContext(ctx, &n, `SELECT * FROM nodes WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, errs.New(errs.UnknownRepo, fmt.Sprintf("no node with id %d", id))
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// GetNodeByPath fetches a non-lost node by its absolute path.
func (s *Store) GetNodeByPath(ctx context.Context, path string) (*Node, error) {
	var n Node
	err := s.db.GetContext(ctx, &n, `SELECT * FROM nodes WHERE path = ? AND lifecycle != 'lost'`, path)
	if err == sql.ErrNoRows {
		return nil, errs.New(errs.UnknownRepo, fmt.Sprintf("no indexed repo at %s", path))
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// AllNodes returns every node, including lost ones, ordered by path.
func (s *Store) AllNodes(ctx context.Context) ([]*Node, error) {
	var nodes []*Node
	err := s.db.SelectContext(ctx, &nodes, `SELECT * FROM nodes ORDER BY path`)
	return nodes, err
}

// MarkLost flags the node at path as lost, iff it is
// not already lost (T1/T2 reconciliation).
func (s *Store) MarkLost(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE nodes SET lifecycle = 'lost' WHERE path = ? AND lifecycle != 'lost'`, path)
	return err
}

// MarkLostExcept marks every active node not present in seenPaths as lost;
// used at the end of a T2 full walk (spec §4.2).
func (s *Store) MarkLostExcept(ctx context.Context, seenPaths map[string]bool) (int, error) {
	nodes, err := s.AllNodes(ctx)
	if err != nil {
		return 0, err
	}
	lost := 0
	for _, n := range nodes {
		if n.Lifecycle == string(LifecycleLost) {
			continue
		}
		if !seenPaths[n.Path] {
			if err := s.MarkLost(ctx, n.Path); err != nil {
				return lost, err
			}
			lost++
		}
	}
	return lost, nil
}

// ForgetNode purges a node, its tags, and its edges entirely — the
// `forget` verb's effect. Unlike MarkLost, this does not preserve the
// node for later rebinding; it is a deliberate, explicit removal from the
// index, never triggered automatically by a scan.
func (s *Store) ForgetNode(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE source_node_id = ? OR target_node_id = ?`, id, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE node_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// Rebind updates a node's path in place, preserving id/tags/classification
// — used by the watch-correlated move reconciliation (spec §4.2 T3).
func (s *Store) Rebind(ctx context.Context, nodeID int64, newPath string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE nodes SET path = ?, lifecycle = 'active' WHERE id = ?`, newPath, nodeID)
	return err
}

// FindLostByRemotes returns lost nodes whose remote URL set intersects the
// given URLs, for the "same repo?" reconciliation suggestion (spec §4.2).
func (s *Store) FindLostByRemotes(ctx context.Context, urls []string) ([]*Node, error) {
	var nodes []*Node
	err := s.db.SelectContext(ctx, &nodes, `SELECT * FROM nodes WHERE lifecycle = 'lost'`)
	if err != nil {
		return nil, err
	}
	urlSet := make(map[string]bool, len(urls))
	for _, u := range urls {
		urlSet[u] = true
	}
	var matches []*Node
	for _, n := range nodes {
		var remotes []Remote
		_ = json.Unmarshal([]byte(n.RemotesJSON), &remotes)
		for _, r := range remotes {
			if urlSet[r.URL] {
				matches = append(matches, n)
				break
			}
		}
	}
	return matches, nil
}

// --- Edges ---

// UpsertEdge inserts an edge if an equivalent one (same source, target,
// type) doesn't already exist.
func (s *Store) UpsertEdge(ctx context.Context, e *Edge) error {
	var existing int64
	err := s.db.GetContext(ctx, &existing,
		`SELECT id FROM edges WHERE source_node_id = ? AND target_node_id = ? AND edge_type = ?`,
		e.SourceNodeID, e.TargetNodeID, e.EdgeType)
	if err == nil {
		e.ID = existing
		return nil
	}
	if err != sql.ErrNoRows {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO edges (source_node_id, target_node_id, edge_type, metadata_json) VALUES (?, ?, ?, ?)`,
		e.SourceNodeID, e.TargetNodeID, e.EdgeType, e.MetadataJSON)
	if err != nil {
		return err
	}
	e.ID, _ = res.LastInsertId()
	return nil
}

// EdgesFrom returns all edges with the given source node.
func (s *Store) EdgesFrom(ctx context.Context, nodeID int64) ([]*Edge, error) {
	var edges []*Edge
	err := s.db.SelectContext(ctx, &edges, `SELECT * FROM edges WHERE source_node_id = ?`, nodeID)
	return edges, err
}

// EdgesTo returns all edges with the given target node.
func (s *Store) EdgesTo(ctx context.Context, nodeID int64) ([]*Edge, error) {
	var edges []*Edge
	err := s.db.SelectContext(ctx, &edges, `SELECT * FROM edges WHERE target_node_id = ?`, nodeID)
	return edges, err
}

// EdgesTouching returns every edge with the given node as either endpoint
// (used by `related`, one-hop, any edge type — spec §4.5).
func (s *Store) EdgesTouching(ctx context.Context, nodeID int64) ([]*Edge, error) {
	var edges []*Edge
	err := s.db.SelectContext(ctx, &edges,
		`SELECT * FROM edges WHERE source_node_id = ? OR target_node_id = ?`, nodeID, nodeID)
	return edges, err
}

// AllEdges returns every stored edge, used by export.
func (s *Store) AllEdges(ctx context.Context) ([]*Edge, error) {
	var edges []*Edge
	err := s.db.SelectContext(ctx, &edges, `SELECT * FROM edges ORDER BY id`)
	return edges, err
}

// DeleteEdgesFor removes edges touching nodeID (used sparingly; edges
// normally survive a lost node per spec §3 Invariants — this is only for
// `forget`, which intentionally purges a node and its relationships).
func (s *Store) DeleteEdgesFor(ctx context.Context, nodeID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM edges WHERE source_node_id = ? OR target_node_id = ?`, nodeID, nodeID)
	return err
}

// --- Scans ---

// BeginScan records a new scan row and returns its generation id.
func (s *Store) BeginScan(ctx context.Context, tier string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO scans (tier, started_at) VALUES (?, ?)`, tier, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// FinishScan records completion stats for a scan generation.
func (s *Store) FinishScan(ctx context.Context, scanID int64, nodesSeen, nodesLost int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scans SET finished_at = ?, nodes_seen = ?, nodes_lost = ? WHERE id = ?`,
		time.Now().UTC(), nodesSeen, nodesLost, scanID)
	return err
}

// LastScan returns the most recently started scan, if any.
func (s *Store) LastScan(ctx context.Context) (*Scan, error) {
	var sc Scan
	err := s.db.GetContext(ctx, &sc, `SELECT * FROM scans ORDER BY id DESC LIMIT 1`)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &sc, err
}

// --- Plans ---

// CreatePlan persists a new plan and its ordered actions in one transaction.
func (s *Store) CreatePlan(ctx context.Context, plan *Plan, actions []*PlanAction) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO plans (id, created_at, status) VALUES (?, ?, ?)`,
		plan.ID, plan.CreatedAt, plan.Status); err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	for i, a := range actions {
		a.PlanID = plan.ID
		a.Seq = i
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO plan_actions (plan_id, seq, kind, node_id, from_path, to_path, tags_json, result, result_error)
			VALUES (:plan_id, :seq, :kind, :node_id, :from_path, :to_path, :tags_json, :result, :result_error)`, a); err != nil {
			return fmt.Errorf("insert plan action %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// GetPlan fetches a plan and its actions in seq order.
func (s *Store) GetPlan(ctx context.Context, id string) (*Plan, []*PlanAction, error) {
	var plan Plan
	if err := s.db.GetContext(ctx, &plan, `SELECT * FROM plans WHERE id = ?`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, errs.New(errs.UnknownRepo, fmt.Sprintf("no plan %q", id))
		}
		return nil, nil, err
	}
	var actions []*PlanAction
	if err := s.db.SelectContext(ctx, &actions, `SELECT * FROM plan_actions WHERE plan_id = ? ORDER BY seq`, id); err != nil {
		return nil, nil, err
	}
	return &plan, actions, nil
}

// SetPlanStatus updates a plan's status (monotonic per spec §3 Invariants;
// callers are responsible for only calling this along a legal transition).
func (s *Store) SetPlanStatus(ctx context.Context, id string, status PlanStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE plans SET status = ? WHERE id = ?`, status, id)
	return err
}

// SetActionResult records the outcome of one plan action.
func (s *Store) SetActionResult(ctx context.Context, actionID int64, result, resultErr string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE plan_actions SET result = ?, result_error = ? WHERE id = ?`, result, resultErr, actionID)
	return err
}

// --- Tags ---

func (s *Store) AddTag(ctx context.Context, nodeID int64, label string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO tags (node_id, label) VALUES (?, ?)`, nodeID, label)
	return err
}

func (s *Store) TagsFor(ctx context.Context, nodeID int64) ([]string, error) {
	var labels []string
	err := s.db.SelectContext(ctx, &labels, `SELECT label FROM tags WHERE node_id = ? ORDER BY label`, nodeID)
	return labels, err
}

// --- Overrides ---

func (s *Store) SetOverride(ctx context.Context, pathGlob, field, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO overrides (path_glob, field, value) VALUES (?, ?, ?)
		 ON CONFLICT(path_glob, field) DO UPDATE SET value = excluded.value`,
		pathGlob, field, value)
	return err
}

func (s *Store) Overrides(ctx context.Context) ([]*Override, error) {
	var overrides []*Override
	err := s.db.SelectContext(ctx, &overrides, `SELECT * FROM overrides`)
	return overrides, err
}
