package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	bolt "go.etcd.io/bbolt"

	"github.com/kissa/kissa/internal/index"
)

var pendingRemovalsBucket = []byte("pending_removals")

// Watcher is the T3 tier: an fsnotify subscription over configured scan
// roots that reconciles repo moves within a short correlation window
// instead of reporting a delete immediately followed by an unrelated
// create (spec.md §4.2 T3). The correlation window is held in a bbolt file
// rather than in memory so a kissa process restart mid-window still
// resolves a move correctly.
type Watcher struct {
	scanner *Scanner
	fsw     *fsnotify.Watcher
	db      *bolt.DB
	window  time.Duration
}

type pendingRemoval struct {
	NodeID    int64     `json:"node_id"`
	Path      string    `json:"path"`
	RemovedAt time.Time `json:"removed_at"`
}

// NewWatcher opens (creating if necessary) the move-correlation bbolt file
// at dbPath and subscribes to every configured scan root.
func NewWatcher(s *Scanner, dbPath string, window time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("open watch-correlation store: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(pendingRemovalsBucket)
		return err
	}); err != nil {
		db.Close()
		fsw.Close()
		return nil, err
	}

	w := &Watcher{scanner: s, fsw: fsw, db: db, window: window}

	for _, root := range s.cfg.Scan.Roots {
		if err := w.watchTree(root); err != nil {
			s.logger.WithError(err).WithField("root", root).Warn("failed to watch scan root")
		}
	}

	return w, nil
}

// watchTree subscribes fsnotify to dir itself; fsnotify has no native
// recursive mode and subdirectories of dir are not added here. onCreated
// adds the parent directory of each newly observed repo.
func (w *Watcher) watchTree(dir string) error {
	return w.fsw.Add(dir)
}

// Run processes fsnotify events until ctx is canceled. Rename/Remove
// events on a known repo path are held as a pendingRemoval for window;
// a Create within the window whose new path probes to the same remote
// set rebinds the node instead of creating a duplicate.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.scanner.logger.WithError(err).Warn("fsnotify error")
		case <-ticker.C:
			w.expireStale(ctx)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	switch {
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.onRemoved(ctx, ev.Name)
	case ev.Op&fsnotify.Create != 0:
		w.onCreated(ctx, ev.Name)
	}
}

func (w *Watcher) onRemoved(ctx context.Context, path string) {
	node, err := w.scanner.store.GetNodeByPath(ctx, path)
	if err != nil {
		return // not a known repo root, or already gone
	}
	rec := pendingRemoval{NodeID: node.ID, Path: path, RemovedAt: time.Now().UTC()}
	data, _ := json.Marshal(rec)
	_ = w.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pendingRemovalsBucket).Put([]byte(path), data)
	})
}

func (w *Watcher) onCreated(ctx context.Context, path string) {
	_ = w.watchTree(filepath.Dir(path))

	vitals, warning, err := w.scanner.buildNode(ctx, path, 0)
	if err != nil {
		return
	}
	if warning != "" {
		w.scanner.logger.WithField("path", path).Warn(warning)
	}

	var remoteURLs []string
	var remotes []index.Remote
	_ = json.Unmarshal([]byte(vitals.RemotesJSON), &remotes)
	for _, r := range remotes {
		remoteURLs = append(remoteURLs, r.URL)
	}

	if len(remoteURLs) > 0 {
		if matches, err := w.scanner.store.FindLostByRemotes(ctx, remoteURLs); err == nil && len(matches) > 0 {
			_ = w.scanner.store.Rebind(ctx, matches[0].ID, path)
			w.clearPending(matches[0].Path)
			return
		}
	}

	if err := w.scanner.store.UpsertNode(ctx, vitals); err != nil {
		w.scanner.logger.WithError(err).WithField("path", path).Error("index write failed during watch")
	}
}

func (w *Watcher) clearPending(path string) {
	_ = w.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pendingRemovalsBucket).Delete([]byte(path))
	})
}

// expireStale marks any pendingRemoval older than the correlation window
// as genuinely lost — no matching create arrived in time.
func (w *Watcher) expireStale(ctx context.Context) {
	var stale []pendingRemoval
	_ = w.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(pendingRemovalsBucket).ForEach(func(k, v []byte) error {
			var rec pendingRemoval
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil
			}
			if time.Since(rec.RemovedAt) > w.window {
				stale = append(stale, rec)
			}
			return nil
		})
	})
	for _, rec := range stale {
		if err := w.scanner.store.MarkLost(ctx, rec.Path); err != nil {
			w.scanner.logger.WithError(err).WithField("path", rec.Path).Warn("failed to mark lost after correlation window")
		}
		w.clearPending(rec.Path)
	}
}

// Close releases the fsnotify and bbolt handles.
func (w *Watcher) Close() error {
	ferr := w.fsw.Close()
	derr := w.db.Close()
	if ferr != nil {
		return ferr
	}
	return derr
}

// T4Refresh opportunistically refreshes a single node right before it's
// used by a read operation, per spec §4.2 T4 ("stat it again if the last
// verification is older than scan.auto_verify_seconds").
func (s *Scanner) T4Refresh(ctx context.Context, n *index.Node) (*index.Node, error) {
	maxAge := time.Duration(s.cfg.Scan.AutoVerifySeconds) * time.Second
	if maxAge <= 0 || time.Since(n.LastVerified) < maxAge {
		return n, nil
	}
	warning, err := s.refreshNode(ctx, n, n.ScanGeneration)
	if err != nil {
		return n, err
	}
	if warning != "" {
		s.logger.WithField("path", n.Path).Warn(warning)
	}
	return s.store.GetNodeByPath(ctx, n.Path)
}
