// Package surface wires the core components (Index Store, Scanner,
// Classifier, graph Compiler, Planner, Permission Gate) into the single
// engine both the CLI and agent surfaces dispatch against (spec.md §6).
// The surfaces themselves live elsewhere: the cobra verbs in cmd/kissa and
// the JSON-RPC-over-stdio tool/resource handler in internal/agent.
package surface

import (
	"github.com/sirupsen/logrus"

	"github.com/kissa/kissa/internal/classify"
	"github.com/kissa/kissa/internal/config"
	"github.com/kissa/kissa/internal/graphmodel"
	"github.com/kissa/kissa/internal/index"
	"github.com/kissa/kissa/internal/permission"
	"github.com/kissa/kissa/internal/planner"
	"github.com/kissa/kissa/internal/scanner"
)

// Core is the shared engine. Both surfaces hold one and never touch the
// Index Store or filesystem directly.
type Core struct {
	Config     *config.Config
	Logger     *logrus.Logger
	Store      *index.Store
	Scanner    *scanner.Scanner
	Classifier *classify.Classifier
	Compiler   *graphmodel.Compiler
	Planner    *planner.Planner
	Gate       *permission.Gate
}

// New wires every component against one already-open store, matching the
// teacher's root command's PersistentPreRun: config loaded once, then
// every component constructed from it before any verb runs.
func New(cfg *config.Config, store *index.Store, logger *logrus.Logger) (*Core, error) {
	gate, err := permission.New(cfg)
	if err != nil {
		return nil, err
	}

	return &Core{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Scanner:    scanner.New(store, cfg, logger),
		Classifier: classify.New(cfg),
		Compiler:   graphmodel.NewCompiler(store),
		Planner:    planner.New(store, cfg.Safety.MaxPlanSize),
		Gate:       gate,
	}, nil
}
