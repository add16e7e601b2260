package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kissa/kissa/internal/config"
	"github.com/kissa/kissa/internal/errs"
	"github.com/kissa/kissa/internal/index"
	"github.com/kissa/kissa/internal/logging"
	"github.com/kissa/kissa/internal/surface"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile  string
	verbose  bool
	jsonOut  bool
	catMode  bool

	logger *logrus.Logger
	cfg    *config.Config
	store  *index.Store
	core   *surface.Core
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error onto spec.md §207's exit-code convention: 0
// success, 1 generic error, 2 permission-gate rejection, 3 config error,
// 4 not-found.
func exitCode(err error) int {
	e, ok := errs.As(err)
	if !ok {
		return 1
	}
	switch e.Kind {
	case errs.PermissionDenied:
		return 2
	case errs.ConfigInvalid:
		return 3
	case errs.UnknownRepo, errs.LostRepo:
		return 4
	default:
		return 1
	}
}

var rootCmd = &cobra.Command{
	Use:     "kissa",
	Short:   "kissa catalogues git repositories across a filesystem into a queryable graph",
	Long:    `kissa scans a filesystem for git repositories, classifies them, and proposes safe reorganizations.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.New(logging.CLI, verbose, os.Stderr)

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return errs.Wrap(errs.ConfigInvalid, "loading config", err)
		}
		if catMode {
			cfg.Display.CatMode = true
		}

		dbPath := filepath.Join(config.DataDir(), "index.db")
		store, err = index.Open(dbPath, logger)
		if err != nil {
			return fmt.Errorf("opening index: %w", err)
		}

		core, err = surface.New(cfg, store, logger)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store != nil {
			return store.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: <config-dir>/kissa/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "render structured JSON instead of text")
	rootCmd.PersistentFlags().BoolVar(&catMode, "cat-mode", false, "relabel permission levels using the cat naming scheme")

	rootCmd.SetVersionTemplate(`kissa {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(freshnessCmd)
	rootCmd.AddCommand(relatedCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(organizeCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(initDotKissaCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(forgetCmd)
}
