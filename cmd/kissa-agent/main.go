package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kissa/kissa/internal/agent"
	"github.com/kissa/kissa/internal/config"
	"github.com/kissa/kissa/internal/index"
	"github.com/kissa/kissa/internal/logging"
	"github.com/kissa/kissa/internal/surface"
)

func main() {
	logger := logging.New(logging.Agent, false, os.Stderr)

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(3)
	}

	dbPath := filepath.Join(config.DataDir(), "index.db")
	store, err := index.Open(dbPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening index: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	core, err := surface.New(cfg, store, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wiring core: %v\n", err)
		os.Exit(1)
	}

	h := agent.NewHandler()
	agent.RegisterTools(h, core)
	agent.RegisterResources(h, core)

	transport := agent.NewStdioTransport(os.Stdin, os.Stdout, h)
	if err := transport.Serve(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "agent transport stopped: %v\n", err)
		os.Exit(1)
	}
}
