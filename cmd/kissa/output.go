package main

import (
	"os"

	"github.com/kissa/kissa/internal/format"
)

// render writes one response through the flag-selected projection:
// --json for the structured pipeline form, text (cat_mode-aware,
// color-gated on a real TTY) otherwise.
func render(r *format.Response) error {
	if jsonOut {
		return format.NewStructuredWriter(os.Stdout, format.ModeLines).WriteAll([]*format.Response{r})
	}
	isTTY := format.IsTerminal(os.Stdout.Fd())
	return format.NewTextWriter(os.Stdout, isTTY, cfg.Display.CatMode).Write(r)
}
