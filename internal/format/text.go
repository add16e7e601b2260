package format

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// catLabels is the display.cat_mode cosmetic relabeling table (spec.md
// §6.1, SPEC_FULL.md §12): purely presentational, never read back by the
// Permission Gate.
var catLabels = map[string]string{
	"readonly": "kitten",
	"fetch":    "housecat",
	"commit":   "tomcat",
	"force":    "bobcat",
	"unsafe":   "tiger",
}

var tagStyles = map[Tag]lipgloss.Style{
	ScanComplete: lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
	Listing:      lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	Status:       lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	Deps:         lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	Related:      lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	PlanReady:    lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	PlanApplied:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
	Moved:        lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	Executed:     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	Blocked:      lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
	Warning:      lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	Error:        lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	Batch:        lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
}

// TextWriter renders Responses in the uniform "[tag] summary / details /
// hints" shape shared by the CLI and agent surfaces (spec.md §4.8). Color is
// the CLI-only presentation boundary: the agent surface always constructs
// one with color disabled, since its stdout carries protocol frames only.
type TextWriter struct {
	out     io.Writer
	color   bool
	catMode bool
}

// NewTextWriter builds a writer. Pass forceColor true only from a CLI
// command that has already verified out is a terminal via IsTerminal.
func NewTextWriter(out io.Writer, forceColor, catMode bool) *TextWriter {
	return &TextWriter{out: out, color: forceColor, catMode: catMode}
}

// IsTerminal reports whether fd (e.g. os.Stdout.Fd()) is attached to a TTY,
// the boundary gating whether the CLI formatter colorizes its output.
func IsTerminal(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

func (w *TextWriter) relabel(level string) string {
	if !w.catMode {
		return level
	}
	if label, ok := catLabels[level]; ok {
		return label
	}
	return level
}

// Write renders one response. Every line after the tag is deliberately
// one-per-line, per spec.md §4.8.
func (w *TextWriter) Write(r *Response) error {
	tag := fmt.Sprintf("[%s]", r.Tag)
	if w.color {
		if style, ok := tagStyles[r.Tag]; ok {
			tag = style.Render(tag)
		}
	}
	if _, err := fmt.Fprintf(w.out, "%s %s\n", tag, r.relabelSummary(w)); err != nil {
		return err
	}
	for _, d := range r.Details {
		if _, err := fmt.Fprintf(w.out, "%s\n", d); err != nil {
			return err
		}
	}
	if r.Next != "" {
		if _, err := fmt.Fprintf(w.out, "→ next: %s\n", r.Next); err != nil {
			return err
		}
	}
	if r.AskUser != "" {
		if _, err := fmt.Fprintf(w.out, "? ask user: %s\n", r.AskUser); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch renders each sub-response separated by a short delimiter, per
// spec.md §4.8's read-only batch tool.
func (w *TextWriter) WriteBatch(responses []*Response) error {
	for i, r := range responses {
		if i > 0 {
			if _, err := fmt.Fprintln(w.out, "---"); err != nil {
				return err
			}
		}
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// relabelSummary cosmetically substitutes a bare permission-level word
// inside a summary line when cat_mode is on (e.g. "requires commit" ->
// "requires tomcat"). Structural details (rule names, paths) are untouched.
func (r *Response) relabelSummary(w *TextWriter) string {
	if !w.catMode {
		return r.Summary
	}
	s := r.Summary
	for level, label := range catLabels {
		s = replaceWord(s, level, label)
	}
	return s
}
