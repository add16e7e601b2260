package format

import (
	"bytes"
	"strings"
	"testing"
)

func TestTextWriterRendersTagSummaryAndDetails(t *testing.T) {
	var buf bytes.Buffer
	w := NewTextWriter(&buf, false, false)

	r := New(ScanComplete, "indexed 12 repos").
		WithDetails("3 new", "1 lost").
		WithNext("run `kissa list --lost` to review")

	if err := w.Write(r); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	got := buf.String()
	want := "[scan_complete] indexed 12 repos\n3 new\n1 lost\n→ next: run `kissa list --lost` to review\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTextWriterRendersAskUser(t *testing.T) {
	var buf bytes.Buffer
	w := NewTextWriter(&buf, false, false)

	r := New(Blocked, "repo has unpushed commits").WithAskUser("delete anyway?")
	if err := w.Write(r); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "? ask user: delete anyway?\n") {
		t.Errorf("expected an ask-user line, got %q", buf.String())
	}
}

func TestTextWriterCatModeRelabelsWholeWordsOnly(t *testing.T) {
	var buf bytes.Buffer
	w := NewTextWriter(&buf, false, true)

	r := New(Blocked, "requires force")
	if err := w.Write(r); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "requires bobcat") {
		t.Errorf("expected cat_mode to relabel force -> bobcat, got %q", buf.String())
	}

	buf.Reset()
	r = New(Blocked, "reinforces the rule")
	if err := w.Write(r); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if strings.Contains(buf.String(), "bobcat") {
		t.Errorf("cat_mode should only relabel the standalone word 'force', got %q", buf.String())
	}
}

func TestTextWriterBatchInsertsDelimiter(t *testing.T) {
	var buf bytes.Buffer
	w := NewTextWriter(&buf, false, false)

	err := w.WriteBatch([]*Response{
		New(Listing, "2 repos"),
		New(Status, "clean"),
	})
	if err != nil {
		t.Fatalf("WriteBatch returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "\n---\n") {
		t.Errorf("expected a delimiter between batch entries, got %q", buf.String())
	}
}
