package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestStructuredWriterLinesMode(t *testing.T) {
	var buf bytes.Buffer
	w := NewStructuredWriter(&buf, ModeLines)

	err := w.WriteAll([]*Response{
		New(Listing, "repo a"),
		New(Listing, "repo b"),
	})
	if err != nil {
		t.Fatalf("WriteAll returned error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %v", len(lines), lines)
	}
	var rec record
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("line 0 is not valid JSON: %v", err)
	}
	if rec.Summary != "repo a" {
		t.Errorf("Summary = %q, want %q", rec.Summary, "repo a")
	}
}

func TestStructuredWriterArrayMode(t *testing.T) {
	var buf bytes.Buffer
	w := NewStructuredWriter(&buf, ModeArray)

	err := w.WriteAll([]*Response{New(Status, "clean")})
	if err != nil {
		t.Fatalf("WriteAll returned error: %v", err)
	}

	var records []record
	if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(records) != 1 || records[0].Summary != "clean" {
		t.Errorf("records = %v, want one record summary=clean", records)
	}
}

func TestWritePathsIsNullDelimited(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePaths(&buf, []string{"/a/b", "/c/d"}); err != nil {
		t.Fatalf("WritePaths returned error: %v", err)
	}
	want := "/a/b\x00/c/d\x00"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
