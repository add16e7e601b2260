package format

import (
	"bufio"
	"encoding/json"
	"io"
)

// StructuredMode selects how StructuredWriter renders a batch of records.
// This is the CLI's --json pipeline path (spec.md §4.8's "structured
// output mode"); the agent surface never constructs one of these.
type StructuredMode int

const (
	// ModeLines emits one JSON object per record, newline-delimited.
	ModeLines StructuredMode = iota
	// ModeArray emits a single JSON array of all records.
	ModeArray
)

// StructuredWriter emits machine-readable projections of Responses for
// pipeline consumers, deliberately bypassing the state-tag text format.
type StructuredWriter struct {
	out  *bufio.Writer
	mode StructuredMode
	enc  *json.Encoder
}

func NewStructuredWriter(out io.Writer, mode StructuredMode) *StructuredWriter {
	bw := bufio.NewWriter(out)
	return &StructuredWriter{out: bw, mode: mode, enc: json.NewEncoder(bw)}
}

type record struct {
	Tag     Tag                      `json:"tag"`
	Summary string                   `json:"summary"`
	Details []string                 `json:"details,omitempty"`
	Next    string                   `json:"next,omitempty"`
	AskUser string                   `json:"ask_user,omitempty"`
	Records []map[string]interface{} `json:"records,omitempty"`
}

func toRecord(r *Response) record {
	return record{
		Tag: r.Tag, Summary: r.Summary, Details: r.Details,
		Next: r.Next, AskUser: r.AskUser, Records: r.Records,
	}
}

// WriteAll renders responses per the writer's mode and flushes.
func (w *StructuredWriter) WriteAll(responses []*Response) error {
	switch w.mode {
	case ModeArray:
		records := make([]record, len(responses))
		for i, r := range responses {
			records[i] = toRecord(r)
		}
		if err := w.enc.Encode(records); err != nil {
			return err
		}
	default: // ModeLines
		for _, r := range responses {
			if err := w.enc.Encode(toRecord(r)); err != nil {
				return err
			}
		}
	}
	return w.out.Flush()
}

// WritePaths emits a null-delimited list of paths, matching the
// find-0/xargs-0 convention so downstream shell pipelines never need to
// guess about embedded whitespace in repo paths.
func WritePaths(out io.Writer, paths []string) error {
	bw := bufio.NewWriter(out)
	for _, p := range paths {
		if _, err := bw.WriteString(p); err != nil {
			return err
		}
		if err := bw.WriteByte(0); err != nil {
			return err
		}
	}
	return bw.Flush()
}
