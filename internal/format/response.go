// Package format renders the uniform surface-facing response shape: a
// leading state tag, a summary line, detail lines, and optional trailing
// hints, plus a separate structured (JSON/path-list) projection for
// pipeline consumers.
package format

import "github.com/kissa/kissa/internal/errs"

// Tag identifies a response's class. Every response belongs to exactly one.
type Tag string

const (
	ScanComplete Tag = "scan_complete"
	Listing      Tag = "listing"
	Status       Tag = "status"
	Deps         Tag = "deps"
	Related      Tag = "related"
	PlanReady    Tag = "plan_ready"
	PlanApplied  Tag = "plan_applied"
	Moved        Tag = "moved"
	Executed     Tag = "executed"
	Blocked      Tag = "blocked"
	Warning      Tag = "warning"
	Error        Tag = "error"
	Batch        Tag = "batch"
)

// Response is one surface-facing result.
type Response struct {
	Tag     Tag
	Summary string
	Details []string
	Next    string
	AskUser string

	// Records, when set, is carried alongside Details for the structured
	// (JSON) projection; the text projection ignores it in favor of Details.
	Records []map[string]interface{}
}

// New builds a bare response of the given tag and summary.
func New(tag Tag, summary string) *Response {
	return &Response{Tag: tag, Summary: summary}
}

func (r *Response) WithDetails(details ...string) *Response {
	r.Details = append(r.Details, details...)
	return r
}

func (r *Response) WithNext(next string) *Response {
	r.Next = next
	return r
}

func (r *Response) WithAskUser(question string) *Response {
	r.AskUser = question
	return r
}

func (r *Response) WithRecords(records []map[string]interface{}) *Response {
	r.Records = records
	return r
}

// FromError maps a structured error to its response tag per spec.md §10.2:
// PermissionDenied -> blocked, MountSkipped/StatTimeout -> warning, anything
// else -> error.
func FromError(err error) *Response {
	e, ok := errs.As(err)
	if !ok {
		return New(Error, err.Error())
	}

	switch e.Kind {
	case errs.PermissionDenied:
		r := New(Blocked, e.Message)
		if e.RequiredLevel != "" {
			r.WithNext("escalate to " + e.RequiredLevel)
		}
		if rule, ok := e.Context["rule"].(string); ok {
			r.WithDetails("rule: " + rule)
		}
		return r
	case errs.MountSkipped, errs.StatTimeout:
		return New(Warning, e.Message)
	case errs.PlanConflict:
		r := New(Error, e.Message)
		for _, p := range e.ConflictingPaths {
			r.WithDetails("conflict: " + p)
		}
		return r
	default:
		return New(Error, e.Message)
	}
}
