package format

import (
	"testing"

	"github.com/kissa/kissa/internal/errs"
)

func TestFromErrorMapsPermissionDeniedToBlocked(t *testing.T) {
	err := errs.PermissionDeniedErr("repo at readonly, op needs commit", "commit")
	r := FromError(err)
	if r.Tag != Blocked {
		t.Errorf("Tag = %v, want blocked", r.Tag)
	}
	if r.Next != "escalate to commit" {
		t.Errorf("Next = %q, want an escalation hint", r.Next)
	}
}

func TestFromErrorMapsMountSkippedToWarning(t *testing.T) {
	err := errs.New(errs.MountSkipped, "skipped /mnt/external: crosses a mount boundary")
	r := FromError(err)
	if r.Tag != Warning {
		t.Errorf("Tag = %v, want warning", r.Tag)
	}
}

func TestFromErrorMapsPlanConflictToErrorWithDetails(t *testing.T) {
	err := errs.PlanConflictErr("2 destinations claimed twice", []string{"/a", "/b"})
	r := FromError(err)
	if r.Tag != Error {
		t.Errorf("Tag = %v, want error", r.Tag)
	}
	if len(r.Details) != 2 {
		t.Errorf("expected one detail line per conflicting path, got %v", r.Details)
	}
}

func TestFromErrorFallsBackForUnstructuredErrors(t *testing.T) {
	r := FromError(errPlain("boom"))
	if r.Tag != Error {
		t.Errorf("Tag = %v, want error", r.Tag)
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }
