package surface

import (
	"testing"

	"github.com/kissa/kissa/internal/permission"
)

func TestExecMinimumLevel(t *testing.T) {
	cases := []struct {
		args []string
		want permission.Level
	}{
		{[]string{"log"}, permission.LevelReadonly},
		{[]string{"fetch"}, permission.LevelFetch},
		{[]string{"pull"}, permission.LevelFetch},
		{[]string{"push"}, permission.LevelCommit},
		{[]string{"push", "--force"}, permission.LevelForce},
		{[]string{"push", "-f", "origin", "main"}, permission.LevelForce},
		{[]string{"commit", "-m", "x"}, permission.LevelCommit},
		{[]string{"clean", "-fd"}, permission.LevelForce},
		{nil, permission.LevelReadonly},
	}
	for _, c := range cases {
		if got := execMinimumLevel(c.args); got != c.want {
			t.Errorf("execMinimumLevel(%v) = %v, want %v", c.args, got, c.want)
		}
	}
}

func TestIsForcePush(t *testing.T) {
	if !isForcePush([]string{"push", "--force", "origin", "main"}) {
		t.Fatal("expected --force push to be detected")
	}
	if isForcePush([]string{"push", "origin", "main"}) {
		t.Fatal("expected a plain push not to be flagged as forced")
	}
	if isForcePush([]string{"pull", "--force"}) {
		t.Fatal("expected --force on a non-push command not to be flagged")
	}
}

func TestIsRecursiveClean(t *testing.T) {
	cases := []struct {
		args []string
		want bool
	}{
		{[]string{"clean", "-fdx"}, true},
		{[]string{"clean", "--force"}, true},
		{[]string{"clean", "-n"}, false},
		{[]string{"status"}, false},
		{nil, false},
	}
	for _, c := range cases {
		if got := isRecursiveClean(c.args); got != c.want {
			t.Errorf("isRecursiveClean(%v) = %v, want %v", c.args, got, c.want)
		}
	}
}

func TestForcePushBranch(t *testing.T) {
	if got := forcePushBranch([]string{"push", "--force", "main"}); got != "main" {
		t.Fatalf("expected branch 'main', got %q", got)
	}
	if got := forcePushBranch([]string{"push", "--force"}); got != "" {
		t.Fatalf("expected empty branch when none given, got %q", got)
	}
}
