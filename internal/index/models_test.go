package index

import (
	"testing"
	"time"
)

func TestComputeFreshnessTiers(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		age  time.Duration
		want Freshness
	}{
		{"just now", 0, FreshnessActive},
		{"six days", 6 * 24 * time.Hour, FreshnessActive},
		{"exactly seven days", 7 * 24 * time.Hour, FreshnessActive},
		{"eight days", 8 * 24 * time.Hour, FreshnessRecent},
		{"twenty nine days", 29 * 24 * time.Hour, FreshnessRecent},
		{"thirty one days", 31 * 24 * time.Hour, FreshnessStale},
		{"eighty nine days", 89 * 24 * time.Hour, FreshnessStale},
		{"ninety one days", 91 * 24 * time.Hour, FreshnessDormant},
		{"one year", 365 * 24 * time.Hour, FreshnessDormant},
		{"over one year", 366 * 24 * time.Hour, FreshnessAncient},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ComputeFreshness(now.Add(-c.age), now)
			if got != c.want {
				t.Errorf("ComputeFreshness(age=%s) = %s, want %s", c.age, got, c.want)
			}
		})
	}
}

func TestComputeFreshnessZeroLastCommitIsAncient(t *testing.T) {
	if got := ComputeFreshness(time.Time{}, time.Now()); got != FreshnessAncient {
		t.Fatalf("expected a zero last-commit time to be ancient, got %s", got)
	}
}
