package trend

import (
	"testing"
	"time"
)

func TestGrowth(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name                          string
		recent, previous, memberCount int
		want                          int
	}{
		{"no previous with recent activity", 5, 0, 10, 100},
		{"no activity at all", 0, 0, 5, 0},
		{"flat", 10, 10, 20, 0},
		{"halved", 5, 10, 20, -50},
		{"doubled", 20, 10, 30, 100},
		{"decline rounds toward negative infinity", 4, 9, 20, -56},
		{"fewer than two members has no trend", 5, 0, 1, 0},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Growth(tc.recent, tc.previous, tc.memberCount)
			if got != tc.want {
				t.Fatalf("Growth(%d, %d, %d) = %d, want %d",
					tc.recent, tc.previous, tc.memberCount, got, tc.want)
			}
		})
	}
}

func TestWindowCounts(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	timestamps := []time.Time{
		now.Add(-1 * time.Hour),  // recent
		now.Add(-23 * time.Hour), // recent
		now.Add(-25 * time.Hour), // previous
		now.Add(-47 * time.Hour), // previous
		now.Add(-49 * time.Hour), // too old
	}

	recent, previous := WindowCounts(timestamps, now)
	if recent != 2 {
		t.Fatalf("recent = %d, want 2", recent)
	}
	if previous != 2 {
		t.Fatalf("previous = %d, want 2", previous)
	}
}

func TestWindowCounts_BoundaryFallsIntoOlderWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	recent, previous := WindowCounts([]time.Time{now.Add(-24 * time.Hour)}, now)
	if recent != 0 || previous != 1 {
		t.Fatalf("exactly-24h-old timestamp: recent=%d previous=%d, want 0/1", recent, previous)
	}

	recent, previous = WindowCounts([]time.Time{now.Add(-48 * time.Hour)}, now)
	if recent != 0 || previous != 0 {
		t.Fatalf("exactly-48h-old timestamp must be ignored: recent=%d previous=%d", recent, previous)
	}
}
