package trend

import "time"

const (
	recentWindow   = 24 * time.Hour
	previousWindow = 48 * time.Hour
)

// WindowCounts buckets member timestamps into the two adjacent growth
// windows: recent covers the last 24h before now, previous covers (48h, 24h]
// before now. Timestamps older than 48h are ignored.
func WindowCounts(timestamps []time.Time, now time.Time) (recent, previous int) {
	recentCutoff := now.Add(-recentWindow)
	previousCutoff := now.Add(-previousWindow)
	for _, ts := range timestamps {
		switch {
		case ts.After(recentCutoff):
			recent++
		case ts.After(previousCutoff):
			previous++
		}
	}
	return recent, previous
}

// Growth computes the signed percentage change in posting volume between the
// two windows. Clusters with fewer than 2 members have no meaningful trend
// and stay at 0. The result is unclamped on the downside so decline magnitude
// is preserved.
func Growth(recent, previous, memberCount int) int {
	if memberCount < 2 {
		return 0
	}
	if previous == 0 {
		if recent > 0 {
			return 100
		}
		return 0
	}
	return floorDiv((recent-previous)*100, previous)
}

// floorDiv divides rounding toward negative infinity. Go's integer division
// truncates toward zero, which would understate negative growth.
func floorDiv(a, b int) int {
	quotient := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		quotient--
	}
	return quotient
}
