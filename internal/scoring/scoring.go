// Package scoring computes the per-record virality, relevance, and quality
// heuristics. The arithmetic is load-bearing for downstream cluster ranking;
// every score is an integer clamped to [0, 100].
package scoring

import (
	"math"
	"strings"
	"unicode/utf8"
)

// relevanceMarkers are the domain markers that make a hashtag count toward
// relevance regardless of the configurable keyword vocabulary.
var relevanceMarkers = []string{"fashion", "style", "ootd"}

// Virality rates engagement against views. When the view counter is missing
// or zero, engagement*10 stands in as the denominator so records without view
// data still receive a meaningful floor instead of dividing by zero.
func Virality(likes, comments, shares, views int64) int {
	engagement := likes + 2*comments + 3*shares
	if views <= 0 {
		views = engagement * 10
	}
	if views == 0 {
		return 0
	}

	rate := float64(engagement) / float64(views) * 100
	return clamp(int(math.Floor(rate * 1000)))
}

// Relevance starts at 50 and rewards domain hashtags, extracted keywords, and
// substantive text length.
func Relevance(cleanedText string, hashtags, keywords []string) int {
	score := 50
	for _, tag := range hashtags {
		if containsMarker(tag) {
			score += 10
		}
	}
	score += 5 * len(keywords)
	if utf8.RuneCountInString(cleanedText) > 50 {
		score += 10
	}
	return clamp(score)
}

// Quality starts at 50 and rewards attached media, mid-length text, and
// engagement volume.
func Quality(cleanedText string, mediaCount int, likes, comments int64) int {
	score := 50
	if mediaCount > 0 {
		score += 20
	}
	if length := utf8.RuneCountInString(cleanedText); length > 30 && length < 500 {
		score += 15
	}
	if likes > 100 {
		score += 10
	}
	if comments > 10 {
		score += 5
	}
	return clamp(score)
}

func containsMarker(tag string) bool {
	lowered := strings.ToLower(tag)
	for _, marker := range relevanceMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
