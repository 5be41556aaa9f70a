// Package insight models the hand-off to the external commentary generator.
// A cluster's insight is a tagged state, pending or ready, never a magic
// string: downstream code cannot mistake a placeholder for real commentary.
package insight

import (
	"context"
	"fmt"
	"strings"
)

const (
	// StatusPending marks clusters still waiting for generated commentary.
	StatusPending = "pending"
	// StatusReady marks clusters holding accepted commentary.
	StatusReady = "ready"

	sampleTextLimit = 5
	sampleRuneLimit = 200
)

// Insight is the tagged pending/ready state plus the text, if any.
type Insight struct {
	status string
	text   string
}

// Pending is an insight awaiting generation, carrying the deterministic
// fallback text so the cluster is never blank in the meantime.
func Pending(fallbackText string) Insight {
	return Insight{status: StatusPending, text: fallbackText}
}

// Ready wraps accepted commentary text.
func Ready(text string) Insight {
	return Insight{status: StatusReady, text: text}
}

// FromStored rebuilds the tagged state from persisted columns. Unknown status
// values are treated as pending so a bad row never masquerades as ready.
func FromStored(status, text string) Insight {
	if status == StatusReady {
		return Ready(text)
	}
	return Insight{status: StatusPending, text: text}
}

func (i Insight) IsReady() bool { return i.status == StatusReady }

func (i Insight) Status() string {
	if i.status == "" {
		return StatusPending
	}
	return i.status
}

// Text returns the insight text regardless of state; pending clusters carry
// the deterministic fallback so they are never blank.
func (i Insight) Text() string { return i.text }

// Request is the payload handed to the external generator for one cluster.
type Request struct {
	ClusterUUID    string   `json:"cluster_uuid"`
	Fingerprint    string   `json:"fingerprint"`
	Title          string   `json:"title"`
	CommonHashtags []string `json:"common_hashtags"`
	CommonKeywords []string `json:"common_keywords"`
	TrendScore     int      `json:"trend_score"`
	GrowthPct      int      `json:"growth_pct"`
	SampleTexts    []string `json:"sample_texts"`
}

// Generator produces a title and insight for one cluster. This repo ships no
// model client; deployments plug one in behind this interface.
type Generator interface {
	Generate(ctx context.Context, req Request) (title, insight string, err error)
}

// BuildRequest assembles the generation payload: the cluster's tag lists and
// scores plus up to 5 of its highest-virality member texts, each truncated to
// 200 runes. The texts must arrive pre-sorted by descending virality.
func BuildRequest(clusterUUID, fingerprint, title string, hashtags, keywords []string, trendScore, growthPct int, memberTexts []string) Request {
	if len(memberTexts) > sampleTextLimit {
		memberTexts = memberTexts[:sampleTextLimit]
	}
	samples := make([]string, 0, len(memberTexts))
	for _, text := range memberTexts {
		samples = append(samples, truncateRunes(text, sampleRuneLimit))
	}

	return Request{
		ClusterUUID:    clusterUUID,
		Fingerprint:    fingerprint,
		Title:          title,
		CommonHashtags: hashtags,
		CommonKeywords: keywords,
		TrendScore:     trendScore,
		GrowthPct:      growthPct,
		SampleTexts:    samples,
	}
}

// Fallback builds the deterministic insight used when no generator output is
// available, so a cluster is never left blank. The state stays pending for a
// later retry.
func Fallback(hashtags, keywords []string, trendScore, growthPct int) string {
	var subject string
	switch {
	case len(hashtags) > 0:
		subject = "#" + strings.Join(hashtags, ", #")
	case len(keywords) > 0:
		subject = strings.Join(keywords, ", ")
	default:
		subject = "this topic"
	}

	direction := "holding steady"
	if growthPct > 0 {
		direction = fmt.Sprintf("up %d%% over the last day", growthPct)
	} else if growthPct < 0 {
		direction = fmt.Sprintf("down %d%% over the last day", -growthPct)
	}

	return fmt.Sprintf("Conversation around %s is %s with a trend score of %d.", subject, direction, trendScore)
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
