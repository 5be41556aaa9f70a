// Package post defines the record types that flow through the trend engine.
package post

import "time"

// Raw is one harvested content item as delivered by the ingestion layer.
// It is immutable; the engine consumes it read-only.
type Raw struct {
	Source       string
	SourceItemID string
	BodyText     string
	MediaURLs    []string
	PublishedAt  time.Time
	Likes        int64
	Comments     int64
	Shares       int64
	Views        int64
	SourceURL    string
}

// Normalized is a Raw record after cleaning, tag extraction, and scoring.
// Fields are fixed at creation; only the cluster assignment is recorded later.
type Normalized struct {
	Source       string
	SourceItemID string
	CleanedText  string
	Hashtags     []string
	Keywords     []string
	Mentions     []string
	Language     string
	Virality     int
	Relevance    int
	Quality      int
	Fingerprint  string
	PublishedAt  time.Time
}
