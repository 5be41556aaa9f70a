package db

import (
	"context"
	"fmt"
	"time"
)

// Stats is the aggregate read model behind the stats endpoint and command.
type Stats struct {
	RawPostCount        int64      `json:"raw_post_count"`
	PendingRawPostCount int64      `json:"pending_raw_post_count"`
	PostCount           int64      `json:"post_count"`
	AssignedPostCount   int64      `json:"assigned_post_count"`
	ClusterCount        int64      `json:"cluster_count"`
	ActiveClusterCount  int64      `json:"active_cluster_count"`
	PendingInsightCount int64      `json:"pending_insight_count"`
	LastFetchedAt       *time.Time `json:"last_fetched_at,omitempty"`
	LastClusterSeenAt   *time.Time `json:"last_cluster_seen_at,omitempty"`
}

// Ping verifies database connectivity.
func (p *Pool) Ping(ctx context.Context) error {
	if p == nil || p.sqlDB == nil {
		return fmt.Errorf("database pool is not initialized")
	}
	return p.sqlDB.PingContext(ctx)
}

// GetStats collects row counts and last-activity timestamps across the
// trends schema.
func (p *Pool) GetStats(ctx context.Context) (Stats, error) {
	const q = `
SELECT
	(SELECT COUNT(*) FROM trends.raw_posts),
	(SELECT COUNT(*) FROM trends.raw_posts WHERE processed_at IS NULL),
	(SELECT COUNT(*) FROM trends.posts),
	(SELECT COUNT(*) FROM trends.posts WHERE cluster_id IS NOT NULL),
	(SELECT COUNT(*) FROM trends.clusters),
	(SELECT COUNT(*) FROM trends.clusters WHERE status = 'active'),
	(SELECT COUNT(*) FROM trends.clusters WHERE insight_status = 'pending'),
	(SELECT MAX(fetched_at) FROM trends.raw_posts),
	(SELECT MAX(last_seen_at) FROM trends.clusters)
`

	var stats Stats
	if err := p.QueryRow(ctx, q).Scan(
		&stats.RawPostCount,
		&stats.PendingRawPostCount,
		&stats.PostCount,
		&stats.AssignedPostCount,
		&stats.ClusterCount,
		&stats.ActiveClusterCount,
		&stats.PendingInsightCount,
		&stats.LastFetchedAt,
		&stats.LastClusterSeenAt,
	); err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	return stats, nil
}
