package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"moda.fit/trendpulse/internal/insight"
)

// ClusterUpsertParams is the computed state for one fingerprint group, merged
// into trends.clusters.
type ClusterUpsertParams struct {
	Fingerprint    string
	Title          string
	Insight        insight.Insight
	CommonHashtags []string
	CommonKeywords []string
	TrendScore     int
	FirstSeen      time.Time
	LastSeen       time.Time
}

// ClusterSummary is the read model for cluster listings.
type ClusterSummary struct {
	ClusterID      int64     `json:"cluster_id"`
	ClusterUUID    string    `json:"cluster_uuid"`
	Fingerprint    string    `json:"fingerprint"`
	Title          string    `json:"title"`
	Insight        string    `json:"insight"`
	InsightStatus  string    `json:"insight_status"`
	TrendScore     int       `json:"trend_score"`
	GrowthPct      int       `json:"growth_pct"`
	CommonHashtags []string  `json:"common_hashtags"`
	CommonKeywords []string  `json:"common_keywords"`
	MemberCount    int       `json:"member_count"`
	FirstSeenAt    time.Time `json:"first_seen_at"`
	LastSeenAt     time.Time `json:"last_seen_at"`
	Status         string    `json:"status"`
}

// ClusterListOptions filters and pages cluster listings.
type ClusterListOptions struct {
	Status   string
	MinScore int
	Query    string
	Limit    int
	Offset   int
}

// ClusterDetail is one cluster plus its member posts.
type ClusterDetail struct {
	Cluster ClusterSummary      `json:"cluster"`
	Members []ClusterMemberPost `json:"members"`
}

// ClusterMemberPost is a member row within a cluster detail.
type ClusterMemberPost struct {
	PostID      int64     `json:"post_id"`
	PostUUID    string    `json:"post_uuid"`
	Source      string    `json:"source"`
	CleanedText string    `json:"cleaned_text"`
	Virality    int       `json:"virality"`
	Relevance   int       `json:"relevance"`
	Quality     int       `json:"quality"`
	PublishedAt time.Time `json:"published_at"`
}

// UpsertCluster atomically finds or creates the cluster for a fingerprint and
// merges the new group evidence into it. Concurrent writers racing on a new
// fingerprint converge on a single row: the insert is ON CONFLICT DO NOTHING
// and the merge UPDATE is idempotent. last_seen_at only advances and
// first_seen_at only regresses; title and insight keep their stored values on
// merge so human edits and generated insights survive re-processing.
func (p *Pool) UpsertCluster(ctx context.Context, params ClusterUpsertParams) (int64, bool, error) {
	hashtagsJSON, err := marshalStringList(params.CommonHashtags)
	if err != nil {
		return 0, false, fmt.Errorf("marshal common hashtags: %w", err)
	}
	keywordsJSON, err := marshalStringList(params.CommonKeywords)
	if err != nil {
		return 0, false, fmt.Errorf("marshal common keywords: %w", err)
	}

	const insert = `
INSERT INTO trends.clusters (
	fingerprint, title, insight, insight_status,
	trend_score, growth_pct, common_hashtags, common_keywords,
	first_seen_at, last_seen_at, status
) VALUES ($1, $2, $3, $4, $5, 0, $6::jsonb, $7::jsonb, $8, $9, 'active')
ON CONFLICT (fingerprint) DO NOTHING
`

	tag, err := p.Exec(ctx, insert,
		params.Fingerprint,
		params.Title,
		params.Insight.Text(),
		params.Insight.Status(),
		params.TrendScore,
		string(hashtagsJSON),
		string(keywordsJSON),
		params.FirstSeen.UTC(),
		params.LastSeen.UTC(),
	)
	if err != nil {
		return 0, false, fmt.Errorf("insert cluster: %w", err)
	}
	created := tag.RowsAffected() > 0

	const merge = `
UPDATE trends.clusters
SET
	common_hashtags = $2::jsonb,
	common_keywords = $3::jsonb,
	trend_score = $4,
	first_seen_at = LEAST(first_seen_at, $5),
	last_seen_at = GREATEST(last_seen_at, $6),
	status = 'active',
	updated_at = now()
WHERE fingerprint = $1
RETURNING cluster_id
`

	var clusterID int64
	err = p.QueryRow(ctx, merge,
		params.Fingerprint,
		string(hashtagsJSON),
		string(keywordsJSON),
		params.TrendScore,
		params.FirstSeen.UTC(),
		params.LastSeen.UTC(),
	).Scan(&clusterID)
	if err != nil {
		return 0, false, fmt.Errorf("merge cluster %s: %w", params.Fingerprint, err)
	}
	return clusterID, created, nil
}

// AssignPosts records cluster membership for the given posts. The relation is
// append-only: rows that already carry a cluster_id are left untouched.
func (p *Pool) AssignPosts(ctx context.Context, clusterID int64, postIDs []int64, assignedAt time.Time) (int64, error) {
	if len(postIDs) == 0 {
		return 0, nil
	}

	const q = `
UPDATE trends.posts
SET cluster_id = ?, assigned_at = ?
WHERE post_id IN ?
  AND cluster_id IS NULL
`

	tag, err := p.Exec(ctx, q, clusterID, assignedAt.UTC(), postIDs)
	if err != nil {
		return 0, fmt.Errorf("assign posts to cluster %d: %w", clusterID, err)
	}
	return tag.RowsAffected(), nil
}

// ListActiveClusterIDs returns the ids of all active clusters, oldest first.
func (p *Pool) ListActiveClusterIDs(ctx context.Context) ([]int64, error) {
	const q = `
SELECT cluster_id
FROM trends.clusters
WHERE status = 'active'
ORDER BY cluster_id ASC
`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query active cluster ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan cluster id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active cluster ids: %w", err)
	}
	return ids, nil
}

// ClusterMemberTimestamps returns the publication timestamps of the most
// recent members of a cluster, newest first, bounded by limit.
func (p *Pool) ClusterMemberTimestamps(ctx context.Context, clusterID int64, limit int) ([]time.Time, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT published_at
FROM trends.posts
WHERE cluster_id = $1
ORDER BY published_at DESC
LIMIT $2
`

	rows, err := p.Query(ctx, q, clusterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query member timestamps for cluster %d: %w", clusterID, err)
	}
	defer rows.Close()

	timestamps := make([]time.Time, 0, limit)
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("scan member timestamp: %w", err)
		}
		timestamps = append(timestamps, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member timestamps: %w", err)
	}
	return timestamps, nil
}

// UpdateClusterGrowth stores a freshly computed growth percentage.
func (p *Pool) UpdateClusterGrowth(ctx context.Context, clusterID int64, growthPct int) error {
	const q = `
UPDATE trends.clusters
SET growth_pct = $2, updated_at = now()
WHERE cluster_id = $1
`

	tag, err := p.Exec(ctx, q, clusterID, growthPct)
	if err != nil {
		return fmt.Errorf("update growth for cluster %d: %w", clusterID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update growth for cluster %d: %w", clusterID, ErrNoRows)
	}
	return nil
}

// SetClusterInsight stores a title and the tagged insight state, text and
// status together so the two columns cannot drift apart.
func (p *Pool) SetClusterInsight(ctx context.Context, clusterUUID, title string, state insight.Insight) error {
	const q = `
UPDATE trends.clusters
SET title = $2, insight = $3, insight_status = $4, updated_at = now()
WHERE cluster_uuid = $1
`

	tag, err := p.Exec(ctx, q, clusterUUID, title, state.Text(), state.Status())
	if err != nil {
		return fmt.Errorf("set insight for cluster %s: %w", clusterUUID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

// ListClusters lists clusters with member counts, filtered and paged.
func (p *Pool) ListClusters(ctx context.Context, opts ClusterListOptions) ([]ClusterSummary, error) {
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}
	if opts.Offset < 0 {
		return nil, fmt.Errorf("offset must be >= 0")
	}

	search := ""
	if trimmed := strings.TrimSpace(opts.Query); trimmed != "" {
		search = "%" + trimmed + "%"
	}

	const q = `
SELECT
	c.cluster_id,
	c.cluster_uuid::text,
	c.fingerprint,
	c.title,
	c.insight,
	c.insight_status,
	c.trend_score,
	c.growth_pct,
	c.common_hashtags::text,
	c.common_keywords::text,
	COUNT(m.post_id) AS member_count,
	c.first_seen_at,
	c.last_seen_at,
	c.status
FROM trends.clusters c
LEFT JOIN trends.posts m
	ON m.cluster_id = c.cluster_id
WHERE ($1 = '' OR c.status = $1)
  AND c.trend_score >= $2
  AND ($3 = '' OR c.title ILIKE $3)
GROUP BY c.cluster_id
ORDER BY c.trend_score DESC, c.last_seen_at DESC, c.cluster_id DESC
LIMIT $4 OFFSET $5
`

	rows, err := p.Query(ctx, q,
		strings.TrimSpace(opts.Status),
		opts.MinScore,
		search,
		opts.Limit,
		opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query clusters: %w", err)
	}
	defer rows.Close()

	summaries := make([]ClusterSummary, 0, opts.Limit)
	for rows.Next() {
		summary, err := scanClusterSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clusters: %w", err)
	}
	return summaries, nil
}

// GetClusterByUUID loads one cluster and its member posts, newest first.
func (p *Pool) GetClusterByUUID(ctx context.Context, clusterUUID string, memberLimit int) (*ClusterDetail, error) {
	if memberLimit <= 0 {
		memberLimit = 50
	}

	const clusterQ = `
SELECT
	c.cluster_id,
	c.cluster_uuid::text,
	c.fingerprint,
	c.title,
	c.insight,
	c.insight_status,
	c.trend_score,
	c.growth_pct,
	c.common_hashtags::text,
	c.common_keywords::text,
	COUNT(m.post_id) AS member_count,
	c.first_seen_at,
	c.last_seen_at,
	c.status
FROM trends.clusters c
LEFT JOIN trends.posts m
	ON m.cluster_id = c.cluster_id
WHERE c.cluster_uuid = $1::uuid
GROUP BY c.cluster_id
`

	summary, err := scanClusterSummary(rowScanner{p.QueryRow(ctx, clusterQ, clusterUUID)})
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, err
	}

	const membersQ = `
SELECT
	post_id,
	post_uuid::text,
	source,
	cleaned_text,
	virality,
	relevance,
	quality,
	published_at
FROM trends.posts
WHERE cluster_id = $1
ORDER BY published_at DESC, post_id DESC
LIMIT $2
`

	rows, err := p.Query(ctx, membersQ, summary.ClusterID, memberLimit)
	if err != nil {
		return nil, fmt.Errorf("query cluster members: %w", err)
	}
	defer rows.Close()

	members := make([]ClusterMemberPost, 0, memberLimit)
	for rows.Next() {
		var member ClusterMemberPost
		if err := rows.Scan(
			&member.PostID,
			&member.PostUUID,
			&member.Source,
			&member.CleanedText,
			&member.Virality,
			&member.Relevance,
			&member.Quality,
			&member.PublishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cluster member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cluster members: %w", err)
	}

	return &ClusterDetail{Cluster: summary, Members: members}, nil
}

// TopMemberTexts returns up to limit member texts of a cluster ordered by
// descending virality, for insight generation payloads.
func (p *Pool) TopMemberTexts(ctx context.Context, clusterID int64, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT cleaned_text
FROM trends.posts
WHERE cluster_id = $1
ORDER BY virality DESC, post_id ASC
LIMIT $2
`

	rows, err := p.Query(ctx, q, clusterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query top member texts for cluster %d: %w", clusterID, err)
	}
	defer rows.Close()

	texts := make([]string, 0, limit)
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan member text: %w", err)
		}
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member texts: %w", err)
	}
	return texts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

type rowScanner struct {
	row *Row
}

func (r rowScanner) Scan(dest ...any) error {
	return r.row.Scan(dest...)
}

func scanClusterSummary(s scanner) (ClusterSummary, error) {
	var (
		summary      ClusterSummary
		hashtagsJSON string
		keywordsJSON string
	)
	if err := s.Scan(
		&summary.ClusterID,
		&summary.ClusterUUID,
		&summary.Fingerprint,
		&summary.Title,
		&summary.Insight,
		&summary.InsightStatus,
		&summary.TrendScore,
		&summary.GrowthPct,
		&hashtagsJSON,
		&keywordsJSON,
		&summary.MemberCount,
		&summary.FirstSeenAt,
		&summary.LastSeenAt,
		&summary.Status,
	); err != nil {
		if IsNoRows(err) {
			return ClusterSummary{}, err
		}
		return ClusterSummary{}, fmt.Errorf("scan cluster summary: %w", err)
	}
	if err := json.Unmarshal([]byte(hashtagsJSON), &summary.CommonHashtags); err != nil {
		return ClusterSummary{}, fmt.Errorf("decode common hashtags for cluster %d: %w", summary.ClusterID, err)
	}
	if err := json.Unmarshal([]byte(keywordsJSON), &summary.CommonKeywords); err != nil {
		return ClusterSummary{}, fmt.Errorf("decode common keywords for cluster %d: %w", summary.ClusterID, err)
	}

	// Rebuild the tagged state so an unknown stored status degrades to
	// pending instead of leaking through the API.
	state := insight.FromStored(summary.InsightStatus, summary.Insight)
	summary.Insight = state.Text()
	summary.InsightStatus = state.Status()

	return summary, nil
}
