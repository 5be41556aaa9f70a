package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RawPostParams carries one validated harvested record into trends.raw_posts.
type RawPostParams struct {
	Source       string
	SourceItemID string
	SourceURL    *string
	BodyText     string
	MediaURLs    []string
	Likes        int64
	Comments     int64
	Shares       int64
	Views        int64
	PublishedAt  time.Time
	PayloadHash  []byte
}

// PendingRawPost is a raw post awaiting normalization.
type PendingRawPost struct {
	RawPostID    int64
	Source       string
	SourceItemID string
	SourceURL    *string
	BodyText     string
	MediaURLs    []string
	Likes        int64
	Comments     int64
	Shares       int64
	Views        int64
	PublishedAt  time.Time
}

// NormalizedPostParams carries one normalized, scored record into trends.posts.
type NormalizedPostParams struct {
	RawPostID    int64
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

// InsertRawPost inserts one harvested record, deduplicating on
// (source, source_item_id, payload_hash). Returns false when the record was
// already present.
func (p *Pool) InsertRawPost(ctx context.Context, params RawPostParams) (bool, error) {
	mediaJSON, err := marshalStringList(params.MediaURLs)
	if err != nil {
		return false, fmt.Errorf("marshal media urls: %w", err)
	}

	const q = `
INSERT INTO trends.raw_posts (
	source, source_item_id, source_url, body_text, media_urls,
	likes, comments, shares, views, published_at, payload_hash
) VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9, $10, $11)
ON CONFLICT (source, source_item_id, payload_hash) DO NOTHING
`

	tag, err := p.Exec(ctx, q,
		params.Source,
		params.SourceItemID,
		params.SourceURL,
		params.BodyText,
		string(mediaJSON),
		params.Likes,
		params.Comments,
		params.Shares,
		params.Views,
		params.PublishedAt.UTC(),
		params.PayloadHash,
	)
	if err != nil {
		return false, fmt.Errorf("insert raw post: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListPendingRawPosts returns unprocessed raw posts in fetch order, bounded
// by limit.
func (p *Pool) ListPendingRawPosts(ctx context.Context, limit int) ([]PendingRawPost, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT
	raw_post_id,
	source,
	source_item_id,
	source_url,
	body_text,
	COALESCE(media_urls, '[]'::jsonb)::text,
	likes,
	comments,
	shares,
	views,
	published_at
FROM trends.raw_posts
WHERE processed_at IS NULL
ORDER BY fetched_at ASC, raw_post_id ASC
LIMIT $1
`

	rows, err := p.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending raw posts: %w", err)
	}
	defer rows.Close()

	pending := make([]PendingRawPost, 0, limit)
	for rows.Next() {
		var (
			item      PendingRawPost
			mediaJSON string
		)
		if err := rows.Scan(
			&item.RawPostID,
			&item.Source,
			&item.SourceItemID,
			&item.SourceURL,
			&item.BodyText,
			&mediaJSON,
			&item.Likes,
			&item.Comments,
			&item.Shares,
			&item.Views,
			&item.PublishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan pending raw post: %w", err)
		}
		if err := json.Unmarshal([]byte(mediaJSON), &item.MediaURLs); err != nil {
			return nil, fmt.Errorf("decode media urls for raw post %d: %w", item.RawPostID, err)
		}
		pending = append(pending, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending raw posts: %w", err)
	}
	return pending, nil
}

// InsertPost stores one normalized record and returns its post_id. Re-running
// normalization for an already-normalized raw post returns the existing row.
func (p *Pool) InsertPost(ctx context.Context, params NormalizedPostParams) (int64, error) {
	hashtagsJSON, err := marshalStringList(params.Hashtags)
	if err != nil {
		return 0, fmt.Errorf("marshal hashtags: %w", err)
	}
	keywordsJSON, err := marshalStringList(params.Keywords)
	if err != nil {
		return 0, fmt.Errorf("marshal keywords: %w", err)
	}
	mentionsJSON, err := marshalStringList(params.Mentions)
	if err != nil {
		return 0, fmt.Errorf("marshal mentions: %w", err)
	}

	const q = `
INSERT INTO trends.posts (
	raw_post_id, source, source_item_id, cleaned_text,
	hashtags, keywords, mentions, language,
	virality, relevance, quality, fingerprint, published_at
) VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7::jsonb, $8, $9, $10, $11, $12, $13)
ON CONFLICT (raw_post_id) DO NOTHING
RETURNING post_id
`

	var postID int64
	err = p.QueryRow(ctx, q,
		params.RawPostID,
		params.Source,
		params.SourceItemID,
		params.CleanedText,
		string(hashtagsJSON),
		string(keywordsJSON),
		string(mentionsJSON),
		params.Language,
		params.Virality,
		params.Relevance,
		params.Quality,
		params.Fingerprint,
		params.PublishedAt.UTC(),
	).Scan(&postID)
	if err == nil {
		return postID, nil
	}
	if !IsNoRows(err) {
		return 0, fmt.Errorf("insert post: %w", err)
	}

	const lookup = `SELECT post_id FROM trends.posts WHERE raw_post_id = $1`
	if err := p.QueryRow(ctx, lookup, params.RawPostID).Scan(&postID); err != nil {
		return 0, fmt.Errorf("lookup existing post for raw post %d: %w", params.RawPostID, err)
	}
	return postID, nil
}

// MarkRawPostsProcessed stamps processed_at on the given raw posts.
func (p *Pool) MarkRawPostsProcessed(ctx context.Context, rawPostIDs []int64, processedAt time.Time) error {
	if len(rawPostIDs) == 0 {
		return nil
	}

	const q = `
UPDATE trends.raw_posts
SET processed_at = ?
WHERE raw_post_id IN ?
  AND processed_at IS NULL
`

	if _, err := p.Exec(ctx, q, processedAt.UTC(), rawPostIDs); err != nil {
		return fmt.Errorf("mark raw posts processed: %w", err)
	}
	return nil
}

func marshalStringList(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}
