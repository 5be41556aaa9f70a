package db

import (
	"encoding/json"
	"time"
)

// RawPost maps trends.raw_posts: one harvested content item, immutable once
// ingested. Deduplicated on (source, source_item_id, payload_hash).
type RawPost struct {
	RawPostID    int64           `gorm:"column:raw_post_id;primaryKey;autoIncrement"`
	RawPostUUID  string          `gorm:"column:raw_post_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Source       string          `gorm:"column:source;type:text;not null"`
	SourceItemID string          `gorm:"column:source_item_id;type:text;not null"`
	SourceURL    *string         `gorm:"column:source_url;type:text"`
	BodyText     string          `gorm:"column:body_text;type:text;not null"`
	MediaURLs    json.RawMessage `gorm:"column:media_urls;type:jsonb"`
	Likes        int64           `gorm:"column:likes;type:bigint;not null;default:0"`
	Comments     int64           `gorm:"column:comments;type:bigint;not null;default:0"`
	Shares       int64           `gorm:"column:shares;type:bigint;not null;default:0"`
	Views        int64           `gorm:"column:views;type:bigint;not null;default:0"`
	PublishedAt  time.Time       `gorm:"column:published_at;type:timestamptz;not null"`
	PayloadHash  []byte          `gorm:"column:payload_hash;type:bytea;not null"`
	FetchedAt    time.Time       `gorm:"column:fetched_at;type:timestamptz;not null;default:now()"`
	ProcessedAt  *time.Time      `gorm:"column:processed_at;type:timestamptz"`
	CreatedAt    time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (RawPost) TableName() string { return "trends.raw_posts" }

// Post maps trends.posts: a raw post after cleaning, tag extraction, and
// scoring. cluster_id is the append-only assignment relation: set once,
// never moved to a different cluster.
type Post struct {
	PostID       int64           `gorm:"column:post_id;primaryKey;autoIncrement"`
	PostUUID     string          `gorm:"column:post_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	RawPostID    int64           `gorm:"column:raw_post_id;type:bigint;not null;unique"`
	Source       string          `gorm:"column:source;type:text;not null"`
	SourceItemID string          `gorm:"column:source_item_id;type:text;not null"`
	CleanedText  string          `gorm:"column:cleaned_text;type:text;not null;default:''"`
	Hashtags     json.RawMessage `gorm:"column:hashtags;type:jsonb;not null;default:'[]'"`
	Keywords     json.RawMessage `gorm:"column:keywords;type:jsonb;not null;default:'[]'"`
	Mentions     json.RawMessage `gorm:"column:mentions;type:jsonb;not null;default:'[]'"`
	Language     string          `gorm:"column:language;type:text;not null;default:und"`
	Virality     int             `gorm:"column:virality;type:integer;not null;default:0"`
	Relevance    int             `gorm:"column:relevance;type:integer;not null;default:0"`
	Quality      int             `gorm:"column:quality;type:integer;not null;default:0"`
	Fingerprint  string          `gorm:"column:fingerprint;type:text;not null"`
	ClusterID    *int64          `gorm:"column:cluster_id;type:bigint"`
	AssignedAt   *time.Time      `gorm:"column:assigned_at;type:timestamptz"`
	PublishedAt  time.Time       `gorm:"column:published_at;type:timestamptz;not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Post) TableName() string { return "trends.posts" }

// Cluster maps trends.clusters: one persistent trend group per fingerprint.
type Cluster struct {
	ClusterID      int64           `gorm:"column:cluster_id;primaryKey;autoIncrement"`
	ClusterUUID    string          `gorm:"column:cluster_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Fingerprint    string          `gorm:"column:fingerprint;type:text;not null;unique"`
	Title          string          `gorm:"column:title;type:text;not null"`
	Insight        string          `gorm:"column:insight;type:text;not null;default:''"`
	InsightStatus  string          `gorm:"column:insight_status;type:text;not null;default:pending"`
	TrendScore     int             `gorm:"column:trend_score;type:integer;not null;default:0"`
	GrowthPct      int             `gorm:"column:growth_pct;type:integer;not null;default:0"`
	CommonHashtags json.RawMessage `gorm:"column:common_hashtags;type:jsonb;not null;default:'[]'"`
	CommonKeywords json.RawMessage `gorm:"column:common_keywords;type:jsonb;not null;default:'[]'"`
	FirstSeenAt    time.Time       `gorm:"column:first_seen_at;type:timestamptz;not null"`
	LastSeenAt     time.Time       `gorm:"column:last_seen_at;type:timestamptz;not null"`
	Status         string          `gorm:"column:status;type:text;not null;default:active"`
	CreatedAt      time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Cluster) TableName() string { return "trends.clusters" }

func autoMigrateModels() []any {
	return []any{
		&RawPost{},
		&Post{},
		&Cluster{},
	}
}
