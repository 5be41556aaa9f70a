package trend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"moda.fit/trendpulse/internal/db"
	"moda.fit/trendpulse/internal/globaltime"
	"moda.fit/trendpulse/internal/insight"
	"moda.fit/trendpulse/internal/langdetect"
	"moda.fit/trendpulse/internal/normalize"
	"moda.fit/trendpulse/internal/post"
	"moda.fit/trendpulse/internal/scoring"
)

// Store is the persistence surface the pipeline runs against. *db.Pool
// implements it.
type Store interface {
	ListPendingRawPosts(ctx context.Context, limit int) ([]db.PendingRawPost, error)
	InsertPost(ctx context.Context, params db.NormalizedPostParams) (int64, error)
	MarkRawPostsProcessed(ctx context.Context, rawPostIDs []int64, processedAt time.Time) error
	UpsertCluster(ctx context.Context, params db.ClusterUpsertParams) (int64, bool, error)
	AssignPosts(ctx context.Context, clusterID int64, postIDs []int64, assignedAt time.Time) (int64, error)
	ListActiveClusterIDs(ctx context.Context) ([]int64, error)
	ClusterMemberTimestamps(ctx context.Context, clusterID int64, limit int) ([]time.Time, error)
	UpdateClusterGrowth(ctx context.Context, clusterID int64, growthPct int) error
}

// Service runs the normalize → score → group → upsert pipeline over pending
// raw posts and recomputes growth for active clusters.
type Service struct {
	store        Store
	logger       zerolog.Logger
	normalizer   *normalize.Normalizer
	minGroupSize int
	growthSample int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// ProcessResult summarizes one pipeline run.
type ProcessResult struct {
	Fetched         int
	Normalized      int
	Skipped         int
	Groups          int
	SubThreshold    int
	ClustersCreated int
	ClustersMerged  int
	PostsAssigned   int64
	GroupsFailed    int
}

// GrowthResult summarizes one growth recomputation sweep.
type GrowthResult struct {
	Clusters int
	Updated  int
	Failed   int
}

func NewService(store Store, logger zerolog.Logger, vocabulary []string, minGroupSize, growthSample int) *Service {
	if minGroupSize < 1 {
		minGroupSize = 3
	}
	if growthSample < 2 {
		growthSample = 100
	}
	return &Service{
		store:        store,
		logger:       logger,
		normalizer:   normalize.NewNormalizer(vocabulary),
		minGroupSize: minGroupSize,
		growthSample: growthSample,
		locks:        make(map[string]*sync.Mutex),
	}
}

// Normalize cleans, tags, scores, and fingerprints one raw record. Records
// without body text or a publication timestamp are malformed and rejected.
func (s *Service) Normalize(raw post.Raw) (post.Normalized, error) {
	if raw.PublishedAt.IsZero() {
		return post.Normalized{}, fmt.Errorf("record %s/%s has no publication timestamp", raw.Source, raw.SourceItemID)
	}

	cleaned := normalize.CleanText(raw.BodyText)
	if cleaned == "" {
		return post.Normalized{}, fmt.Errorf("record %s/%s has no usable text", raw.Source, raw.SourceItemID)
	}

	hashtags := normalize.ExtractHashtags(cleaned)
	keywords := s.normalizer.ExtractKeywords(cleaned)
	mentions := normalize.ExtractMentions(cleaned)

	return post.Normalized{
		Source:       raw.Source,
		SourceItemID: raw.SourceItemID,
		CleanedText:  cleaned,
		Hashtags:     hashtags,
		Keywords:     keywords,
		Mentions:     mentions,
		Language:     langdetect.DetectISO6391(cleaned),
		Virality:     scoring.Virality(raw.Likes, raw.Comments, raw.Shares, raw.Views),
		Relevance:    scoring.Relevance(cleaned, hashtags, keywords),
		Quality:      scoring.Quality(cleaned, len(raw.MediaURLs), raw.Likes, raw.Comments),
		Fingerprint:  Fingerprint(hashtags, keywords),
		PublishedAt:  raw.PublishedAt.UTC(),
	}, nil
}

// ProcessBatch normalizes up to limit pending raw posts, groups them by
// fingerprint, and upserts clusters for groups meeting the minimum size.
// Malformed records are logged, skipped, and marked processed so they do not
// loop. A failed normalized-post insert or a failed group upsert leaves the
// affected raw posts pending: the next run picks them up again (InsertPost is
// idempotent on raw_post_id). Sub-threshold groups are finished for this
// batch; the same fingerprint is reconsidered when future batches grow it.
func (s *Service) ProcessBatch(ctx context.Context, limit int) (ProcessResult, error) {
	var result ProcessResult

	pending, err := s.store.ListPendingRawPosts(ctx, limit)
	if err != nil {
		return result, fmt.Errorf("list pending raw posts: %w", err)
	}
	result.Fetched = len(pending)
	if len(pending) == 0 {
		return result, nil
	}

	records := make([]post.Normalized, 0, len(pending))
	postIDsByFingerprint := make(map[string][]int64)
	rawIDsByFingerprint := make(map[string][]int64)
	processedRawIDs := make([]int64, 0, len(pending))

	for _, item := range pending {
		record, err := s.Normalize(post.Raw{
			Source:       item.Source,
			SourceItemID: item.SourceItemID,
			BodyText:     item.BodyText,
			MediaURLs:    item.MediaURLs,
			PublishedAt:  item.PublishedAt,
			Likes:        item.Likes,
			Comments:     item.Comments,
			Shares:       item.Shares,
			Views:        item.Views,
			SourceURL:    derefOrEmpty(item.SourceURL),
		})
		if err != nil {
			// Malformed forever; retrying would never succeed.
			result.Skipped++
			processedRawIDs = append(processedRawIDs, item.RawPostID)
			s.logger.Warn().Err(err).
				Int64("raw_post_id", item.RawPostID).
				Msg("skipping malformed raw post")
			continue
		}

		postID, err := s.store.InsertPost(ctx, db.NormalizedPostParams{
			RawPostID:    item.RawPostID,
			Source:       record.Source,
			SourceItemID: record.SourceItemID,
			CleanedText:  record.CleanedText,
			Hashtags:     record.Hashtags,
			Keywords:     record.Keywords,
			Mentions:     record.Mentions,
			Language:     record.Language,
			Virality:     record.Virality,
			Relevance:    record.Relevance,
			Quality:      record.Quality,
			Fingerprint:  record.Fingerprint,
			PublishedAt:  record.PublishedAt,
		})
		if err != nil {
			// Transient; the raw post stays pending for the next run.
			result.Skipped++
			s.logger.Warn().Err(err).
				Int64("raw_post_id", item.RawPostID).
				Msg("failed to store normalized post, left for next run")
			continue
		}

		records = append(records, record)
		postIDsByFingerprint[record.Fingerprint] = append(postIDsByFingerprint[record.Fingerprint], postID)
		rawIDsByFingerprint[record.Fingerprint] = append(rawIDsByFingerprint[record.Fingerprint], item.RawPostID)
	}
	result.Normalized = len(records)

	groups := Group(records)
	result.Groups = len(groups)

	drafts := BuildDrafts(groups, s.minGroupSize)
	result.SubThreshold = len(groups) - len(drafts)

	attempted := make(map[string]struct{}, len(drafts))
	for _, draft := range drafts {
		attempted[draft.Fingerprint] = struct{}{}

		created, assigned, err := s.upsertGroup(ctx, draft, postIDsByFingerprint[draft.Fingerprint])
		if err != nil {
			result.GroupsFailed++
			s.logger.Error().Err(err).
				Str("fingerprint", draft.Fingerprint).
				Int("group_size", len(draft.Members)).
				Msg("cluster upsert failed, group left for next run")
			continue
		}
		if created {
			result.ClustersCreated++
		} else {
			result.ClustersMerged++
		}
		result.PostsAssigned += assigned
		processedRawIDs = append(processedRawIDs, rawIDsByFingerprint[draft.Fingerprint]...)
	}

	// Sub-threshold groups are done for this batch.
	for fingerprint := range groups {
		if _, ok := attempted[fingerprint]; ok {
			continue
		}
		processedRawIDs = append(processedRawIDs, rawIDsByFingerprint[fingerprint]...)
	}

	if err := s.store.MarkRawPostsProcessed(ctx, processedRawIDs, globaltime.UTC()); err != nil {
		return result, fmt.Errorf("mark raw posts processed: %w", err)
	}

	return result, nil
}

// upsertGroup serializes cluster writes per fingerprint: the database upsert
// is already atomic, the in-process lock keeps concurrent batches from
// interleaving the insert and merge steps.
func (s *Service) upsertGroup(ctx context.Context, draft Draft, postIDs []int64) (bool, int64, error) {
	lock := s.fingerprintLock(draft.Fingerprint)
	lock.Lock()
	defer lock.Unlock()

	clusterID, created, err := s.store.UpsertCluster(ctx, db.ClusterUpsertParams{
		Fingerprint:    draft.Fingerprint,
		Title:          draft.Title,
		Insight:        insight.Pending(insight.Fallback(draft.CommonHashtags, draft.CommonKeywords, draft.TrendScore, 0)),
		CommonHashtags: draft.CommonHashtags,
		CommonKeywords: draft.CommonKeywords,
		TrendScore:     draft.TrendScore,
		FirstSeen:      draft.FirstSeen,
		LastSeen:       draft.LastSeen,
	})
	if err != nil {
		return false, 0, err
	}

	assigned, err := s.store.AssignPosts(ctx, clusterID, postIDs, globaltime.UTC())
	if err != nil {
		return created, 0, err
	}
	return created, assigned, nil
}

// RecomputeGrowth sweeps all active clusters and refreshes their growth
// percentage from the most recent sampled member timestamps. Per-cluster
// failures are logged and skipped.
func (s *Service) RecomputeGrowth(ctx context.Context) (GrowthResult, error) {
	var result GrowthResult

	ids, err := s.store.ListActiveClusterIDs(ctx)
	if err != nil {
		return result, fmt.Errorf("list active clusters: %w", err)
	}
	result.Clusters = len(ids)

	now := globaltime.UTC()
	for _, clusterID := range ids {
		timestamps, err := s.store.ClusterMemberTimestamps(ctx, clusterID, s.growthSample)
		if err != nil {
			result.Failed++
			s.logger.Error().Err(err).Int64("cluster_id", clusterID).Msg("growth sample query failed")
			continue
		}

		recent, previous := WindowCounts(timestamps, now)
		growth := Growth(recent, previous, len(timestamps))
		if err := s.store.UpdateClusterGrowth(ctx, clusterID, growth); err != nil {
			result.Failed++
			s.logger.Error().Err(err).Int64("cluster_id", clusterID).Msg("growth update failed")
			continue
		}
		result.Updated++
	}

	return result, nil
}

func (s *Service) fingerprintLock(fingerprint string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[fingerprint]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[fingerprint] = lock
	}
	return lock
}

func derefOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
