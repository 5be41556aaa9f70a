package trend

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"moda.fit/trendpulse/internal/db"
	"moda.fit/trendpulse/internal/globaltime"
	"moda.fit/trendpulse/internal/post"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(nil, zerolog.Nop(), []string{"fashion", "runway"}, 3, 100)
}

func TestNormalize_RejectsMalformedRecords(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	published := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		raw  post.Raw
	}{
		{"missing timestamp", post.Raw{Source: "gram", SourceItemID: "1", BodyText: "fine text"}},
		{"empty body", post.Raw{Source: "gram", SourceItemID: "2", PublishedAt: published}},
		{"body is only a url", post.Raw{Source: "gram", SourceItemID: "3", BodyText: "https://example.com/x", PublishedAt: published}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if _, err := svc.Normalize(tc.raw); err == nil {
				t.Fatalf("expected error for malformed record")
			}
		})
	}
}

func TestNormalize_PopulatesSignalsAndScores(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	record, err := svc.Normalize(post.Raw{
		Source:       "gram",
		SourceItemID: "p1",
		BodyText:     "Backstage at #FashionWeek with @editor https://pics.example/1 #runway",
		MediaURLs:    []string{"https://pics.example/1.jpg"},
		Likes:        200,
		Comments:     20,
		PublishedAt:  time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(record.Hashtags) != 2 || record.Hashtags[0] != "fashionweek" || record.Hashtags[1] != "runway" {
		t.Fatalf("unexpected hashtags: %v", record.Hashtags)
	}
	if len(record.Mentions) != 1 || record.Mentions[0] != "editor" {
		t.Fatalf("unexpected mentions: %v", record.Mentions)
	}
	if len(record.Keywords) != 2 {
		t.Fatalf("unexpected keywords: %v", record.Keywords)
	}
	if record.Fingerprint == "" {
		t.Fatalf("fingerprint must always be set")
	}
	for name, score := range map[string]int{
		"virality":  record.Virality,
		"relevance": record.Relevance,
		"quality":   record.Quality,
	} {
		if score < 0 || score > 100 {
			t.Fatalf("%s score %d out of range", name, score)
		}
	}
}

func TestPipeline_FourTaggedRecordsFormOneCluster(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	published := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	batch := make([]post.Normalized, 0, 4)
	for i := 0; i < 4; i++ {
		record, err := svc.Normalize(post.Raw{
			Source:       "gram",
			SourceItemID: string(rune('a' + i)),
			BodyText:     "Backstage at #FashionWeek with the #runway crew",
			Likes:        1000,
			PublishedAt:  published.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("normalize record %d: %v", i, err)
		}
		if record.Virality != 100 {
			t.Fatalf("record %d: views fallback should drive virality to 100, got %d", i, record.Virality)
		}
		batch = append(batch, record)
	}

	groups := Group(batch)
	if len(groups) != 1 {
		t.Fatalf("expected a single fingerprint group, got %d", len(groups))
	}

	drafts := BuildDrafts(groups, 3)
	if len(drafts) != 1 {
		t.Fatalf("expected exactly one cluster draft, got %d", len(drafts))
	}

	draft := drafts[0]
	if len(draft.Members) != 4 {
		t.Fatalf("all 4 records must belong to the cluster, got %d", len(draft.Members))
	}
	if draft.TrendScore <= 50 {
		t.Fatalf("trend score = %d, want > 50", draft.TrendScore)
	}
	if !containsTag(draft.CommonHashtags, "fashionweek") || !containsTag(draft.CommonHashtags, "runway") {
		t.Fatalf("common hashtags missing expected tags: %v", draft.CommonHashtags)
	}
	if !draft.FirstSeen.Equal(published) {
		t.Fatalf("first seen = %v, want %v", draft.FirstSeen, published)
	}
	if !draft.LastSeen.Equal(published.Add(3 * time.Minute)) {
		t.Fatalf("last seen = %v, want %v", draft.LastSeen, published.Add(3*time.Minute))
	}
}

func TestPipeline_TwoRecordGroupProducesNoCluster(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	published := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	batch := make([]post.Normalized, 0, 2)
	for i := 0; i < 2; i++ {
		record, err := svc.Normalize(post.Raw{
			Source:       "gram",
			SourceItemID: string(rune('a' + i)),
			BodyText:     "Weekend #denim fit check",
			PublishedAt:  published,
		})
		if err != nil {
			t.Fatalf("normalize record %d: %v", i, err)
		}
		batch = append(batch, record)
	}

	groups := Group(batch)
	if len(groups) != 1 {
		t.Fatalf("both records must share one fingerprint, got %d groups", len(groups))
	}
	if drafts := BuildDrafts(groups, 3); len(drafts) != 0 {
		t.Fatalf("sub-threshold group must produce zero clusters, got %d", len(drafts))
	}
}

func containsTag(tags []string, tag string) bool {
	for _, candidate := range tags {
		if candidate == tag {
			return true
		}
	}
	return false
}

// fakeStore satisfies Store in memory and can fail selected operations.
type fakeStore struct {
	pending    []db.PendingRawPost
	insertErr  map[int64]error
	upsertErr  map[string]error
	sampleErr  map[int64]error
	clusterIDs []int64
	timestamps map[int64][]time.Time

	nextPostID int64
	upserts    []db.ClusterUpsertParams
	assigned   map[int64][]int64
	processed  []int64
	growth     map[int64]int
}

func (f *fakeStore) ListPendingRawPosts(_ context.Context, limit int) ([]db.PendingRawPost, error) {
	if limit > 0 && limit < len(f.pending) {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeStore) InsertPost(_ context.Context, params db.NormalizedPostParams) (int64, error) {
	if err := f.insertErr[params.RawPostID]; err != nil {
		return 0, err
	}
	f.nextPostID++
	return f.nextPostID, nil
}

func (f *fakeStore) MarkRawPostsProcessed(_ context.Context, rawPostIDs []int64, _ time.Time) error {
	f.processed = append(f.processed, rawPostIDs...)
	return nil
}

func (f *fakeStore) UpsertCluster(_ context.Context, params db.ClusterUpsertParams) (int64, bool, error) {
	if err := f.upsertErr[params.Fingerprint]; err != nil {
		return 0, false, err
	}
	f.upserts = append(f.upserts, params)
	return int64(len(f.upserts)), true, nil
}

func (f *fakeStore) AssignPosts(_ context.Context, clusterID int64, postIDs []int64, _ time.Time) (int64, error) {
	if f.assigned == nil {
		f.assigned = make(map[int64][]int64)
	}
	f.assigned[clusterID] = append(f.assigned[clusterID], postIDs...)
	return int64(len(postIDs)), nil
}

func (f *fakeStore) ListActiveClusterIDs(_ context.Context) ([]int64, error) {
	return f.clusterIDs, nil
}

func (f *fakeStore) ClusterMemberTimestamps(_ context.Context, clusterID int64, _ int) ([]time.Time, error) {
	if err := f.sampleErr[clusterID]; err != nil {
		return nil, err
	}
	return f.timestamps[clusterID], nil
}

func (f *fakeStore) UpdateClusterGrowth(_ context.Context, clusterID int64, growthPct int) error {
	if f.growth == nil {
		f.growth = make(map[int64]int)
	}
	f.growth[clusterID] = growthPct
	return nil
}

func pendingItem(id int64, body string, published time.Time) db.PendingRawPost {
	return db.PendingRawPost{
		RawPostID:    id,
		Source:       "gram",
		SourceItemID: string(rune('a' + id)),
		BodyText:     body,
		PublishedAt:  published,
	}
}

func TestProcessBatch_FailedWritesLeaveRawPostsPending(t *testing.T) {
	t.Parallel()

	published := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{
		pending: []db.PendingRawPost{
			pendingItem(1, "Backstage looks on the #runway today", published),
			pendingItem(2, "Backstage looks on the #runway today", published),
			pendingItem(3, "Backstage looks on the #runway today", published),
			pendingItem(4, "Weekend #denim fit check", published),
			pendingItem(5, "Weekend #denim fit check", published),
			pendingItem(6, "Weekend #denim fit check", published),
			pendingItem(7, "https://pics.example/only-a-url", published),
			pendingItem(8, "Thrifted #vintage finds", published),
			pendingItem(9, "Thrifted #vintage finds", published),
			pendingItem(10, "Paris #fashion forever", published),
		},
		insertErr: map[int64]error{10: errors.New("connection reset")},
	}
	svc := NewService(store, zerolog.Nop(), []string{"fashion", "runway"}, 3, 100)

	// Fail the cluster write for the runway group only.
	sample, err := svc.Normalize(post.Raw{
		Source:       "gram",
		SourceItemID: "sample",
		BodyText:     "Backstage looks on the #runway today",
		PublishedAt:  published,
	})
	if err != nil {
		t.Fatalf("normalize sample: %v", err)
	}
	store.upsertErr = map[string]error{sample.Fingerprint: errors.New("deadlock detected")}

	result, err := svc.ProcessBatch(context.Background(), 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Fetched != 10 || result.Normalized != 8 {
		t.Fatalf("fetched=%d normalized=%d, want 10/8", result.Fetched, result.Normalized)
	}
	if result.Skipped != 2 {
		t.Fatalf("skipped = %d, want 2 (malformed + failed insert)", result.Skipped)
	}
	if result.GroupsFailed != 1 || result.ClustersCreated != 1 || result.SubThreshold != 1 {
		t.Fatalf("failed=%d created=%d subthreshold=%d, want 1/1/1",
			result.GroupsFailed, result.ClustersCreated, result.SubThreshold)
	}
	if result.PostsAssigned != 3 {
		t.Fatalf("posts assigned = %d, want 3", result.PostsAssigned)
	}

	// Members of the failed group and the failed insert must stay pending so
	// the next run retries them. Everything else is done.
	want := []int64{4, 5, 6, 7, 8, 9}
	got := append([]int64(nil), store.processed...)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	if len(got) != len(want) {
		t.Fatalf("processed ids = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("processed ids = %v, want %v", got, want)
		}
	}
}

func TestProcessBatch_CleanRunMarksEverything(t *testing.T) {
	t.Parallel()

	published := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{
		pending: []db.PendingRawPost{
			pendingItem(1, "Weekend #denim fit check", published),
			pendingItem(2, "Weekend #denim fit check", published),
			pendingItem(3, "Weekend #denim fit check", published),
		},
	}
	svc := NewService(store, zerolog.Nop(), []string{"fashion", "runway"}, 3, 100)

	result, err := svc.ProcessBatch(context.Background(), 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ClustersCreated != 1 || result.GroupsFailed != 0 {
		t.Fatalf("created=%d failed=%d, want 1/0", result.ClustersCreated, result.GroupsFailed)
	}
	if len(store.processed) != 3 {
		t.Fatalf("all 3 raw posts must be marked processed, got %v", store.processed)
	}
	if len(store.upserts) != 1 || store.upserts[0].Insight.Text() == "" {
		t.Fatalf("new cluster must carry the fallback insight text")
	}
}

func TestRecomputeGrowth_UpdatesAndSkipsFailures(t *testing.T) {
	now := time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC)
	globaltime.SetMockTime(now)
	t.Cleanup(globaltime.ResetTime)

	store := &fakeStore{
		clusterIDs: []int64{1, 2},
		timestamps: map[int64][]time.Time{
			1: {
				now.Add(-1 * time.Hour),
				now.Add(-2 * time.Hour),
				now.Add(-3 * time.Hour),
				now.Add(-30 * time.Hour),
				now.Add(-40 * time.Hour),
			},
		},
		sampleErr: map[int64]error{2: errors.New("statement timeout")},
	}
	svc := NewService(store, zerolog.Nop(), nil, 3, 100)

	result, err := svc.RecomputeGrowth(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Clusters != 2 || result.Updated != 1 || result.Failed != 1 {
		t.Fatalf("clusters=%d updated=%d failed=%d, want 2/1/1", result.Clusters, result.Updated, result.Failed)
	}
	if store.growth[1] != 50 {
		t.Fatalf("growth = %d, want 50 for 3 recent over 2 previous", store.growth[1])
	}
}
