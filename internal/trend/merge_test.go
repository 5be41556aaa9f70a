package trend

import (
	"testing"
	"time"

	"moda.fit/trendpulse/internal/post"
)

func memberWithTags(hashtags, keywords []string) post.Normalized {
	return post.Normalized{
		Hashtags:    hashtags,
		Keywords:    keywords,
		PublishedAt: time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestCommonTags_ThresholdAndOrdering(t *testing.T) {
	t.Parallel()

	// 10 members, threshold = ceil(0.3*10) = 3.
	members := make([]post.Normalized, 0, 10)
	for i := 0; i < 10; i++ {
		tags := []string{"everywhere"}
		if i < 5 {
			tags = append(tags, "frequent")
		}
		if i < 3 {
			tags = append(tags, "borderline")
		}
		if i < 2 {
			tags = append(tags, "rare")
		}
		members = append(members, memberWithTags(tags, nil))
	}

	draft := BuildDraft("fp", members)
	want := []string{"everywhere", "frequent", "borderline"}
	if len(draft.CommonHashtags) != len(want) {
		t.Fatalf("unexpected common hashtags: %v", draft.CommonHashtags)
	}
	for i, tag := range want {
		if draft.CommonHashtags[i] != tag {
			t.Fatalf("position %d: got %q, want %q (full: %v)", i, draft.CommonHashtags[i], tag, draft.CommonHashtags)
		}
	}
}

func TestCommonTags_MemberCountsOncePerDistinctTag(t *testing.T) {
	t.Parallel()

	// One member repeating a tag must not lift it over the threshold.
	members := []post.Normalized{
		memberWithTags([]string{"spam", "spam", "spam", "spam"}, nil),
		memberWithTags([]string{"shared"}, nil),
		memberWithTags([]string{"shared"}, nil),
		memberWithTags([]string{"shared"}, nil),
		memberWithTags([]string{"shared"}, nil),
		memberWithTags([]string{"shared"}, nil),
	}

	draft := BuildDraft("fp", members)
	for _, tag := range draft.CommonHashtags {
		if tag == "spam" {
			t.Fatalf("repeated tag from a single member leaked into common tags: %v", draft.CommonHashtags)
		}
	}
}

func TestCommonTags_CapAtFive(t *testing.T) {
	t.Parallel()

	tags := []string{"a", "b", "c", "d", "e", "f", "g"}
	members := []post.Normalized{
		memberWithTags(tags, nil),
		memberWithTags(tags, nil),
		memberWithTags(tags, nil),
	}

	draft := BuildDraft("fp", members)
	if len(draft.CommonHashtags) != 5 {
		t.Fatalf("expected top-5 cap, got %d: %v", len(draft.CommonHashtags), draft.CommonHashtags)
	}
}

func TestTrendScore_BlendsAveragesAndVolume(t *testing.T) {
	t.Parallel()

	members := make([]post.Normalized, 0, 4)
	for i := 0; i < 4; i++ {
		m := memberWithTags([]string{"tag"}, nil)
		m.Virality = 100
		m.Relevance = 70
		members = append(members, m)
	}

	// 0.4*100 + 0.4*70 + 0.2*min(20, 8) = 69.6 -> 69
	draft := BuildDraft("fp", members)
	if draft.TrendScore != 69 {
		t.Fatalf("trend score = %d, want 69", draft.TrendScore)
	}
}

func TestTrendScore_VolumeBonusCaps(t *testing.T) {
	t.Parallel()

	members := make([]post.Normalized, 0, 50)
	for i := 0; i < 50; i++ {
		members = append(members, memberWithTags([]string{"tag"}, nil))
	}

	// Scores are zero; only the capped volume bonus contributes: 0.2*20 = 4.
	draft := BuildDraft("fp", members)
	if draft.TrendScore != 4 {
		t.Fatalf("trend score = %d, want 4", draft.TrendScore)
	}
}

func TestBuildDraft_TitleFromTopTags(t *testing.T) {
	t.Parallel()

	members := []post.Normalized{
		memberWithTags([]string{"fashion_week", "runway"}, []string{"quiet_luxury"}),
		memberWithTags([]string{"fashion_week", "runway"}, []string{"quiet_luxury"}),
		memberWithTags([]string{"fashion_week", "runway"}, []string{"quiet_luxury"}),
	}

	draft := BuildDraft("fp", members)
	if draft.Title != "Fashion week Runway Quiet luxury" {
		t.Fatalf("unexpected title: %q", draft.Title)
	}
}

func TestBuildDraft_DefaultTitleWithoutTags(t *testing.T) {
	t.Parallel()

	members := []post.Normalized{
		memberWithTags(nil, nil),
		memberWithTags(nil, nil),
		memberWithTags(nil, nil),
	}

	draft := BuildDraft("fp", members)
	if draft.Title != DefaultTitle {
		t.Fatalf("expected default title, got %q", draft.Title)
	}
}

func TestBuildDraft_SeenWindow(t *testing.T) {
	t.Parallel()

	early := time.Date(2025, 6, 9, 8, 0, 0, 0, time.UTC)
	late := time.Date(2025, 6, 10, 20, 0, 0, 0, time.UTC)

	members := []post.Normalized{
		{Hashtags: []string{"t"}, PublishedAt: late},
		{Hashtags: []string{"t"}, PublishedAt: early},
		{Hashtags: []string{"t"}, PublishedAt: early.Add(6 * time.Hour)},
	}

	draft := BuildDraft("fp", members)
	if !draft.FirstSeen.Equal(early) {
		t.Fatalf("first seen = %v, want %v", draft.FirstSeen, early)
	}
	if !draft.LastSeen.Equal(late) {
		t.Fatalf("last seen = %v, want %v", draft.LastSeen, late)
	}
}

func TestBuildDrafts_DropsSubThresholdGroups(t *testing.T) {
	t.Parallel()

	groups := map[string][]post.Normalized{
		"big": {
			memberWithTags([]string{"a"}, nil),
			memberWithTags([]string{"a"}, nil),
			memberWithTags([]string{"a"}, nil),
		},
		"small": {
			memberWithTags([]string{"b"}, nil),
			memberWithTags([]string{"b"}, nil),
		},
	}

	drafts := BuildDrafts(groups, 3)
	if len(drafts) != 1 {
		t.Fatalf("expected 1 eligible draft, got %d", len(drafts))
	}
	if drafts[0].Fingerprint != "big" {
		t.Fatalf("wrong group survived: %q", drafts[0].Fingerprint)
	}
}

func TestHumanizeTag(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want string
	}{
		{"#fashion_week", "Fashion week"},
		{"@stylist", "Stylist"},
		{"denim", "Denim"},
		{"___", ""},
	}

	for _, tc := range cases {
		if got := humanizeTag(tc.in); got != tc.want {
			t.Fatalf("humanizeTag(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
