package trend

import (
	"sort"
	"strings"
	"time"

	"moda.fit/trendpulse/internal/post"
)

const (
	commonTagLimit = 5
	titleTagLimit  = 2

	// DefaultTitle names clusters whose members carry no tags at all.
	DefaultTitle = "Emerging Trend"
)

// Draft is the computed state for one fingerprint group, ready to be merged
// into a persistent cluster.
type Draft struct {
	Fingerprint    string
	Title          string
	CommonHashtags []string
	CommonKeywords []string
	TrendScore     int
	FirstSeen      time.Time
	LastSeen       time.Time
	Members        []post.Normalized
}

// Group partitions a batch by fingerprint. Pure; never errors. Group order
// within a fingerprint follows batch order.
func Group(batch []post.Normalized) map[string][]post.Normalized {
	groups := make(map[string][]post.Normalized)
	for _, record := range batch {
		groups[record.Fingerprint] = append(groups[record.Fingerprint], record)
	}
	return groups
}

// BuildDrafts builds a draft for every fingerprint group meeting the minimum
// size. Smaller groups are dropped from this batch; the same fingerprint is
// reconsidered whenever a future batch grows it past the threshold. Output is
// ordered by fingerprint for determinism.
func BuildDrafts(groups map[string][]post.Normalized, minSize int) []Draft {
	fingerprints := make([]string, 0, len(groups))
	for fingerprint, members := range groups {
		if len(members) < minSize {
			continue
		}
		fingerprints = append(fingerprints, fingerprint)
	}
	sort.Strings(fingerprints)

	drafts := make([]Draft, 0, len(fingerprints))
	for _, fingerprint := range fingerprints {
		drafts = append(drafts, BuildDraft(fingerprint, groups[fingerprint]))
	}
	return drafts
}

// BuildDraft computes the representative tags, trend score, title, and seen
// window for one fingerprint group. The caller is responsible for enforcing
// the minimum group size.
func BuildDraft(fingerprint string, members []post.Normalized) Draft {
	commonHashtags := commonTags(members, func(p post.Normalized) []string { return p.Hashtags })
	commonKeywords := commonTags(members, func(p post.Normalized) []string { return p.Keywords })

	first, last := seenWindow(members)
	return Draft{
		Fingerprint:    fingerprint,
		Title:          buildTitle(commonHashtags, commonKeywords),
		CommonHashtags: commonHashtags,
		CommonKeywords: commonKeywords,
		TrendScore:     trendScore(members),
		FirstSeen:      first,
		LastSeen:       last,
		Members:        members,
	}
}

// commonTags keeps tags appearing in at least 30% of members (rounded up),
// each member counting at most once per distinct tag, ordered by descending
// frequency and capped at 5. Ties break lexicographically so output is
// deterministic.
func commonTags(members []post.Normalized, tagsOf func(post.Normalized) []string) []string {
	frequency := make(map[string]int)
	for _, member := range members {
		seen := make(map[string]struct{})
		for _, tag := range tagsOf(member) {
			if _, counted := seen[tag]; counted {
				continue
			}
			seen[tag] = struct{}{}
			frequency[tag]++
		}
	}

	threshold := (3*len(members) + 9) / 10 // ceil(0.3 * n) in integer math
	var kept []string
	for tag, count := range frequency {
		if count >= threshold {
			kept = append(kept, tag)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if frequency[kept[i]] != frequency[kept[j]] {
			return frequency[kept[i]] > frequency[kept[j]]
		}
		return kept[i] < kept[j]
	})
	if len(kept) > commonTagLimit {
		kept = kept[:commonTagLimit]
	}
	return kept
}

// trendScore blends average virality and relevance with a volume bonus:
// 0.4*avg(virality) + 0.4*avg(relevance) + 0.2*min(20, 2*size), floored and
// clamped to [0,100].
func trendScore(members []post.Normalized) int {
	if len(members) == 0 {
		return 0
	}

	var viralitySum, relevanceSum int
	for _, member := range members {
		viralitySum += member.Virality
		relevanceSum += member.Relevance
	}

	size := len(members)
	volumeBonus := 2 * size
	if volumeBonus > 20 {
		volumeBonus = 20
	}

	avgVirality := float64(viralitySum) / float64(size)
	avgRelevance := float64(relevanceSum) / float64(size)
	score := int(0.4*avgVirality + 0.4*avgRelevance + 0.2*float64(volumeBonus))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// buildTitle derives a deterministic cluster title from the top 2 common
// hashtags and top 2 common keywords.
func buildTitle(commonHashtags, commonKeywords []string) string {
	var parts []string
	for _, tag := range takeN(commonHashtags, titleTagLimit) {
		parts = append(parts, humanizeTag(tag))
	}
	for _, keyword := range takeN(commonKeywords, titleTagLimit) {
		parts = append(parts, humanizeTag(keyword))
	}
	if len(parts) == 0 {
		return DefaultTitle
	}
	return strings.Join(parts, " ")
}

// humanizeTag turns a raw tag into a display word: symbol prefixes removed,
// underscores replaced by spaces, first letter upper-cased.
func humanizeTag(tag string) string {
	cleaned := strings.TrimLeft(tag, "#@")
	cleaned = strings.ReplaceAll(cleaned, "_", " ")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return ""
	}
	runes := []rune(cleaned)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}

func seenWindow(members []post.Normalized) (first, last time.Time) {
	for _, member := range members {
		if member.PublishedAt.IsZero() {
			continue
		}
		if first.IsZero() || member.PublishedAt.Before(first) {
			first = member.PublishedAt
		}
		if last.IsZero() || member.PublishedAt.After(last) {
			last = member.PublishedAt
		}
	}
	return first, last
}

func takeN(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}
