// Package normalize cleans raw post text and extracts hashtag, mention, and
// keyword signals. All functions are pure; empty input yields empty output.
package normalize

import (
	"regexp"
	"strings"
)

const maxKeywords = 10

var (
	urlPattern     = regexp.MustCompile(`https?://\S+`)
	hashtagPattern = regexp.MustCompile(`#(\w+)`)
	mentionPattern = regexp.MustCompile(`@(\w+)`)
)

// Normalizer extracts domain keywords using an injected vocabulary.
type Normalizer struct {
	vocabulary []string
}

// NewNormalizer builds a Normalizer over the given keyword vocabulary.
// Entries are matched case-insensitively as substrings of tokens.
func NewNormalizer(vocabulary []string) *Normalizer {
	entries := make([]string, 0, len(vocabulary))
	for _, entry := range vocabulary {
		trimmed := strings.ToLower(strings.TrimSpace(entry))
		if trimmed == "" {
			continue
		}
		entries = append(entries, trimmed)
	}
	return &Normalizer{vocabulary: entries}
}

// CleanText strips bare URLs, collapses all whitespace runs to single spaces,
// and trims. Idempotent: cleaning already-clean text is a no-op.
func CleanText(raw string) string {
	withoutURLs := urlPattern.ReplaceAllString(raw, " ")
	return strings.Join(strings.Fields(withoutURLs), " ")
}

// ExtractHashtags returns every #tag in the text, lower-cased and
// deduplicated, in first-occurrence order.
func ExtractHashtags(cleaned string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(cleaned, -1)
	if len(matches) == 0 {
		return nil
	}

	tags := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, match := range matches {
		tag := strings.ToLower(match[1])
		if _, exists := seen[tag]; exists {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// ExtractMentions returns every @handle in the text, case preserved and
// deduplicated, in first-occurrence order.
func ExtractMentions(cleaned string) []string {
	matches := mentionPattern.FindAllStringSubmatch(cleaned, -1)
	if len(matches) == 0 {
		return nil
	}

	mentions := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, match := range matches {
		mention := match[1]
		if _, exists := seen[mention]; exists {
			continue
		}
		seen[mention] = struct{}{}
		mentions = append(mentions, mention)
	}
	return mentions
}

// ExtractKeywords returns whitespace tokens of the cleaned text that contain
// any vocabulary entry as a substring, deduplicated, capped at 10, in
// first-occurrence order.
func (n *Normalizer) ExtractKeywords(cleaned string) []string {
	if n == nil || len(n.vocabulary) == 0 {
		return nil
	}

	var keywords []string
	seen := make(map[string]struct{})
	for _, token := range strings.Fields(cleaned) {
		lowered := strings.ToLower(token)
		if _, exists := seen[lowered]; exists {
			continue
		}
		if !n.matchesVocabulary(lowered) {
			continue
		}
		seen[lowered] = struct{}{}
		keywords = append(keywords, lowered)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

func (n *Normalizer) matchesVocabulary(token string) bool {
	for _, entry := range n.vocabulary {
		if strings.Contains(token, entry) {
			return true
		}
	}
	return false
}
