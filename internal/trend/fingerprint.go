// Package trend turns batches of normalized posts into persistent trend
// clusters: fingerprint grouping, representative-tag voting, trend scoring,
// and rolling growth estimation.
package trend

import (
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const fingerprintTagLimit = 3

// Fingerprint derives the stable cluster key for a record's tag sets: the
// first 3 lexicographically-sorted hashtags and first 3 sorted keywords,
// joined with underscores and hashed with a 128-bit blake2b digest. Records
// with no tags on either axis hash the empty string and therefore share one
// miscellaneous fingerprint.
func Fingerprint(hashtags, keywords []string) string {
	parts := make([]string, 0, 2*fingerprintTagLimit)
	parts = append(parts, topSorted(hashtags)...)
	parts = append(parts, topSorted(keywords)...)

	digest, err := blake2b.New(16, nil)
	if err != nil {
		// blake2b.New only fails on an oversized key; nil never does.
		panic(err)
	}
	digest.Write([]byte(strings.Join(parts, "_")))
	return hex.EncodeToString(digest.Sum(nil))
}

func topSorted(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	sorted := make([]string, len(tags))
	copy(sorted, tags)
	sort.Strings(sorted)
	if len(sorted) > fingerprintTagLimit {
		sorted = sorted[:fingerprintTagLimit]
	}
	return sorted
}
