package trend

import "testing"

func TestFingerprint_OrderIndependent(t *testing.T) {
	t.Parallel()

	a := Fingerprint([]string{"runway", "fashionweek", "paris"}, []string{"couture", "atelier"})
	b := Fingerprint([]string{"paris", "runway", "fashionweek"}, []string{"atelier", "couture"})
	if a != b {
		t.Fatalf("fingerprint must not depend on tag order: %q vs %q", a, b)
	}
}

func TestFingerprint_UsesOnlyTopThreePerAxis(t *testing.T) {
	t.Parallel()

	base := Fingerprint([]string{"a", "b", "c"}, nil)
	extra := Fingerprint([]string{"a", "b", "c", "zzz"}, nil)
	if base != extra {
		t.Fatalf("tags beyond the sorted top 3 must not change the fingerprint")
	}

	changed := Fingerprint([]string{"a", "b", "0"}, nil)
	if base == changed {
		t.Fatalf("changing a top-3 tag must change the fingerprint")
	}
}

func TestFingerprint_EmptyTagSetsShareOneGroup(t *testing.T) {
	t.Parallel()

	a := Fingerprint(nil, nil)
	b := Fingerprint([]string{}, []string{})
	if a != b {
		t.Fatalf("empty tag sets must share one fingerprint: %q vs %q", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("expected 128-bit hex digest (32 chars), got %d: %q", len(a), a)
	}
}

func TestFingerprint_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	hashtags := []string{"z", "a", "m"}
	Fingerprint(hashtags, nil)
	if hashtags[0] != "z" || hashtags[1] != "a" || hashtags[2] != "m" {
		t.Fatalf("input slice was reordered: %v", hashtags)
	}
}
