package insight

import (
	"strings"
	"testing"
)

func TestPending_CarriesFallbackText(t *testing.T) {
	t.Parallel()

	state := Pending("Conversation around #denim is holding steady with a trend score of 40.")
	if state.IsReady() {
		t.Fatalf("pending state must not report ready")
	}
	if state.Status() != StatusPending {
		t.Fatalf("status = %q, want %q", state.Status(), StatusPending)
	}
	if state.Text() == "" {
		t.Fatalf("pending state must keep its fallback text")
	}
}

func TestFromStored_UnknownStatusStaysPending(t *testing.T) {
	t.Parallel()

	state := FromStored("generating", "half-baked text")
	if state.IsReady() {
		t.Fatalf("unknown status must not report ready")
	}
	if state.Status() != StatusPending {
		t.Fatalf("unexpected status: %q", state.Status())
	}
	if state.Text() != "half-baked text" {
		t.Fatalf("stored text must survive: %q", state.Text())
	}
}

func TestFromStored_Ready(t *testing.T) {
	t.Parallel()

	state := FromStored(StatusReady, "quiet luxury is peaking")
	if !state.IsReady() {
		t.Fatalf("expected ready state")
	}
	if state.Text() != "quiet luxury is peaking" {
		t.Fatalf("unexpected text: %q", state.Text())
	}
}

func TestBuildRequest_TruncatesAndLimitsSamples(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("é", 250)
	texts := []string{long, "short", "a", "b", "c", "overflow"}

	req := BuildRequest("uuid-1", "fp-1", "Denim", []string{"denim"}, []string{"raw-denim"}, 72, -20, texts)
	if len(req.SampleTexts) != 5 {
		t.Fatalf("expected 5 samples, got %d", len(req.SampleTexts))
	}
	if got := len([]rune(req.SampleTexts[0])); got != 200 {
		t.Fatalf("expected first sample truncated to 200 runes, got %d", got)
	}
	if req.SampleTexts[1] != "short" {
		t.Fatalf("short samples must pass through untouched, got %q", req.SampleTexts[1])
	}
}

func TestFallback(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		hashtags  []string
		keywords  []string
		score     int
		growth    int
		wantParts []string
	}{
		{
			name:      "hashtags win over keywords",
			hashtags:  []string{"fashionweek", "runway"},
			keywords:  []string{"couture"},
			score:     80,
			growth:    40,
			wantParts: []string{"#fashionweek, #runway", "up 40%", "trend score of 80"},
		},
		{
			name:      "keywords when no hashtags",
			keywords:  []string{"quiet-luxury"},
			score:     55,
			growth:    -30,
			wantParts: []string{"quiet-luxury", "down 30%"},
		},
		{
			name:      "no tags at all",
			score:     50,
			growth:    0,
			wantParts: []string{"this topic", "holding steady"},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			text := Fallback(tc.hashtags, tc.keywords, tc.score, tc.growth)
			if text == "" {
				t.Fatalf("fallback must never be blank")
			}
			for _, part := range tc.wantParts {
				if !strings.Contains(text, part) {
					t.Fatalf("fallback %q missing %q", text, part)
				}
			}
		})
	}
}
