// Package langdetect tags posts with an ISO 639-1 language code. The code is
// stored as metadata only; clustering stays token-based.
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// Undetermined is stored when no language can be detected.
const Undetermined = "und"

const sampleRuneLimit = 400

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// DetectISO6391 returns the two-letter language code of the text, or
// Undetermined when the text is too short or ambiguous. Only the first few
// hundred runes are sampled; social posts rarely switch language mid-body.
func DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if runes := []rune(sample); len(runes) > sampleRuneLimit {
		sample = string(runes[:sampleRuneLimit])
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < 6 {
		return Undetermined
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return Undetermined
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return Undetermined
	}
	return code
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}
