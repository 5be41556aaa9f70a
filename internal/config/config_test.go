package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		Environment:       "local",
		LogLevel:          "info",
		DatabaseURL:       "postgres://localhost/trendpulse",
		DBMinConns:        1,
		DBMaxConns:        8,
		KeywordVocabulary: "fashion,style",
		MinClusterSize:    3,
		GrowthSampleSize:  100,
		ProcessBatchSize:  500,
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing database url", func(c *Config) { c.DatabaseURL = " " }, "DATABASE_URL"},
		{"min conns above max", func(c *Config) { c.DBMinConns = 9 }, "TP_DB_MIN_CONNS"},
		{"empty vocabulary", func(c *Config) { c.KeywordVocabulary = " , ," }, "TP_KEYWORD_VOCABULARY"},
		{"zero cluster size", func(c *Config) { c.MinClusterSize = 0 }, "TP_MIN_CLUSTER_SIZE"},
		{"tiny growth sample", func(c *Config) { c.GrowthSampleSize = 1 }, "TP_GROWTH_SAMPLE_SIZE"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestKeywordVocabularyList_NormalizesAndDeduplicates(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.KeywordVocabulary = " Fashion ,style,, FASHION ,ootd"

	got := cfg.KeywordVocabularyList()
	want := []string{"fashion", "style", "ootd"}
	if len(got) != len(want) {
		t.Fatalf("unexpected vocabulary length: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected vocabulary entry at %d: got %q want %q", i, got[i], want[i])
		}
	}
}
