package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"TP_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"TP_DB_MAX_CONNS" default:"8"`

	// KeywordVocabulary is the comma-separated domain vocabulary used by the
	// normalizer. It is configuration, not a built-in constant, so deployments
	// (and tests) can swap domains without a rebuild.
	KeywordVocabulary string `envconfig:"TP_KEYWORD_VOCABULARY" default:"fashion,style,ootd,outfit,runway,couture,vintage,streetwear,denim,aesthetic,trend,lookbook,wardrobe,chic,designer"`

	MinClusterSize   int `envconfig:"TP_MIN_CLUSTER_SIZE" default:"3"`
	GrowthSampleSize int `envconfig:"TP_GROWTH_SAMPLE_SIZE" default:"100"`
	ProcessBatchSize int `envconfig:"TP_PROCESS_BATCH_SIZE" default:"500"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("TP_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("TP_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("TP_DB_MIN_CONNS (%d) cannot exceed TP_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if len(c.KeywordVocabularyList()) == 0 {
		return fmt.Errorf("TP_KEYWORD_VOCABULARY must contain at least one entry")
	}
	if c.MinClusterSize < 1 {
		return fmt.Errorf("TP_MIN_CLUSTER_SIZE must be >= 1")
	}
	if c.GrowthSampleSize < 2 {
		return fmt.Errorf("TP_GROWTH_SAMPLE_SIZE must be >= 2")
	}
	if c.ProcessBatchSize < 1 {
		return fmt.Errorf("TP_PROCESS_BATCH_SIZE must be >= 1")
	}
	return nil
}

// CORSAllowedOriginsList splits the configured origins into a trimmed list.
func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}

// KeywordVocabularyList splits, lower-cases, and deduplicates the configured
// vocabulary, preserving first-occurrence order.
func (c *Config) KeywordVocabularyList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.KeywordVocabulary, ",")
	entries := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		entry := strings.ToLower(strings.TrimSpace(part))
		if entry == "" {
			continue
		}
		if _, exists := seen[entry]; exists {
			continue
		}
		seen[entry] = struct{}{}
		entries = append(entries, entry)
	}
	return entries
}
