package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"moda.fit/trendpulse/internal/cli"
	"moda.fit/trendpulse/internal/config"
	"moda.fit/trendpulse/internal/db"
	"moda.fit/trendpulse/internal/logging"
	"moda.fit/trendpulse/internal/trend"
)

func runGrowth(args []string) int {
	fs := flag.NewFlagSet("growth", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	svc := trend.NewService(pool, logger, cfg.KeywordVocabularyList(), cfg.MinClusterSize, cfg.GrowthSampleSize)
	result, err := svc.RecomputeGrowth(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("growth recomputation failed")
		fmt.Fprintf(os.Stderr, "Growth recomputation failed: %v\n", err)
		return 1
	}

	logger.Info().
		Int("clusters", result.Clusters).
		Int("updated", result.Updated).
		Int("failed", result.Failed).
		Msg("growth sweep finished")

	fmt.Printf("clusters=%d updated=%d failed=%d\n", result.Clusters, result.Updated, result.Failed)

	if result.Failed > 0 {
		return 1
	}
	return 0
}
