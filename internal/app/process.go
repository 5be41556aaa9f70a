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

func runProcess(args []string) int {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	limit := fs.Int("limit", 0, "Max raw posts to process (defaults to TP_PROCESS_BATCH_SIZE)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *limit < 0 {
		fmt.Fprintln(os.Stderr, "--limit must be >= 0")
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

	batchLimit := *limit
	if batchLimit == 0 {
		batchLimit = cfg.ProcessBatchSize
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
	result, err := svc.ProcessBatch(ctx, batchLimit)
	if err != nil {
		logger.Error().Err(err).Msg("processing failed")
		fmt.Fprintf(os.Stderr, "Processing failed: %v\n", err)
		return 1
	}

	logger.Info().
		Int("fetched", result.Fetched).
		Int("normalized", result.Normalized).
		Int("skipped", result.Skipped).
		Int("groups", result.Groups).
		Int("sub_threshold", result.SubThreshold).
		Int("clusters_created", result.ClustersCreated).
		Int("clusters_merged", result.ClustersMerged).
		Int64("posts_assigned", result.PostsAssigned).
		Int("groups_failed", result.GroupsFailed).
		Msg("processing batch finished")

	fmt.Printf("fetched=%d normalized=%d skipped=%d groups=%d created=%d merged=%d assigned=%d failed=%d\n",
		result.Fetched, result.Normalized, result.Skipped, result.Groups,
		result.ClustersCreated, result.ClustersMerged, result.PostsAssigned, result.GroupsFailed)

	if result.GroupsFailed > 0 {
		return 1
	}
	return 0
}
