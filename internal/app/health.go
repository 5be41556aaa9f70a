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
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Second, "Command timeout")

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

	if err := pool.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("database ping failed")
		fmt.Fprintf(os.Stderr, "Database ping failed: %v\n", err)
		return 1
	}

	stats, err := pool.GetStats(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("stats query failed")
		fmt.Fprintf(os.Stderr, "Stats query failed: %v\n", err)
		return 1
	}

	fmt.Printf("database=ok raw_posts=%d pending=%d posts=%d clusters=%d active=%d\n",
		stats.RawPostCount, stats.PendingRawPostCount, stats.PostCount,
		stats.ClusterCount, stats.ActiveClusterCount)
	return 0
}
