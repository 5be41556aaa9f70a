package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"moda.fit/trendpulse/internal/cli"
	"moda.fit/trendpulse/internal/config"
	"moda.fit/trendpulse/internal/db"
	"moda.fit/trendpulse/internal/logging"
)

func runClusters(args []string) int {
	fs := flag.NewFlagSet("clusters", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	status := fs.String("status", "active", "Filter by status (active, stale, or empty for all)")
	minScore := fs.Int("min-score", 0, "Minimum trend score")
	query := fs.String("q", "", "Title search (substring, case-insensitive)")
	limit := fs.Int("limit", 25, "Max clusters to list")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if *limit <= 0 || *limit > 500 {
		fmt.Fprintln(os.Stderr, "--limit must be between 1 and 500")
		return 2
	}
	if *minScore < 0 || *minScore > 100 {
		fmt.Fprintln(os.Stderr, "--min-score must be between 0 and 100")
		return 2
	}

	statusFilter := strings.ToLower(strings.TrimSpace(*status))
	if statusFilter != "" && statusFilter != "active" && statusFilter != "stale" {
		fmt.Fprintln(os.Stderr, "--status must be active, stale, or empty")
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

	items, err := pool.ListClusters(ctx, db.ClusterListOptions{
		Status:   statusFilter,
		MinScore: *minScore,
		Query:    *query,
		Limit:    *limit,
	})
	if err != nil {
		logger.Error().Err(err).Msg("cluster listing failed")
		fmt.Fprintf(os.Stderr, "Cluster listing failed: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(items); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode output: %v\n", err)
			return 1
		}
		return 0
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "UUID\tTITLE\tSCORE\tGROWTH\tMEMBERS\tINSIGHT\tLAST SEEN")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%+d%%\t%d\t%s\t%s\n",
			item.ClusterUUID,
			truncateForTable(item.Title, 40),
			item.TrendScore,
			item.GrowthPct,
			item.MemberCount,
			item.InsightStatus,
			item.LastSeenAt.Format(time.RFC3339),
		)
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write table: %v\n", err)
		return 1
	}
	return 0
}
