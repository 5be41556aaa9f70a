package app

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"moda.fit/trendpulse/internal/cli"
	"moda.fit/trendpulse/internal/config"
	"moda.fit/trendpulse/internal/db"
	"moda.fit/trendpulse/internal/logging"
	payloadschema "moda.fit/trendpulse/schema"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 20*time.Second, "Command timeout")
	payload := fs.String("payload", "", "Raw post payload JSON")
	payloadFile := fs.String("payload-file", "", "Path to payload JSON file (overrides --payload)")

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

	payloadJSON, err := loadJSONInput(*payload, *payloadFile, "payload")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid payload: %v\n", err)
		return 2
	}

	item, err := payloadschema.ValidateRawPostPayload(payloadJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid payload: %v\n", err)
		return 2
	}

	publishedAt, err := item.PublishedAtTime()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid payload: %v\n", err)
		return 2
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

	payloadHash := sha256.Sum256(payloadJSON)
	inserted, err := pool.InsertRawPost(ctx, db.RawPostParams{
		Source:       strings.TrimSpace(item.Source),
		SourceItemID: strings.TrimSpace(item.SourceItemID),
		SourceURL:    item.SourceURL,
		BodyText:     item.BodyText,
		MediaURLs:    item.MediaURLs,
		Likes:        item.Likes,
		Comments:     item.Comments,
		Shares:       item.Shares,
		Views:        item.Views,
		PublishedAt:  publishedAt,
		PayloadHash:  payloadHash[:],
	})
	if err != nil {
		logger.Error().Err(err).
			Str("source", item.Source).
			Str("source_item_id", item.SourceItemID).
			Msg("raw post insert failed")
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		return 1
	}

	fmt.Printf("source=%s source_item_id=%s inserted=%t payload_hash=%x\n",
		item.Source, item.SourceItemID, inserted, payloadHash[:8])
	return 0
}

func loadJSONInput(inlineValue, filePath, label string) (json.RawMessage, error) {
	if path := strings.TrimSpace(filePath); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s file: %w", label, err)
		}
		return json.RawMessage(content), nil
	}

	inline := strings.TrimSpace(inlineValue)
	if inline == "" {
		return nil, fmt.Errorf("%s is required (use --%s or --%s-file)", label, label, label)
	}
	return json.RawMessage(inline), nil
}
