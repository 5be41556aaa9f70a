// Package payloadschema validates raw post payloads at the ingest boundary.
package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed raw_post.schema.json
var rawPostSchemaJSON string

// RawPostPayload is the v1 wire shape of one harvested social post.
type RawPostPayload struct {
	PayloadVersion string         `json:"payload_version"`
	Source         string         `json:"source"`
	SourceItemID   string         `json:"source_item_id"`
	BodyText       string         `json:"body_text"`
	SourceURL      *string        `json:"source_url,omitempty"`
	MediaURLs      []string       `json:"media_urls,omitempty"`
	PublishedAt    string         `json:"published_at"`
	Likes          int64          `json:"likes,omitempty"`
	Comments       int64          `json:"comments,omitempty"`
	Shares         int64          `json:"shares,omitempty"`
	Views          int64          `json:"views,omitempty"`
	SourceMetadata map[string]any `json:"source_metadata,omitempty"`
}

// PublishedAtTime parses the validated RFC3339 timestamp.
func (p *RawPostPayload) PublishedAtTime() (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(p.PublishedAt))
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateRawPostPayload checks a payload against the embedded JSON Schema
// plus the semantic rules the schema cannot express, and decodes it.
func ValidateRawPostPayload(payload json.RawMessage) (*RawPostPayload, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var item RawPostPayload
	if err := json.Unmarshal(normalized, &item); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&item); err != nil {
		return nil, err
	}

	return &item, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("raw_post.schema.json", strings.NewReader(rawPostSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("raw_post.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(item *RawPostPayload) error {
	if item == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(item.PayloadVersion) != "v1" {
		return fmt.Errorf("payload_version must be v1")
	}
	if strings.TrimSpace(item.Source) == "" {
		return fmt.Errorf("source must not be empty")
	}
	if strings.TrimSpace(item.SourceItemID) == "" {
		return fmt.Errorf("source_item_id must not be empty")
	}
	if strings.TrimSpace(item.BodyText) == "" {
		return fmt.Errorf("body_text must not be empty")
	}

	if _, err := item.PublishedAtTime(); err != nil {
		return fmt.Errorf("published_at must be RFC3339: %w", err)
	}

	if item.SourceURL != nil {
		if err := validateURI("source_url", *item.SourceURL); err != nil {
			return err
		}
	}
	for i, mediaURL := range item.MediaURLs {
		if err := validateURI(fmt.Sprintf("media_urls[%d]", i), mediaURL); err != nil {
			return err
		}
	}

	if item.Likes < 0 || item.Comments < 0 || item.Shares < 0 || item.Views < 0 {
		return fmt.Errorf("engagement counters must not be negative")
	}

	return nil
}

func validateURI(fieldName, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", fieldName)
	}
	parsed, err := url.ParseRequestURI(trimmed)
	if err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", fieldName)
	}
	return nil
}
