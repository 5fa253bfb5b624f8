package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"cityvibe/internal/config"
	"cityvibe/internal/models"
)

// Source fetches the raw event records published by one venue.
// Implementations return loose key/value records in publication order;
// shaping them is the pipeline's job, not the source's.
type Source interface {
	Fetch(ctx context.Context) ([]map[string]any, error)
}

// New builds the Source described by a venue's scraper configuration.
// An unknown kind is a configuration error, not a silent no-op.
func New(venue *models.Venue, cfg config.ScrapeConfig, logger *zap.Logger) (Source, error) {
	sc, err := venue.SourceConfig()
	if err != nil {
		return nil, fmt.Errorf("scraper config for venue %q: %w", venue.Name, err)
	}
	switch sc.Kind {
	case "", "feed":
		if sc.FeedURL == "" {
			return nil, fmt.Errorf("venue %q has no feed url", venue.Name)
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		return &feedSource{
			url:       sc.FeedURL,
			userAgent: cfg.UserAgent,
			client:    &http.Client{Timeout: timeout},
			logger:    logger,
		}, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q for venue %q", sc.Kind, venue.Name)
	}
}

// feedSource reads a JSON feed. Venues publish either a bare array of
// records or an object wrapping the array under a well-known key.
type feedSource struct {
	url       string
	userAgent string
	client    *http.Client
	logger    *zap.Logger
}

func (f *feedSource) Fetch(ctx context.Context) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s: unexpected status %d", f.url, resp.StatusCode)
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	var payload any
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("feed %s: decode: %w", f.url, err)
	}
	records, err := recordsFrom(payload)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", f.url, err)
	}
	f.logger.Debug("feed fetched", zap.String("url", f.url), zap.Int("records", len(records)))
	return records, nil
}

func recordsFrom(payload any) ([]map[string]any, error) {
	switch p := payload.(type) {
	case []any:
		return recordList(p), nil
	case map[string]any:
		for _, key := range []string{"events", "items", "data", "results"} {
			if list, ok := p[key].([]any); ok {
				return recordList(list), nil
			}
		}
	}
	return nil, errors.New("unrecognized feed shape")
}

// recordList keeps only object entries; scalar noise in a feed is not
// worth failing the fetch over.
func recordList(list []any) []map[string]any {
	records := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if rec, ok := item.(map[string]any); ok {
			records = append(records, rec)
		}
	}
	return records
}
