package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cityvibe/internal/config"
	"cityvibe/internal/pipeline"
)

// NominatimGeocoder resolves free-form addresses through the
// OpenStreetMap Nominatim search API. Nominatim requires a descriptive
// User-Agent, so one is always sent.
type NominatimGeocoder struct {
	baseURL   string
	userAgent string
	client    *http.Client
	logger    *zap.Logger
}

func NewNominatimGeocoder(cfg config.GeocodeConfig, logger *zap.Logger) *NominatimGeocoder {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "cityvibe-etl/1.0"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NominatimGeocoder{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode looks up the best match for query. A nil result with nil
// error means the provider knows no such place.
func (g *NominatimGeocoder) Geocode(ctx context.Context, query string) (*pipeline.Coordinates, error) {
	params := url.Values{
		"q":      {query},
		"format": {"json"},
		"limit":  {"1"},
	}
	endpoint := fmt.Sprintf("%s/search?%s", g.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim: unexpected status %d", resp.StatusCode)
	}
	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("nominatim: decode response: %w", err)
	}
	if len(results) == 0 {
		g.logger.Debug("no geocoding match", zap.String("query", query))
		return nil, nil
	}
	lat, err := decimal.NewFromString(results[0].Lat)
	if err != nil {
		return nil, fmt.Errorf("nominatim: parse latitude: %w", err)
	}
	lon, err := decimal.NewFromString(results[0].Lon)
	if err != nil {
		return nil, fmt.Errorf("nominatim: parse longitude: %w", err)
	}
	return &pipeline.Coordinates{Latitude: lat, Longitude: lon}, nil
}
