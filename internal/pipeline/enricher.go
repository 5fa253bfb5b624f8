package pipeline

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Coordinates is a geocoding result.
type Coordinates struct {
	Latitude  decimal.Decimal
	Longitude decimal.Decimal
}

// Geocoder resolves a free-form address to coordinates. A nil result
// with a nil error means the address is unknown to the provider.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*Coordinates, error)
}

// Tagger derives tags from event text.
type Tagger interface {
	Tags(ctx context.Context, title, description string) ([]string, error)
}

// Embedder produces a vector representation of event text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Enricher augments drafts through the optional providers. Every
// provider call is bounded by Timeout and every failure is absorbed as
// a per-draft warning that leaves the field unset; enrichment never
// fails a draft or a batch. A nil provider skips its step.
type Enricher struct {
	Geocoder Geocoder
	Tagger   Tagger
	Embedder Embedder
	Workers  int
	Timeout  time.Duration
	Logger   *zap.Logger
}

// EnrichAll enriches the drafts concurrently, at most Workers at a
// time. Drafts share no state, so workers never contend; one draft's
// failure or timeout leaves its siblings untouched. Cancelling ctx
// abandons the calls still in flight while completed drafts keep
// whatever enrichment they already obtained.
func (e *Enricher) EnrichAll(ctx context.Context, drafts []*Draft) []RecordError {
	if len(drafts) == 0 {
		return nil
	}
	perDraft := make([][]RecordError, len(drafts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workerLimit())
	for i, d := range drafts {
		g.Go(func() error {
			perDraft[i] = e.enrichOne(gctx, d)
			return nil
		})
	}
	_ = g.Wait()

	var warnings []RecordError
	for _, w := range perDraft {
		warnings = append(warnings, w...)
	}
	return warnings
}

// enrichOne runs geocode, tags, embedding in that order. The steps are
// independent, but the fixed order keeps logs and tests reproducible.
func (e *Enricher) enrichOne(ctx context.Context, d *Draft) []RecordError {
	var warnings []RecordError

	if e.Geocoder != nil && (d.Latitude == nil || d.Longitude == nil) {
		if query := d.geocodeQuery(); query != "" {
			coords, err := e.geocode(ctx, query)
			if err != nil {
				warnings = append(warnings, RecordError{RecordIndex: d.Index, Stage: StageEnrich, Reason: "geocode: " + err.Error()})
				e.Logger.Warn("geocoding failed",
					zap.Int("record", d.Index),
					zap.String("title", d.Title),
					zap.Error(err))
			} else if coords != nil {
				d.Latitude = &coords.Latitude
				d.Longitude = &coords.Longitude
			}
		}
	}

	if e.Tagger != nil && len(d.Tags) == 0 {
		tags, err := e.tags(ctx, d)
		if err != nil {
			warnings = append(warnings, RecordError{RecordIndex: d.Index, Stage: StageEnrich, Reason: "tags: " + err.Error()})
			e.Logger.Warn("tag extraction failed",
				zap.Int("record", d.Index),
				zap.String("title", d.Title),
				zap.Error(err))
		} else {
			d.Tags = tags
		}
	}

	if e.Embedder != nil && len(d.Embedding) == 0 {
		vec, err := e.embed(ctx, d)
		if err != nil {
			warnings = append(warnings, RecordError{RecordIndex: d.Index, Stage: StageEnrich, Reason: "embedding: " + err.Error()})
			e.Logger.Warn("embedding failed",
				zap.Int("record", d.Index),
				zap.String("title", d.Title),
				zap.Error(err))
		} else {
			d.Embedding = vec
		}
	}
	return warnings
}

func (e *Enricher) geocode(ctx context.Context, query string) (*Coordinates, error) {
	ctx, cancel := e.callContext(ctx)
	defer cancel()
	return e.Geocoder.Geocode(ctx, query)
}

func (e *Enricher) tags(ctx context.Context, d *Draft) ([]string, error) {
	ctx, cancel := e.callContext(ctx)
	defer cancel()
	desc := ""
	if d.Description != nil {
		desc = *d.Description
	}
	return e.Tagger.Tags(ctx, d.Title, desc)
}

func (e *Enricher) embed(ctx context.Context, d *Draft) ([]float64, error) {
	ctx, cancel := e.callContext(ctx)
	defer cancel()
	return e.Embedder.Embed(ctx, d.embeddingText())
}

func (e *Enricher) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.Timeout > 0 {
		return context.WithTimeout(ctx, e.Timeout)
	}
	return context.WithCancel(ctx)
}

func (e *Enricher) workerLimit() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return 4
}
