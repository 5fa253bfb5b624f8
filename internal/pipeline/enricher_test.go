package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type stubGeocoder struct {
	mu        sync.Mutex
	calls     int
	coords    *Coordinates
	err       error
	slowQuery string
}

func (g *stubGeocoder) Geocode(ctx context.Context, query string) (*Coordinates, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.slowQuery != "" && strings.Contains(query, g.slowQuery) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.coords, nil
}

type stubTagger struct {
	mu    sync.Mutex
	calls int
	tags  []string
	err   error
}

func (s *stubTagger) Tags(ctx context.Context, title, description string) ([]string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.tags, s.err
}

type stubEmbedder struct {
	mu    sync.Mutex
	calls int
	vec   []float64
	err   error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.vec, s.err
}

func amsterdamCoords() *Coordinates {
	return &Coordinates{
		Latitude:  decimal.NewFromFloat(52.3676),
		Longitude: decimal.NewFromFloat(4.9041),
	}
}

func enrichDraft(index int, address string) *Draft {
	d := &Draft{Index: index, Title: "Jazz Night", VenueID: dedupVenue}
	if address != "" {
		d.Address = &address
	}
	return d
}

func TestEnrichAll_FillsFields(t *testing.T) {
	geo := &stubGeocoder{coords: amsterdamCoords()}
	tagger := &stubTagger{tags: []string{"music"}}
	embedder := &stubEmbedder{vec: []float64{0.1, 0.2}}
	e := &Enricher{Geocoder: geo, Tagger: tagger, Embedder: embedder, Logger: zap.NewNop()}

	d := enrichDraft(0, "Kalverstraat 92")
	warnings := e.EnrichAll(context.Background(), []*Draft{d})
	if warnings != nil {
		t.Fatalf("warnings=%v", warnings)
	}
	if d.Latitude == nil || d.Latitude.String() != "52.3676" {
		t.Fatalf("latitude=%v", d.Latitude)
	}
	if d.Longitude == nil || d.Longitude.String() != "4.9041" {
		t.Fatalf("longitude=%v", d.Longitude)
	}
	if len(d.Tags) != 1 || d.Tags[0] != "music" {
		t.Fatalf("tags=%v", d.Tags)
	}
	if len(d.Embedding) != 2 {
		t.Fatalf("embedding=%v", d.Embedding)
	}
}

func TestEnrichAll_SkipsFilledFields(t *testing.T) {
	geo := &stubGeocoder{coords: amsterdamCoords()}
	tagger := &stubTagger{tags: []string{"music"}}
	embedder := &stubEmbedder{vec: []float64{0.1}}
	e := &Enricher{Geocoder: geo, Tagger: tagger, Embedder: embedder, Logger: zap.NewNop()}

	lat := decimal.NewFromFloat(51.9)
	lon := decimal.NewFromFloat(4.5)
	d := enrichDraft(0, "Kalverstraat 92")
	d.Latitude = &lat
	d.Longitude = &lon
	d.Tags = []string{"theatre"}
	d.Embedding = []float64{0.9}

	if warnings := e.EnrichAll(context.Background(), []*Draft{d}); warnings != nil {
		t.Fatalf("warnings=%v", warnings)
	}
	if geo.calls != 0 || tagger.calls != 0 || embedder.calls != 0 {
		t.Fatalf("providers called for filled fields: geo=%d tags=%d embed=%d", geo.calls, tagger.calls, embedder.calls)
	}
	if d.Latitude.String() != "51.9" || d.Tags[0] != "theatre" || d.Embedding[0] != 0.9 {
		t.Fatalf("existing values overwritten: %+v", d)
	}
}

func TestEnrichAll_NoAddressSkipsGeocode(t *testing.T) {
	geo := &stubGeocoder{coords: amsterdamCoords()}
	tagger := &stubTagger{tags: []string{"music"}}
	e := &Enricher{Geocoder: geo, Tagger: tagger, Logger: zap.NewNop()}

	d := enrichDraft(0, "")
	if warnings := e.EnrichAll(context.Background(), []*Draft{d}); warnings != nil {
		t.Fatalf("warnings=%v", warnings)
	}
	if geo.calls != 0 {
		t.Fatalf("geocoder called without an address")
	}
	if len(d.Tags) != 1 {
		t.Fatalf("tags=%v", d.Tags)
	}
}

func TestEnrichAll_UnknownPlace(t *testing.T) {
	geo := &stubGeocoder{} // nil coords, nil error
	e := &Enricher{Geocoder: geo, Logger: zap.NewNop()}

	d := enrichDraft(0, "Nowhere 1")
	if warnings := e.EnrichAll(context.Background(), []*Draft{d}); warnings != nil {
		t.Fatalf("an unknown place is not a failure, got %v", warnings)
	}
	if d.Latitude != nil || d.Longitude != nil {
		t.Fatalf("coords=%v/%v want nil", d.Latitude, d.Longitude)
	}
}

func TestEnrichAll_NilProviders(t *testing.T) {
	e := &Enricher{Logger: zap.NewNop()}
	d := enrichDraft(0, "Kalverstraat 92")
	if warnings := e.EnrichAll(context.Background(), []*Draft{d}); warnings != nil {
		t.Fatalf("warnings=%v", warnings)
	}
	if d.Latitude != nil || d.Tags != nil || d.Embedding != nil {
		t.Fatalf("draft changed without providers: %+v", d)
	}
}

func TestEnrichAll_TaggerFailureIsIsolated(t *testing.T) {
	tagger := &stubTagger{err: errors.New("model offline")}
	embedder := &stubEmbedder{vec: []float64{0.1}}
	e := &Enricher{Tagger: tagger, Embedder: embedder, Logger: zap.NewNop()}

	d := enrichDraft(0, "")
	warnings := e.EnrichAll(context.Background(), []*Draft{d})
	if len(warnings) != 1 || warnings[0].RecordIndex != 0 {
		t.Fatalf("warnings=%v", warnings)
	}
	if !strings.HasPrefix(warnings[0].Reason, "tags:") {
		t.Fatalf("reason=%q", warnings[0].Reason)
	}
	if d.Tags != nil {
		t.Fatalf("tags=%v want nil after failure", d.Tags)
	}
	if len(d.Embedding) != 1 {
		t.Fatalf("embedding step skipped after tagger failure")
	}
}

func TestEnrichAll_SlowGeocodeDoesNotStallSiblings(t *testing.T) {
	geo := &stubGeocoder{coords: amsterdamCoords(), slowQuery: "slow"}
	tagger := &stubTagger{tags: []string{"music"}}
	embedder := &stubEmbedder{vec: []float64{0.1}}
	e := &Enricher{
		Geocoder: geo,
		Tagger:   tagger,
		Embedder: embedder,
		Workers:  4,
		Timeout:  50 * time.Millisecond,
		Logger:   zap.NewNop(),
	}

	drafts := make([]*Draft, 10)
	for i := range drafts {
		addr := fmt.Sprintf("Fast Street %d", i)
		if i == 3 {
			addr = "slow street 3"
		}
		drafts[i] = enrichDraft(i, addr)
	}

	warnings := e.EnrichAll(context.Background(), drafts)
	if len(warnings) != 1 {
		t.Fatalf("warnings=%v want exactly one", warnings)
	}
	if warnings[0].RecordIndex != 3 || !strings.HasPrefix(warnings[0].Reason, "geocode:") {
		t.Fatalf("warning=%+v", warnings[0])
	}
	for i, d := range drafts {
		if i == 3 {
			if d.Latitude != nil {
				t.Fatalf("draft 3 got coordinates despite the timeout")
			}
		} else if d.Latitude == nil {
			t.Fatalf("draft %d missing coordinates", i)
		}
		// The later steps still run for the draft whose geocode timed out.
		if len(d.Tags) != 1 || len(d.Embedding) != 1 {
			t.Fatalf("draft %d tags=%v embedding=%v", i, d.Tags, d.Embedding)
		}
	}
}
