package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cityvibe/internal/models"
	"cityvibe/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// events holds the persisted history rows the deduplicator sees; created
// and updated capture what the coordinator hands to persistence.
type stubRepo struct {
	venue   *models.Venue
	events  []models.Event
	created []*models.Event
	updated map[uuid.UUID]*models.Event

	venueErr        error
	findErr         error
	createErr       error
	failCreateTitle string
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func (s *stubRepo) GetVenue(ctx context.Context, id uuid.UUID) (*models.Venue, error) {
	if s.venueErr != nil {
		return nil, s.venueErr
	}
	if s.venue != nil && s.venue.ID == id {
		return s.venue, nil
	}
	return nil, nil
}

func (s *stubRepo) ListVenues(ctx context.Context, params repository.ListVenuesParams) ([]models.Venue, error) {
	if s.venue == nil {
		return nil, nil
	}
	return []models.Venue{*s.venue}, nil
}

func (s *stubRepo) CountVenues(ctx context.Context, params repository.ListVenuesParams) (int64, error) {
	return 0, nil
}

func (s *stubRepo) UpsertVenue(ctx context.Context, item *models.Venue) error { return nil }

func (s *stubRepo) TouchVenueScraped(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

func (s *stubRepo) FindEventsBySignatures(ctx context.Context, venueID uuid.UUID, signatures []string) ([]models.Event, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	want := make(map[string]struct{}, len(signatures))
	for _, sig := range signatures {
		want[sig] = struct{}{}
	}
	var out []models.Event
	for _, ev := range s.events {
		if ev.VenueID != venueID {
			continue
		}
		if _, ok := want[ev.Signature]; ok {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *stubRepo) ListRecentEventsByVenue(ctx context.Context, venueID uuid.UUID, since time.Time, limit int) ([]models.Event, error) {
	var out []models.Event
	for _, ev := range s.events {
		if ev.VenueID == venueID {
			out = append(out, ev)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *stubRepo) CreateEvent(ctx context.Context, item *models.Event) error {
	if s.createErr != nil && (s.failCreateTitle == "" || s.failCreateTitle == item.Title) {
		return s.createErr
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	s.created = append(s.created, item)
	return nil
}

func (s *stubRepo) UpdateEvent(ctx context.Context, id uuid.UUID, item *models.Event) error {
	if s.updated == nil {
		s.updated = map[uuid.UUID]*models.Event{}
	}
	s.updated[id] = item
	return nil
}

func (s *stubRepo) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return nil, nil
}

func (s *stubRepo) ListEvents(ctx context.Context, params repository.ListEventsParams) ([]models.Event, error) {
	return nil, nil
}

func (s *stubRepo) CountEvents(ctx context.Context, params repository.ListEventsParams) (int64, error) {
	return 0, nil
}

func (s *stubRepo) CreateScrapeRun(ctx context.Context, item *models.ScrapeRun) error { return nil }

func (s *stubRepo) FinishScrapeRun(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubRepo) ListScrapeRuns(ctx context.Context, params repository.ListScrapeRunsParams) ([]models.ScrapeRun, error) {
	return nil, nil
}

func (s *stubRepo) CountScrapeRuns(ctx context.Context, params repository.ListScrapeRunsParams) (int64, error) {
	return 0, nil
}
