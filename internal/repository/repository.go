package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cityvibe/internal/models"
)

// Repository is the storage surface shared by the pipeline, the sync
// service and the ops handlers.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Venues
	GetVenue(ctx context.Context, id uuid.UUID) (*models.Venue, error)
	ListVenues(ctx context.Context, params ListVenuesParams) ([]models.Venue, error)
	CountVenues(ctx context.Context, params ListVenuesParams) (int64, error)
	UpsertVenue(ctx context.Context, item *models.Venue) error
	TouchVenueScraped(ctx context.Context, id uuid.UUID, at time.Time) error

	// Events
	FindEventsBySignatures(ctx context.Context, venueID uuid.UUID, signatures []string) ([]models.Event, error)
	ListRecentEventsByVenue(ctx context.Context, venueID uuid.UUID, since time.Time, limit int) ([]models.Event, error)
	CreateEvent(ctx context.Context, item *models.Event) error
	UpdateEvent(ctx context.Context, id uuid.UUID, item *models.Event) error
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListEvents(ctx context.Context, params ListEventsParams) ([]models.Event, error)
	CountEvents(ctx context.Context, params ListEventsParams) (int64, error)

	// Scrape runs
	CreateScrapeRun(ctx context.Context, item *models.ScrapeRun) error
	FinishScrapeRun(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListScrapeRuns(ctx context.Context, params ListScrapeRunsParams) ([]models.ScrapeRun, error)
	CountScrapeRuns(ctx context.Context, params ListScrapeRunsParams) (int64, error)
}

type ListVenuesParams struct {
	Limit   int
	Offset  int
	Active  *bool
	City    *string
	OrderBy string
	Asc     *bool
}

type ListEventsParams struct {
	Limit   int
	Offset  int
	VenueID *uuid.UUID
	City    *string
	Since   *time.Time
	Until   *time.Time
	Title   *string
	OrderBy string
	Asc     *bool
}

type ListScrapeRunsParams struct {
	Limit   int
	Offset  int
	VenueID *uuid.UUID
	Status  *string
	Since   *time.Time
	OrderBy string
	Asc     *bool
}
