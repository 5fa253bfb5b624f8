package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"cityvibe/internal/config"
	"cityvibe/internal/models"
	"cityvibe/internal/pipeline"
	"cityvibe/internal/repository"
	"cityvibe/internal/scraper"
)

// ErrVenueNotFound marks sync requests for venues that do not exist.
var ErrVenueNotFound = errors.New("venue not found")

// SourceFactory builds the scraper source for one venue. It is a field
// on VenueSyncService so tests can substitute canned sources.
type SourceFactory func(venue *models.Venue, cfg config.ScrapeConfig, logger *zap.Logger) (scraper.Source, error)

// VenueSyncService runs one scrape-and-process cycle per venue and
// records each cycle as a ScrapeRun row.
type VenueSyncService struct {
	Repo      repository.Repository
	Processor *pipeline.Processor
	Scrape    config.ScrapeConfig
	Logger    *zap.Logger
	Sources   SourceFactory
}

// SyncResult summarizes one pass over the active venues.
type SyncResult struct {
	Venues    int `json:"venues"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// SyncAll syncs every active venue in name order. A failing venue is
// logged and counted; the remaining venues still run.
func (s *VenueSyncService) SyncAll(ctx context.Context) (SyncResult, error) {
	active := true
	asc := true
	venues, err := s.Repo.ListVenues(ctx, repository.ListVenuesParams{
		Active:  &active,
		OrderBy: "name",
		Asc:     &asc,
		Limit:   500,
	})
	if err != nil {
		return SyncResult{}, err
	}

	result := SyncResult{Venues: len(venues)}
	for i := range venues {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		venue := &venues[i]
		if _, err := s.SyncVenue(ctx, venue); err != nil {
			result.Failed++
			if s.Logger != nil {
				s.Logger.Warn("venue sync failed",
					zap.String("venue", venue.Name),
					zap.String("venue_id", venue.ID.String()),
					zap.Error(err))
			}
			continue
		}
		result.Succeeded++
	}
	if s.Logger != nil {
		s.Logger.Info("venue sync pass finished",
			zap.Int("venues", result.Venues),
			zap.Int("succeeded", result.Succeeded),
			zap.Int("failed", result.Failed))
	}
	return result, nil
}

// SyncVenueByID resolves a venue and syncs it, for handler-triggered runs.
func (s *VenueSyncService) SyncVenueByID(ctx context.Context, id uuid.UUID) (*pipeline.Result, error) {
	venue, err := s.Repo.GetVenue(ctx, id)
	if err != nil {
		return nil, err
	}
	if venue == nil {
		return nil, fmt.Errorf("%w: %s", ErrVenueNotFound, id)
	}
	return s.SyncVenue(ctx, venue)
}

// SyncVenue fetches the venue's feed, runs the pipeline over it and
// closes out the ScrapeRun row with the batch counters. The run row is
// created up front so an aborted sync still leaves a failed record.
func (s *VenueSyncService) SyncVenue(ctx context.Context, venue *models.Venue) (*pipeline.Result, error) {
	startedAt := time.Now().UTC()
	run := &models.ScrapeRun{
		VenueID:   venue.ID,
		Status:    models.ScrapeRunRunning,
		StartedAt: startedAt,
	}
	if err := s.Repo.CreateScrapeRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create scrape run: %w", err)
	}

	src, err := s.sources()(venue, s.Scrape, s.Logger)
	if err != nil {
		s.finishRun(ctx, run.ID, models.ScrapeRunFailed, nil, err)
		return nil, err
	}
	records, err := src.Fetch(ctx)
	if err != nil {
		s.finishRun(ctx, run.ID, models.ScrapeRunFailed, nil, err)
		return nil, fmt.Errorf("fetch venue feed: %w", err)
	}

	result, err := s.Processor.Process(ctx, venue.ID, records)
	if err != nil {
		s.finishRun(ctx, run.ID, models.ScrapeRunFailed, result, err)
		return result, err
	}

	s.finishRun(ctx, run.ID, models.ScrapeRunSucceeded, result, nil)
	if err := s.Repo.TouchVenueScraped(ctx, venue.ID, time.Now().UTC()); err != nil && s.Logger != nil {
		s.Logger.Warn("touch venue failed", zap.String("venue_id", venue.ID.String()), zap.Error(err))
	}
	return result, nil
}

func (s *VenueSyncService) finishRun(ctx context.Context, id uuid.UUID, status string, result *pipeline.Result, runErr error) {
	updates := map[string]any{
		"status":      status,
		"finished_at": time.Now().UTC(),
	}
	if result != nil {
		updates["events_processed"] = result.Processed
		updates["events_new"] = result.New
		updates["events_updated"] = result.Updated
		updates["events_duplicate"] = result.Duplicate
		updates["events_invalid"] = result.Invalid
		if len(result.Errors) > 0 {
			updates["errors"] = errorsJSON(result.Errors)
		}
	}
	if runErr != nil {
		updates["error"] = runErr.Error()
	}
	if err := s.Repo.FinishScrapeRun(ctx, id, updates); err != nil && s.Logger != nil {
		s.Logger.Error("finish scrape run failed", zap.String("run_id", id.String()), zap.Error(err))
	}
}

func (s *VenueSyncService) sources() SourceFactory {
	if s.Sources != nil {
		return s.Sources
	}
	return scraper.New
}

func errorsJSON(entries []pipeline.RecordError) datatypes.JSON {
	payload, err := json.Marshal(entries)
	if err != nil {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON(payload)
}
