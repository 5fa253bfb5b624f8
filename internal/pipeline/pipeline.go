package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"cityvibe/internal/config"
	"cityvibe/internal/models"
	"cityvibe/internal/repository"
)

// Processor sequences normalize, validate, deduplicate, enrich and
// persist over one batch of raw records for a single venue. Per-record
// failures are collected into the Result; only a batch-fatal condition,
// such as the store becoming unreachable, is returned as an error.
type Processor struct {
	Repo   repository.Repository
	Enrich *Enricher
	Config config.PipelineConfig
	Logger *zap.Logger
}

// Process runs the full pipeline over one batch. It always returns a
// Result, complete up to the point of failure; the error is non-nil
// only for batch-fatal conditions and always wraps ErrBatchFatal.
func (p *Processor) Process(ctx context.Context, venueID uuid.UUID, rawEvents []map[string]any) (*Result, error) {
	result := &Result{Processed: len(rawEvents)}

	venue, err := p.Repo.GetVenue(ctx, venueID)
	if err != nil {
		return result, fmt.Errorf("%w: load venue: %v", ErrBatchFatal, err)
	}
	if venue == nil {
		return result, fmt.Errorf("%w: venue %s not found", ErrBatchFatal, venueID)
	}
	info := venueInfoFor(venue)

	drafts := make([]*Draft, 0, len(rawEvents))
	for i, raw := range rawEvents {
		d, err := Normalize(raw, info)
		if err != nil {
			result.Invalid++
			result.addError(i, StageNormalize, err.Error())
			continue
		}
		d.Index = i
		drafts = append(drafts, d)
	}

	valid, rejected := ValidateBatch(drafts)
	for _, rej := range rejected {
		result.Invalid++
		result.addError(rej.Draft.Index, StageValidate, strings.Join(rej.Reasons, "; "))
	}

	// Signatures are fixed before the history load so the exact-match
	// lookup can cover the whole batch in one query.
	for _, d := range valid {
		d.Signature = SignatureOf(d)
	}
	history, err := p.loadHistory(ctx, venueID, valid)
	if err != nil {
		return result, fmt.Errorf("%w: load dedup history: %v", ErrBatchFatal, err)
	}

	dedup := &Deduplicator{Threshold: p.Config.FuzzyThreshold, TimeTolerance: p.Config.TimeTolerance}
	decisions, skipped := dedup.Deduplicate(valid, history)
	for _, skip := range skipped {
		result.Invalid++
		result.Errors = append(result.Errors, skip)
	}

	toPersist := make([]Decision, 0, len(decisions))
	for _, dec := range decisions {
		if dec.Kind == DecisionDuplicate {
			result.Duplicate++
			continue
		}
		toPersist = append(toPersist, dec)
	}

	enrichable := make([]*Draft, len(toPersist))
	for i, dec := range toPersist {
		enrichable[i] = dec.Draft
	}
	if p.Enrich != nil {
		result.Errors = append(result.Errors, p.Enrich.EnrichAll(ctx, enrichable)...)
	}

	if err := p.persist(ctx, toPersist, result); err != nil {
		return result, err
	}

	p.Logger.Info("batch processed",
		zap.String("venue_id", venueID.String()),
		zap.String("venue", venue.Name),
		zap.Int("processed", result.Processed),
		zap.Int("new", result.New),
		zap.Int("updated", result.Updated),
		zap.Int("duplicate", result.Duplicate),
		zap.Int("invalid", result.Invalid),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

// loadHistory builds the read-only snapshot the deduplicator scans:
// exact signature matches for the batch first, then a bounded window of
// recently seen events for the venue.
func (p *Processor) loadHistory(ctx context.Context, venueID uuid.UUID, drafts []*Draft) ([]HistoryEvent, error) {
	sigs := make([]string, 0, len(drafts))
	for _, d := range drafts {
		sigs = append(sigs, d.Signature)
	}
	matched, err := p.Repo.FindEventsBySignatures(ctx, venueID, sigs)
	if err != nil {
		return nil, err
	}
	since := time.Now().UTC().AddDate(0, 0, -p.historyDays())
	recent, err := p.Repo.ListRecentEventsByVenue(ctx, venueID, since, p.historyLimit())
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(matched)+len(recent))
	history := make([]HistoryEvent, 0, len(matched)+len(recent))
	for _, ev := range append(matched, recent...) {
		if _, ok := seen[ev.ID]; ok {
			continue
		}
		seen[ev.ID] = struct{}{}
		history = append(history, HistoryEvent{
			ID:        ev.ID,
			VenueID:   ev.VenueID,
			Title:     ev.Title,
			StartTime: ev.StartTime,
			Signature: ev.Signature,
		})
	}
	return history, nil
}

func (p *Processor) persist(ctx context.Context, decisions []Decision, result *Result) error {
	for _, dec := range decisions {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrBatchFatal, err)
		}
		row := draftRow(dec.Draft)
		var err error
		switch dec.Kind {
		case DecisionNew:
			err = p.Repo.CreateEvent(ctx, row)
		case DecisionUpdate:
			err = p.Repo.UpdateEvent(ctx, dec.ExistingID, row)
		default:
			continue
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("%w: persist: %v", ErrBatchFatal, err)
			}
			result.addError(dec.Draft.Index, StagePersist, err.Error())
			p.Logger.Error("persist failed",
				zap.Int("record", dec.Draft.Index),
				zap.String("title", dec.Draft.Title),
				zap.Error(err))
			continue
		}
		switch dec.Kind {
		case DecisionNew:
			result.New++
		case DecisionUpdate:
			result.Updated++
		}
	}
	return nil
}

func (p *Processor) historyDays() int {
	if p.Config.HistoryDays > 0 {
		return p.Config.HistoryDays
	}
	return 90
}

func (p *Processor) historyLimit() int {
	if p.Config.HistoryLimit > 0 {
		return p.Config.HistoryLimit
	}
	return 500
}

func venueInfoFor(v *models.Venue) VenueInfo {
	info := VenueInfo{ID: v.ID, Name: v.Name, City: v.City}
	if v.Timezone != nil {
		info.Timezone = *v.Timezone
	}
	if cfg, err := v.SourceConfig(); err == nil {
		info.TimeLayout = cfg.TimeLayout
	}
	return info
}

// draftRow maps a draft onto the storage model. JSON columns are left
// nil when empty so updates never overwrite stored values with blanks.
func draftRow(d *Draft) *models.Event {
	row := &models.Event{
		VenueID:     d.VenueID,
		Title:       d.Title,
		Description: d.Description,
		StartTime:   d.StartTime,
		EndTime:     d.EndTime,
		Address:     d.Address,
		City:        d.City,
		PostalCode:  d.PostalCode,
		Latitude:    d.Latitude,
		Longitude:   d.Longitude,
		PriceMin:    d.PriceMin,
		PriceMax:    d.PriceMax,
		Currency:    d.Currency,
		SourceURL:   d.SourceURL,
		ImageURL:    d.ImageURL,
		Signature:   d.Signature,
		LastSeenAt:  time.Now().UTC(),
	}
	if len(d.Tags) > 0 {
		row.Tags = mustJSON(d.Tags)
	}
	if len(d.Embedding) > 0 {
		row.Embedding = mustJSON(d.Embedding)
	}
	if len(d.Raw) > 0 {
		row.Raw = mustJSON(d.Raw)
	}
	return row
}

func mustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
