package gormrepository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cityvibe/internal/models"
	"cityvibe/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Venues ------------------------------------------------------------------

func (s *Store) GetVenue(ctx context.Context, id uuid.UUID) (*models.Venue, error) {
	if s == nil || s.db == nil || id == uuid.Nil {
		return nil, nil
	}
	var item models.Venue
	err := s.db.WithContext(ctx).Model(&models.Venue{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListVenues(ctx context.Context, params repository.ListVenuesParams) ([]models.Venue, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyVenueFilters(s.db.WithContext(ctx).Model(&models.Venue{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "name")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Venue
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountVenues(ctx context.Context, params repository.ListVenuesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := applyVenueFilters(s.db.WithContext(ctx).Model(&models.Venue{}), params)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func applyVenueFilters(query *gorm.DB, params repository.ListVenuesParams) *gorm.DB {
	if params.Active != nil {
		query = query.Where("active = ?", *params.Active)
	}
	if params.City != nil && strings.TrimSpace(*params.City) != "" {
		query = query.Where("LOWER(city) = LOWER(?)", strings.TrimSpace(*params.City))
	}
	return query
}

func (s *Store) UpsertVenue(ctx context.Context, item *models.Venue) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.WebsiteURL) == "" {
		return nil
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "website_url"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"city",
			"state",
			"country",
			"latitude",
			"longitude",
			"venue_type",
			"timezone",
			"scraper_config",
			"active",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) TouchVenueScraped(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s == nil || s.db == nil || id == uuid.Nil {
		return nil
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return s.db.WithContext(ctx).
		Model(&models.Venue{}).
		Where("id = ?", id).
		Updates(map[string]any{"last_scraped_at": at, "updated_at": time.Now().UTC()}).
		Error
}

// --- Events ------------------------------------------------------------------

func (s *Store) FindEventsBySignatures(ctx context.Context, venueID uuid.UUID, signatures []string) ([]models.Event, error) {
	if s == nil || s.db == nil || venueID == uuid.Nil {
		return nil, nil
	}
	signatures = cleanStrings(signatures)
	if len(signatures) == 0 {
		return nil, nil
	}
	var items []models.Event
	if err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("venue_id = ?", venueID).
		Where("signature IN ?", signatures).
		Order("last_seen_at desc, id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListRecentEventsByVenue(ctx context.Context, venueID uuid.UUID, since time.Time, limit int) ([]models.Event, error) {
	if s == nil || s.db == nil || venueID == uuid.Nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 500)
	query := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("venue_id = ?", venueID)
	if !since.IsZero() {
		query = query.Where("last_seen_at >= ?", since)
	}
	var items []models.Event
	if err := query.Order("last_seen_at desc, id asc").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreateEvent(ctx context.Context, item *models.Event) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(item).Error
}

// UpdateEvent refreshes the mutable fields of an existing row. Zero-value
// fields on item are left untouched, so absent draft fields never erase
// previously stored data.
func (s *Store) UpdateEvent(ctx context.Context, id uuid.UUID, item *models.Event) error {
	if s == nil || s.db == nil || item == nil || id == uuid.Nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", id).
		Updates(item).
		Error
}

func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	if s == nil || s.db == nil || id == uuid.Nil {
		return nil, nil
	}
	var item models.Event
	err := s.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListEvents(ctx context.Context, params repository.ListEventsParams) ([]models.Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyEventFilters(s.db.WithContext(ctx).Model(&models.Event{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "start_time")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Event
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountEvents(ctx context.Context, params repository.ListEventsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := applyEventFilters(s.db.WithContext(ctx).Model(&models.Event{}), params)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func applyEventFilters(query *gorm.DB, params repository.ListEventsParams) *gorm.DB {
	if params.VenueID != nil && *params.VenueID != uuid.Nil {
		query = query.Where("venue_id = ?", *params.VenueID)
	}
	if params.City != nil && strings.TrimSpace(*params.City) != "" {
		query = query.Where("LOWER(city) = LOWER(?)", strings.TrimSpace(*params.City))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("start_time >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("start_time < ?", *params.Until)
	}
	if params.Title != nil && strings.TrimSpace(*params.Title) != "" {
		query = query.Where("title ILIKE ?", "%"+strings.TrimSpace(*params.Title)+"%")
	}
	return query
}

// --- Scrape runs ---------------------------------------------------------------

func (s *Store) CreateScrapeRun(ctx context.Context, item *models.ScrapeRun) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) FinishScrapeRun(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if s == nil || s.db == nil || id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	return s.db.WithContext(ctx).
		Model(&models.ScrapeRun{}).
		Where("id = ?", id).
		Updates(updates).
		Error
}

func (s *Store) ListScrapeRuns(ctx context.Context, params repository.ListScrapeRunsParams) ([]models.ScrapeRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyScrapeRunFilters(s.db.WithContext(ctx).Model(&models.ScrapeRun{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "started_at")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.ScrapeRun
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountScrapeRuns(ctx context.Context, params repository.ListScrapeRunsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := applyScrapeRunFilters(s.db.WithContext(ctx).Model(&models.ScrapeRun{}), params)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func applyScrapeRunFilters(query *gorm.DB, params repository.ListScrapeRunsParams) *gorm.DB {
	if params.VenueID != nil && *params.VenueID != uuid.Nil {
		query = query.Where("venue_id = ?", *params.VenueID)
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("started_at >= ?", *params.Since)
	}
	return query
}

// --- helpers -------------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, raw := range items {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	return out
}
