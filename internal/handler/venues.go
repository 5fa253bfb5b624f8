package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"cityvibe/internal/models"
	"cityvibe/internal/repository"
	"cityvibe/internal/service"
)

type VenueHandler struct {
	Repo   repository.Repository
	Sync   *service.VenueSyncService
	Logger *zap.Logger
}

func (h *VenueHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/venues")
	group.GET("", h.listVenues)
	group.POST("", h.upsertVenue)
	group.GET("/:id", h.getVenue)
	group.POST("/:id/sync", h.syncVenue)
}

func (h *VenueHandler) listVenues(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListVenuesParams{
		Limit:  limit,
		Offset: offset,
		Active: boolQueryPtr(c, "active"),
		City:   strQueryPtr(c, "city"),
		OrderBy: parseOrder(c.Query("order_by"), map[string]string{
			"name":            "name",
			"city":            "city",
			"last_scraped_at": "last_scraped_at",
			"created_at":      "created_at",
		}),
		Asc: boolQueryPtr(c, "ascending"),
	}
	items, err := h.Repo.ListVenues(c.Request.Context(), params)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("list venues failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountVenues(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *VenueHandler) getVenue(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	venue, err := h.Repo.GetVenue(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if venue == nil {
		NotFound(c, "venue not found")
		return
	}
	Ok(c, venue, nil)
}

type upsertVenueRequest struct {
	Name          string           `json:"name" binding:"required"`
	WebsiteURL    string           `json:"website_url" binding:"required"`
	City          string           `json:"city" binding:"required"`
	State         *string          `json:"state"`
	Country       string           `json:"country"`
	Latitude      *decimal.Decimal `json:"latitude"`
	Longitude     *decimal.Decimal `json:"longitude"`
	VenueType     *string          `json:"venue_type"`
	Timezone      *string          `json:"timezone"`
	ScraperConfig datatypes.JSON   `json:"scraper_config"`
	Active        *bool            `json:"active"`
}

func (h *VenueHandler) upsertVenue(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req upsertVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	venue := &models.Venue{
		Name:          strings.TrimSpace(req.Name),
		WebsiteURL:    strings.TrimSpace(req.WebsiteURL),
		City:          strings.TrimSpace(req.City),
		State:         req.State,
		Country:       strings.TrimSpace(req.Country),
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		VenueType:     req.VenueType,
		Timezone:      req.Timezone,
		ScraperConfig: req.ScraperConfig,
		Active:        active,
	}
	if err := h.Repo.UpsertVenue(c.Request.Context(), venue); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("upsert venue failed", zap.String("venue", venue.Name), zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, venue, nil)
}

func (h *VenueHandler) syncVenue(c *gin.Context) {
	if h.Sync == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	result, err := h.Sync.SyncVenueByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrVenueNotFound) {
			NotFound(c, err.Error())
			return
		}
		if h.Logger != nil {
			h.Logger.Warn("venue sync failed", zap.String("venue_id", id.String()), zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, result, nil)
}

func uuidParam(c *gin.Context, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(key)))
	if err != nil {
		BadRequest(c, "invalid "+key)
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func boolQueryPtr(c *gin.Context, key string) *bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return &b
		}
	}
	return nil
}

func strQueryPtr(c *gin.Context, key string) *string {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		return &val
	}
	return nil
}

func uuidQueryPtr(c *gin.Context, key string) *uuid.UUID {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		if id, err := uuid.Parse(val); err == nil {
			return &id
		}
	}
	return nil
}

func parseOrder(value string, allow map[string]string) string {
	key := strings.TrimSpace(strings.ToLower(value))
	if key == "" {
		return ""
	}
	if mapped, ok := allow[key]; ok {
		return mapped
	}
	return ""
}

func paginationMeta(limit, offset int, total int64) map[string]any {
	if limit <= 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	hasNext := int64(offset+limit) < total
	return map[string]any{
		"limit":    limit,
		"offset":   offset,
		"total":    total,
		"has_next": hasNext,
	}
}
