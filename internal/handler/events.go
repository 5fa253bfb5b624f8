package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cityvibe/internal/repository"
)

type EventHandler struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *EventHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/events")
	group.GET("", h.listEvents)
	group.GET("/:id", h.getEvent)
}

func (h *EventHandler) listEvents(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListEventsParams{
		Limit:   limit,
		Offset:  offset,
		VenueID: uuidQueryPtr(c, "venue_id"),
		City:    strQueryPtr(c, "city"),
		Since:   timeQueryPtr(c, "since"),
		Until:   timeQueryPtr(c, "until"),
		Title:   strQueryPtr(c, "title"),
		OrderBy: parseOrder(c.Query("order_by"), map[string]string{
			"start_time":   "start_time",
			"last_seen_at": "last_seen_at",
			"title":        "title",
			"created_at":   "created_at",
		}),
		Asc: boolQueryPtr(c, "ascending"),
	}
	items, err := h.Repo.ListEvents(c.Request.Context(), params)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("list events failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountEvents(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *EventHandler) getEvent(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	event, err := h.Repo.GetEvent(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if event == nil {
		NotFound(c, "event not found")
		return
	}
	Ok(c, event, nil)
}

func timeQueryPtr(c *gin.Context, key string) *time.Time {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		if t, err := time.Parse(time.RFC3339, val); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}
