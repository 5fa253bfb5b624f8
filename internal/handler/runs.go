package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cityvibe/internal/repository"
)

type RunHandler struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *RunHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/runs")
	group.GET("", h.listRuns)
}

func (h *RunHandler) listRuns(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListScrapeRunsParams{
		Limit:   limit,
		Offset:  offset,
		VenueID: uuidQueryPtr(c, "venue_id"),
		Status:  strQueryPtr(c, "status"),
		Since:   timeQueryPtr(c, "since"),
		OrderBy: parseOrder(c.Query("order_by"), map[string]string{
			"started_at":  "started_at",
			"finished_at": "finished_at",
			"status":      "status",
		}),
		Asc: boolQueryPtr(c, "ascending"),
	}
	items, err := h.Repo.ListScrapeRuns(c.Request.Context(), params)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("list scrape runs failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountScrapeRuns(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}
