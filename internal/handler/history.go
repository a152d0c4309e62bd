package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"eventarb/internal/repository"
)

// HistoryHandler serves persisted cycles. It is only registered when a
// database is configured.
type HistoryHandler struct {
	Repo repository.Repository
}

func (h *HistoryHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1")
	group.GET("/cycles", h.listCycles)
	group.GET("/decisions", h.listDecisions)
	group.GET("/reports/:date", h.getReport)
}

// @Summary List recent cycles
// @Tags history
// @Param limit query int false "max rows (default 50)"
// @Success 200 {object} envelope
// @Router /api/v1/cycles [get]
func (h *HistoryHandler) listCycles(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	items, err := h.Repo.ListScanRecords(c.Request.Context(), limit)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"limit": limit, "count": len(items)})
}

// @Summary List trade decisions
// @Tags history
// @Param cycle_id query string false "cycle id"
// @Param market_id query string false "market id"
// @Param executed query bool false "executed decisions only"
// @Param since query string false "RFC3339 lower bound"
// @Param limit query int false "max rows (default 100)"
// @Success 200 {object} envelope
// @Failure 400 {object} envelope
// @Router /api/v1/decisions [get]
func (h *HistoryHandler) listDecisions(c *gin.Context) {
	params := repository.ListDecisionsParams{
		CycleID:      strings.TrimSpace(c.Query("cycle_id")),
		MarketID:     strings.TrimSpace(c.Query("market_id")),
		ExecutedOnly: boolQueryDefault(c, "executed", false),
		Limit:        intQuery(c, "limit", 100),
	}
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid since, want RFC3339", nil)
			return
		}
		params.Since = &since
	}
	items, err := h.Repo.ListTradeDecisions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"limit": params.Limit, "count": len(items)})
}

// @Summary Get a persisted daily report
// @Tags history
// @Param date path string true "day in YYYY-MM-DD"
// @Success 200 {object} envelope
// @Failure 404 {object} envelope
// @Router /api/v1/reports/{date} [get]
func (h *HistoryHandler) getReport(c *gin.Context) {
	date := c.Param("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		Error(c, http.StatusBadRequest, "invalid date, want YYYY-MM-DD", nil)
		return
	}
	item, err := h.Repo.GetDailyReport(c.Request.Context(), date)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "report not found", nil)
		return
	}
	Ok(c, json.RawMessage(item.Payload), nil)
}

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil && i > 0 {
			return i
		}
	}
	return def
}

func boolQueryDefault(c *gin.Context, key string, def bool) bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return def
}
