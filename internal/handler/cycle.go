package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventarb/internal/logger"
	"eventarb/internal/orchestrator"
	"eventarb/internal/report"
)

// Runner is the slice of the orchestrator the API drives.
type Runner interface {
	Status() orchestrator.Status
	RunCycle(ctx context.Context) (report.ScanRecord, error)
	Snapshot(ctx context.Context) error
	DailyReport(ctx context.Context) (string, error)
}

type CycleHandler struct {
	Runner Runner
	Logger *zap.Logger
}

func (h *CycleHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1")
	group.GET("/status", h.status)
	group.POST("/cycle", h.runCycle)
	group.POST("/snapshot", h.snapshot)
	group.POST("/daily-report", h.dailyReport)
}

// @Summary Orchestrator status
// @Tags cycle
// @Success 200 {object} envelope{data=orchestrator.Status}
// @Router /api/v1/status [get]
func (h *CycleHandler) status(c *gin.Context) {
	if h.Runner == nil {
		Error(c, http.StatusInternalServerError, "orchestrator unavailable", nil)
		return
	}
	Ok(c, h.Runner.Status(), nil)
}

// runCycle runs a cycle synchronously and returns its record. The cycle is not
// tied to the request: a client disconnect must not cancel an order in flight.
//
// @Summary Run one scan cycle
// @Tags cycle
// @Success 200 {object} envelope{data=report.ScanRecord}
// @Failure 409 {object} envelope
// @Failure 503 {object} envelope
// @Router /api/v1/cycle [post]
func (h *CycleHandler) runCycle(c *gin.Context) {
	if h.Runner == nil {
		Error(c, http.StatusInternalServerError, "orchestrator unavailable", nil)
		return
	}
	rec, err := h.Runner.RunCycle(context.WithoutCancel(c.Request.Context()))
	switch {
	case errors.Is(err, orchestrator.ErrCycleInProgress):
		Error(c, http.StatusConflict, err.Error(), nil)
		return
	case errors.Is(err, orchestrator.ErrStopped):
		Error(c, http.StatusServiceUnavailable, err.Error(), nil)
		return
	case err != nil:
		h.logger().Error("manual cycle failed", zap.Error(err))
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, rec, map[string]any{"trades": rec.TradesExecuted()})
}

// @Summary Take a position snapshot
// @Tags cycle
// @Success 200 {object} envelope
// @Failure 502 {object} envelope
// @Router /api/v1/snapshot [post]
func (h *CycleHandler) snapshot(c *gin.Context) {
	if h.Runner == nil {
		Error(c, http.StatusInternalServerError, "orchestrator unavailable", nil)
		return
	}
	if err := h.Runner.Snapshot(c.Request.Context()); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"status": "ok"}, nil)
}

// @Summary Write the daily report
// @Tags cycle
// @Success 200 {object} envelope
// @Router /api/v1/daily-report [post]
func (h *CycleHandler) dailyReport(c *gin.Context) {
	if h.Runner == nil {
		Error(c, http.StatusInternalServerError, "orchestrator unavailable", nil)
		return
	}
	path, err := h.Runner.DailyReport(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"path": path}, nil)
}

func (h *CycleHandler) logger() *zap.Logger {
	return logger.OrNop(h.Logger)
}
