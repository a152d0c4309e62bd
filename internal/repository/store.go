package repository

import (
	"context"
	"time"

	"eventarb/internal/models"
)

type ListDecisionsParams struct {
	CycleID      string
	MarketID     string
	ExecutedOnly bool
	Since        *time.Time
	Limit        int
}

// Repository persists cycle history. Implementations must be safe for
// concurrent use.
type Repository interface {
	InsertScanRecord(ctx context.Context, rec *models.ScanRecord, decisions []models.TradeDecision) error
	ListScanRecords(ctx context.Context, limit int) ([]models.ScanRecord, error)
	ListTradeDecisions(ctx context.Context, params ListDecisionsParams) ([]models.TradeDecision, error)
	InsertPositionSnapshots(ctx context.Context, items []models.PositionSnapshot) error
	UpsertDailyReport(ctx context.Context, item *models.DailyReport) error
	GetDailyReport(ctx context.Context, date string) (*models.DailyReport, error)
}
