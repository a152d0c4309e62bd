package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"eventarb/internal/models"
	"eventarb/internal/position"
	"eventarb/internal/repository"
)

type Store struct {
	db *gorm.DB
}

var _ repository.Repository = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InsertScanRecord(ctx context.Context, rec *models.ScanRecord, decisions []models.TradeDecision) error {
	if s == nil || s.db == nil || rec == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		if len(decisions) == 0 {
			return nil
		}
		return tx.CreateInBatches(decisions, 100).Error
	})
}

func (s *Store) ListScanRecords(ctx context.Context, limit int) ([]models.ScanRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ScanRecord
	if err := s.db.WithContext(ctx).
		Model(&models.ScanRecord{}).
		Order("started_at desc").
		Limit(normalizeLimit(limit, 50)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListTradeDecisions(ctx context.Context, params repository.ListDecisionsParams) ([]models.TradeDecision, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.TradeDecision{})
	if v := strings.TrimSpace(params.CycleID); v != "" {
		query = query.Where("cycle_id = ?", v)
	}
	if v := strings.TrimSpace(params.MarketID); v != "" {
		query = query.Where("market_id = ?", v)
	}
	if params.ExecutedOnly {
		query = query.Where("executed = ?", true)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("decided_at >= ?", params.Since.UTC())
	}
	var items []models.TradeDecision
	if err := query.Order("decided_at desc").Limit(normalizeLimit(params.Limit, 200)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) InsertPositionSnapshots(ctx context.Context, items []models.PositionSnapshot) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(items, 100).Error
}

// SavePositionSnapshot lets the store back the position manager directly.
func (s *Store) SavePositionSnapshot(ctx context.Context, at time.Time, positions []position.Position) error {
	items := make([]models.PositionSnapshot, 0, len(positions))
	for _, p := range positions {
		item := models.PositionSnapshot{
			SnapshotAt: at.UTC(),
			MarketID:   p.MarketID,
			Outcome:    p.Outcome,
			Size:       p.Size,
			AvgPrice:   p.AvgPrice,
		}
		if !p.OpenedAt.IsZero() {
			opened := p.OpenedAt.UTC()
			item.OpenedAt = &opened
		}
		items = append(items, item)
	}
	return s.InsertPositionSnapshots(ctx, items)
}

func (s *Store) UpsertDailyReport(ctx context.Context, item *models.DailyReport) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.ReportDate) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "report_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(item).Error
}

func (s *Store) GetDailyReport(ctx context.Context, date string) (*models.DailyReport, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.DailyReport
	err := s.db.WithContext(ctx).
		Model(&models.DailyReport{}).
		Where("report_date = ?", date).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
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
