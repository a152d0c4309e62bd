package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"eventarb/internal/models"
	"eventarb/internal/repository"
)

// DBSink stores scan records and decisions as rows and the day aggregate as
// a JSON document.
type DBSink struct {
	repo repository.Repository
	agg  *Aggregator
	now  func() time.Time
}

// NewDBSink resumes today's daily_reports row when there is one.
func NewDBSink(ctx context.Context, repo repository.Repository, maxRecent int, loc *time.Location, now func() time.Time) (*DBSink, error) {
	if now == nil {
		now = time.Now
	}
	s := &DBSink{repo: repo, agg: NewAggregator(maxRecent, loc), now: now}
	today := s.agg.Date(now())
	row, err := repo.GetDailyReport(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("load daily report %s: %w", today, err)
	}
	if row != nil {
		var day Day
		if err := json.Unmarshal(row.Payload, &day); err != nil {
			return nil, fmt.Errorf("decode daily report %s: %w", today, err)
		}
		if day.Date == today {
			s.agg.Restore(day)
		}
	}
	return s, nil
}

func (s *DBSink) Record(ctx context.Context, rec ScanRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	row, decisions := toModels(rec)
	if err := s.repo.InsertScanRecord(ctx, row, decisions); err != nil {
		return err
	}
	return s.upsert(ctx, s.agg.Add(rec))
}

func (s *DBSink) Snapshot(ctx context.Context) error {
	return s.upsert(ctx, s.agg.Snapshot(s.now()))
}

func (s *DBSink) RecordGrades(ctx context.Context, grades []GradedPosition) error {
	return s.upsert(ctx, s.agg.SetGrades(s.now(), grades))
}

func (s *DBSink) DailyReport(ctx context.Context, apiCallsUsed int) (string, error) {
	day := s.agg.Finalize(s.now(), apiCallsUsed)
	if err := s.upsert(ctx, day); err != nil {
		return "", err
	}
	return "db:daily_reports/" + day.Date, nil
}

func (s *DBSink) upsert(ctx context.Context, day Day) error {
	raw, err := json.Marshal(day)
	if err != nil {
		return err
	}
	return s.repo.UpsertDailyReport(ctx, &models.DailyReport{
		ReportDate: day.Date,
		Payload:    datatypes.JSON(raw),
	})
}

func toModels(rec ScanRecord) (*models.ScanRecord, []models.TradeDecision) {
	opps, _ := json.Marshal(rec.Opportunities)
	errs, _ := json.Marshal(rec.Errors)
	row := &models.ScanRecord{
		CycleID:              rec.CycleID,
		StartedAt:            rec.Timestamp.UTC(),
		State:                rec.State,
		SkipReason:           rec.SkipReason,
		ArticlesFetched:      rec.ArticlesFetched,
		EventsExtracted:      rec.EventsExtracted,
		MarketsFetched:       rec.MarketsFetched,
		OpportunityCount:     len(rec.Opportunities),
		TradesExecuted:       rec.TradesExecuted(),
		SkippedOpportunities: rec.SkippedOpportunities,
		SkippedSearches:      rec.SkippedSearches,
		RateLimitHits:        rec.RateLimitHits,
		APICallsUsed:         rec.APICallsUsed,
		Opportunities:        datatypes.JSON(opps),
		Errors:               datatypes.JSON(errs),
	}
	decisions := make([]models.TradeDecision, 0, len(rec.Decisions))
	for _, d := range rec.Decisions {
		at := d.DecidedAt
		if at.IsZero() {
			at = rec.Timestamp
		}
		decisions = append(decisions, models.TradeDecision{
			CycleID:          rec.CycleID,
			MarketID:         d.MarketID,
			Question:         d.Question,
			Outcome:          string(d.Outcome),
			ShouldTrade:      d.ShouldTrade,
			Size:             d.Size,
			Price:            d.Price,
			Confidence:       d.Confidence,
			Reasoning:        d.Reasoning,
			Executed:         d.Executed,
			MonitorOnly:      d.MonitorOnly,
			DepositAttempted: d.DepositAttempted,
			OrderID:          d.OrderID,
			Error:            d.Error,
			DecidedAt:        at.UTC(),
		})
	}
	return row, decisions
}
