package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"eventarb/internal/gamma"
	"eventarb/internal/metrics"
	"eventarb/internal/pipeline"
	"eventarb/internal/report"
)

// Status is a point-in-time view for the HTTP API.
type Status struct {
	State                string             `json:"state"`
	Live                 bool               `json:"live"`
	Stopped              bool               `json:"stopped"`
	DailyTrades          int                `json:"daily_trades"`
	MaxDailyTrades       int                `json:"max_daily_trades"`
	OpenPositions        int                `json:"open_positions"`
	PositionsRefreshedAt *time.Time         `json:"positions_refreshed_at,omitempty"`
	NewsBudgetLeft       int                `json:"news_budget_left"`
	NewsRequestsDay      int                `json:"news_requests_today"`
	LastCycle            *report.ScanRecord `json:"last_cycle,omitempty"`
}

func (o *Orchestrator) Status() Status {
	st := Status{
		State:          o.State().String(),
		Live:           o.Live(),
		Stopped:        o.Stopped(),
		DailyTrades:    o.DailyTrades(),
		MaxDailyTrades: o.opts.Trading.MaxDailyTrades,
		OpenPositions:  o.deps.Positions.Count(),
		NewsBudgetLeft: o.deps.Limiter.CheckBudget(),
	}
	st.NewsRequestsDay = o.deps.Limiter.Budget().DailyRequestCount
	if at := o.deps.Positions.RefreshedAt(); !at.IsZero() {
		st.PositionsRefreshedAt = &at
	}
	if rec, ok := o.LastRecord(); ok {
		st.LastCycle = &rec
	}
	return st
}

// Snapshot refreshes positions, reads the balance, grades open positions
// against current prices and hands off to the sink. Failures of the optional
// steps are logged.
func (o *Orchestrator) Snapshot(ctx context.Context) error {
	var errs []error
	if err := o.deps.Positions.Refresh(ctx); err != nil {
		o.logger.Warn("snapshot: position refresh failed", zap.Error(err))
		errs = append(errs, err)
	}
	metrics.OpenPositions.Set(float64(o.deps.Positions.Count()))

	if o.deps.Trader != nil {
		bal, err := o.deps.Trader.CheckBalance(ctx, decimal.Zero)
		if err != nil {
			o.logger.Warn("snapshot: balance check failed", zap.Error(err))
		} else {
			metrics.BalanceUSD.Set(bal.Available.InexactFloat64())
		}
	}

	if grades := o.grade(ctx); len(grades) > 0 {
		if gr, ok := o.deps.Sink.(report.GradeRecorder); ok {
			if err := gr.RecordGrades(ctx, grades); err != nil {
				o.logger.Warn("snapshot: record grades failed", zap.Error(err))
			}
		}
	}

	if err := o.deps.Sink.Snapshot(ctx); err != nil {
		o.logger.Warn("snapshot: sink failed", zap.Error(err))
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) grade(ctx context.Context) []report.GradedPosition {
	open := o.deps.Positions.Snapshot()
	if o.deps.Markets == nil || len(open) == 0 {
		return nil
	}
	markets, err := o.deps.Markets.ActiveMarkets(ctx, o.opts.GradeLimit)
	if err != nil {
		o.logger.Warn("snapshot: market prices unavailable", zap.Error(err))
		return nil
	}
	byID := make(map[string]gamma.Market, len(markets))
	for _, m := range markets {
		byID[m.ID] = m
	}
	out := make([]report.GradedPosition, 0, len(open))
	for _, p := range open {
		m, ok := byID[p.MarketID]
		if !ok {
			continue
		}
		price := m.YesPrice
		if p.Outcome == string(pipeline.OutcomeNo) {
			price = m.NoPrice
		}
		out = append(out, report.Grade(p, price))
	}
	return out
}

// DailyReport flushes the day's aggregate through the sink.
func (o *Orchestrator) DailyReport(ctx context.Context) (string, error) {
	path, err := o.deps.Sink.DailyReport(ctx, o.deps.Limiter.Budget().DailyRequestCount)
	if err != nil {
		o.logger.Warn("daily report failed", zap.Error(err))
		return path, err
	}
	o.logger.Info("daily report written", zap.String("path", path))
	return path, nil
}
