// Package metrics holds the prometheus collectors updated by the orchestrator:
//
//	eventarb_cycles_total{result}          cycles by result (completed|skipped|busy)
//	eventarb_cycle_duration_seconds        wall time of completed cycles
//	eventarb_news_budget_remaining         daily news API units left
//	eventarb_news_events_total{kind}       cache hits, fetches, rate-limit hits, skipped searches
//	eventarb_opportunities_total           opportunities built
//	eventarb_decisions_total{trade}        decisions by should-trade flag
//	eventarb_trades_total{result}          executed|failed|monitor_only
//	eventarb_deposits_total{result}        deposit-and-retry recoveries
//	eventarb_open_positions                size of the open-position set
//	eventarb_balance_usd                   last balance seen by the snapshot job
//	eventarb_stage_errors_total{stage}     degraded pipeline stages
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Cycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "eventarb_cycles_total", Help: "Orchestrator cycles by result"},
		[]string{"result"},
	)
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventarb_cycle_duration_seconds",
			Help:    "Duration of completed cycles",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
	)
	NewsBudgetRemaining = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "eventarb_news_budget_remaining", Help: "Daily news API units left"},
	)
	NewsEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "eventarb_news_events_total", Help: "News cache and budget events"},
		[]string{"kind"},
	)
	Opportunities = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "eventarb_opportunities_total", Help: "Opportunities built from matches"},
	)
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "eventarb_decisions_total", Help: "Trading decisions"},
		[]string{"trade"},
	)
	Trades = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "eventarb_trades_total", Help: "Trade attempts by result"},
		[]string{"result"},
	)
	Deposits = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "eventarb_deposits_total", Help: "Deposit recoveries by result"},
		[]string{"result"},
	)
	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "eventarb_open_positions", Help: "Open positions after the last refresh"},
	)
	BalanceUSD = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "eventarb_balance_usd", Help: "Available trading balance"},
	)
	StageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "eventarb_stage_errors_total", Help: "Pipeline stages that degraded"},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(
		Cycles,
		CycleDuration,
		NewsBudgetRemaining,
		NewsEvents,
		Opportunities,
		Decisions,
		Trades,
		Deposits,
		OpenPositions,
		BalanceUSD,
		StageErrors,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
