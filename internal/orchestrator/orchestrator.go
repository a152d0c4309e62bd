package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"eventarb/internal/gamma"
	"eventarb/internal/logger"
	"eventarb/internal/metrics"
	"eventarb/internal/news"
	"eventarb/internal/notify"
	"eventarb/internal/pipeline"
	"eventarb/internal/position"
	"eventarb/internal/ratelimit"
	"eventarb/internal/report"
	"eventarb/internal/trading"
)

var (
	ErrCycleInProgress = errors.New("cycle already in progress")
	ErrStopped         = errors.New("orchestrator stopped")
)

const (
	SkipDailyTradeCap = "daily trade limit reached"
	SkipMaxOpen       = "max open positions reached"
	SkipOutsideHours  = "outside trading hours"
	SkipMidCycleCap   = "trade caps reached mid-cycle"
)

type NewsSource interface {
	FetchForArbitrage(ctx context.Context) []news.Article
}

type Limiter interface {
	ResetCycle()
	CheckBudget() int
	Budget() ratelimit.Budget
	DrainStats() ratelimit.Stats
}

type Extractor interface {
	Extract(ctx context.Context, articles []news.Article) ([]pipeline.ConfirmedEvent, error)
}

type Matcher interface {
	Match(ctx context.Context, events []pipeline.ConfirmedEvent, fetchLimit int) (pipeline.MatchReport, error)
}

type Executor interface {
	Execute(ctx context.Context, d trading.Decision) (trading.Execution, error)
}

type Positions interface {
	Refresh(ctx context.Context) error
	IsOpen(marketID string) bool
	Count() int
	Snapshot() []position.Position
	RefreshedAt() time.Time
}

// Deps are the collaborators of a cycle. Notifier, Trader and Markets are
// optional; the rest are required.
type Deps struct {
	News      NewsSource
	Limiter   Limiter
	Extractor Extractor
	Matcher   Matcher
	Executor  Executor
	Positions Positions
	Sink      report.Sink
	Notifier  notify.Notifier
	// Trader is used by the snapshot job for balance reads.
	Trader trading.Trader
	// Markets lets the snapshot job grade open positions.
	Markets gamma.MarketLister
}

type Options struct {
	Trading     trading.Config
	Opportunity pipeline.OpportunityConfig
	// MonitorOnly logs would-be trades instead of placing them. Orders are
	// only placed when UnsupervisedMode is set and MonitorOnly is not.
	MonitorOnly bool
	// FetchLimit caps the markets offered to the matcher each cycle.
	FetchLimit  int
	// GradeLimit is how many active markets the snapshot job reads to price
	// open positions.
	GradeLimit  int
	Location    *time.Location
	Now         func() time.Time
	Logger      *zap.Logger
}

type Orchestrator struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	running atomic.Bool
	stopped atomic.Bool
	state   atomic.Int32

	mu          sync.Mutex
	tradeDate   string
	dailyTrades int
	lastRecord  *report.ScanRecord
}

func New(deps Deps, opts Options) (*Orchestrator, error) {
	switch {
	case deps.News == nil:
		return nil, fmt.Errorf("orchestrator: news source is required")
	case deps.Limiter == nil:
		return nil, fmt.Errorf("orchestrator: rate limiter is required")
	case deps.Extractor == nil:
		return nil, fmt.Errorf("orchestrator: event extractor is required")
	case deps.Matcher == nil:
		return nil, fmt.Errorf("orchestrator: market matcher is required")
	case deps.Executor == nil:
		return nil, fmt.Errorf("orchestrator: executor is required")
	case deps.Positions == nil:
		return nil, fmt.Errorf("orchestrator: position manager is required")
	case deps.Sink == nil:
		return nil, fmt.Errorf("orchestrator: report sink is required")
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Logger = logger.OrNop(opts.Logger)
	if opts.GradeLimit <= 0 {
		opts.GradeLimit = 100
	}
	if opts.Opportunity.MaxPrice.IsZero() {
		opts.Opportunity = pipeline.DefaultOpportunityConfig()
	}
	return &Orchestrator{deps: deps, opts: opts, logger: opts.Logger, now: opts.Now}, nil
}

func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
}

// Live reports whether decisions are sent to the trader.
func (o *Orchestrator) Live() bool {
	return o.opts.Trading.UnsupervisedMode && !o.opts.MonitorOnly
}

func (o *Orchestrator) MarkStopped() {
	o.stopped.Store(true)
}

func (o *Orchestrator) Stopped() bool {
	return o.stopped.Load()
}

// RunCycle runs one scan, evaluate, execute and report pass. It never runs
// concurrently with itself; a second caller gets ErrCycleInProgress.
func (o *Orchestrator) RunCycle(ctx context.Context) (report.ScanRecord, error) {
	if o.stopped.Load() {
		return report.ScanRecord{}, ErrStopped
	}
	if !o.running.CompareAndSwap(false, true) {
		metrics.Cycles.WithLabelValues("busy").Inc()
		return report.ScanRecord{}, ErrCycleInProgress
	}
	defer o.running.Store(false)
	defer o.setState(StateIdle)

	started := o.now()
	rec := report.ScanRecord{CycleID: uuid.NewString(), Timestamp: started, State: StateIdle.String()}
	log := o.logger.With(zap.String("cycle_id", rec.CycleID))

	if reason := o.entryGuard(started); reason != "" {
		rec.SkipReason = reason
		log.Info("cycle skipped", zap.String("reason", reason))
		metrics.Cycles.WithLabelValues("skipped").Inc()
		o.finish(ctx, &rec)
		return rec, nil
	}

	o.setState(StateScanning)
	rec.State = StateScanning.String()
	opps := o.scan(ctx, &rec, log)
	if o.stopped.Load() {
		log.Info("stopped during scan, discarding cycle")
		return rec, ErrStopped
	}

	o.setState(StateEvaluating)
	rec.State = StateEvaluating.String()
	o.evaluate(ctx, &rec, opps, log)

	o.setState(StateReporting)
	rec.State = StateReporting.String()
	o.finish(ctx, &rec)
	if o.stopped.Load() {
		log.Info("stopped during evaluation", zap.Int("trades", rec.TradesExecuted()))
		return rec, ErrStopped
	}

	metrics.Cycles.WithLabelValues("completed").Inc()
	metrics.CycleDuration.Observe(o.now().Sub(started).Seconds())
	log.Info("cycle complete",
		zap.Int("articles", rec.ArticlesFetched),
		zap.Int("events", rec.EventsExtracted),
		zap.Int("markets", rec.MarketsFetched),
		zap.Int("opportunities", len(rec.Opportunities)),
		zap.Int("decisions", len(rec.Decisions)),
		zap.Int("trades", rec.TradesExecuted()),
		zap.Int("skipped", rec.SkippedOpportunities),
	)
	return rec, nil
}

func (o *Orchestrator) scan(ctx context.Context, rec *report.ScanRecord, log *zap.Logger) []pipeline.Opportunity {
	o.deps.Limiter.ResetCycle()

	articles := o.deps.News.FetchForArbitrage(ctx)
	rec.ArticlesFetched = len(articles)

	events, err := o.deps.Extractor.Extract(ctx, articles)
	if err != nil {
		log.Warn("event extraction failed", zap.Error(err))
		rec.Errors = append(rec.Errors, "extract: "+err.Error())
		metrics.StageErrors.WithLabelValues("extract").Inc()
		events = nil
	}
	rec.EventsExtracted = len(events)
	if len(events) == 0 {
		return nil
	}

	rep, err := o.deps.Matcher.Match(ctx, events, o.opts.FetchLimit)
	rec.MarketsFetched = rep.MarketsFetched
	if err != nil {
		log.Warn("market matching failed", zap.Error(err))
		rec.Errors = append(rec.Errors, "match: "+err.Error())
		metrics.StageErrors.WithLabelValues("match").Inc()
		return nil
	}

	opps := pipeline.BuildOpportunities(events, rep.Matches, o.opts.Opportunity)
	rec.Opportunities = opps
	metrics.Opportunities.Add(float64(len(opps)))
	return opps
}

// evaluate decides and executes opportunities in order. A market gets at most
// one order per cycle even if the position refresh after a fill fails or lags.
func (o *Orchestrator) evaluate(ctx context.Context, rec *report.ScanRecord, opps []pipeline.Opportunity, log *zap.Logger) {
	attempted := make(map[string]struct{}, len(opps))
	for i, opp := range opps {
		if o.stopped.Load() {
			rec.SkippedOpportunities += len(opps) - i
			log.Info("stopped, not executing remaining opportunities", zap.Int("remaining", len(opps)-i))
			return
		}
		if _, ok := attempted[opp.MarketID]; ok {
			rec.SkippedOpportunities++
			log.Debug("market already ordered this cycle", zap.String("market_id", opp.MarketID))
			continue
		}
		if o.deps.Positions.IsOpen(opp.MarketID) {
			rec.SkippedOpportunities++
			log.Debug("already holding market", zap.String("market_id", opp.MarketID))
			continue
		}
		if o.capsReached() {
			rec.SkippedOpportunities++
			log.Info("opportunity skipped", zap.String("market_id", opp.MarketID), zap.String("reason", SkipMidCycleCap))
			continue
		}

		dec := trading.Evaluate(opp, o.opts.Trading)
		dr := report.DecisionRecord{Decision: dec, DecidedAt: o.now()}
		metrics.Decisions.WithLabelValues(fmt.Sprintf("%t", dec.ShouldTrade)).Inc()
		if !dec.ShouldTrade {
			rec.Decisions = append(rec.Decisions, dr)
			continue
		}
		if !o.Live() {
			dr.MonitorOnly = true
			metrics.Trades.WithLabelValues("monitor_only").Inc()
			log.Info("would trade", zap.String("market_id", dec.MarketID), zap.String("reasoning", dec.Reasoning))
			rec.Decisions = append(rec.Decisions, dr)
			continue
		}

		o.setState(StateExecuting)
		rec.State = StateExecuting.String()
		attempted[dec.MarketID] = struct{}{}
		ex, err := o.deps.Executor.Execute(ctx, dec)
		dr.DepositAttempted = ex.DepositAttempted
		if ex.DepositAttempted {
			result := "recovered"
			if err != nil {
				result = "failed"
			}
			metrics.Deposits.WithLabelValues(result).Inc()
		}
		if err != nil {
			dr.Error = err.Error()
			metrics.Trades.WithLabelValues("failed").Inc()
			log.Warn("trade failed",
				zap.String("market_id", dec.MarketID),
				zap.String("kind", trading.ClassifyError(err).String()),
				zap.Error(err),
			)
			rec.Decisions = append(rec.Decisions, dr)
			o.setState(StateEvaluating)
			continue
		}
		dr.Executed = true
		dr.OrderID = ex.Result.OrderID
		rec.Decisions = append(rec.Decisions, dr)
		metrics.Trades.WithLabelValues("executed").Inc()
		o.incDailyTrades()
		log.Info("trade executed",
			zap.String("market_id", dec.MarketID),
			zap.String("order_id", dr.OrderID),
			zap.Bool("deposit", ex.DepositAttempted),
		)
		if err := o.deps.Positions.Refresh(ctx); err != nil {
			log.Warn("position refresh failed", zap.Error(err))
		}
		metrics.OpenPositions.Set(float64(o.deps.Positions.Count()))
		o.announce(ctx, dec, dr)
		o.setState(StateEvaluating)
	}
}

func (o *Orchestrator) announce(ctx context.Context, dec trading.Decision, dr report.DecisionRecord) {
	text := fmt.Sprintf("%s\n%s\norder=%s", dec.Question, dec.Reasoning, dr.OrderID)
	if dr.DepositAttempted {
		text += "\n(deposit recovered insufficient balance)"
	}
	if err := o.deps.Notifier.Notify(ctx, notify.Message{Event: "trade_executed", Text: text}); err != nil {
		o.logger.Warn("notify failed", zap.Error(err))
	}
}

func (o *Orchestrator) finish(ctx context.Context, rec *report.ScanRecord) {
	stats := o.deps.Limiter.DrainStats()
	rec.SkippedSearches = stats.SkippedSearches
	rec.RateLimitHits = stats.RateLimitHits
	rec.APICallsUsed = o.deps.Limiter.Budget().DailyRequestCount
	metrics.NewsEvents.WithLabelValues("fetch").Add(float64(stats.Fetches))
	metrics.NewsEvents.WithLabelValues("cache_hit").Add(float64(stats.CacheHits))
	metrics.NewsEvents.WithLabelValues("rate_limited").Add(float64(stats.RateLimitHits))
	metrics.NewsEvents.WithLabelValues("skipped_search").Add(float64(stats.SkippedSearches))
	metrics.NewsBudgetRemaining.Set(float64(o.deps.Limiter.CheckBudget()))

	if err := o.deps.Sink.Record(ctx, *rec); err != nil {
		o.logger.Warn("report sink failed", zap.String("cycle_id", rec.CycleID), zap.Error(err))
	}
	o.mu.Lock()
	last := *rec
	o.lastRecord = &last
	o.mu.Unlock()
}

// entryGuard resets the daily trade counter on a new day and returns a skip
// reason when the cycle should not run.
func (o *Orchestrator) entryGuard(now time.Time) string {
	o.mu.Lock()
	o.resetDailyLocked(now)
	trades := o.dailyTrades
	o.mu.Unlock()

	cfg := o.opts.Trading
	if cfg.MaxDailyTrades > 0 && trades >= cfg.MaxDailyTrades {
		return SkipDailyTradeCap
	}
	if cfg.MaxOpenPositions > 0 && o.deps.Positions.Count() >= cfg.MaxOpenPositions {
		return SkipMaxOpen
	}
	if cfg.TradingHours != nil && !cfg.TradingHours.Contains(now.In(o.opts.Location).Hour()) {
		return SkipOutsideHours
	}
	return ""
}

func (o *Orchestrator) capsReached() bool {
	cfg := o.opts.Trading
	o.mu.Lock()
	trades := o.dailyTrades
	o.mu.Unlock()
	if cfg.MaxDailyTrades > 0 && trades >= cfg.MaxDailyTrades {
		return true
	}
	return cfg.MaxOpenPositions > 0 && o.deps.Positions.Count() >= cfg.MaxOpenPositions
}

func (o *Orchestrator) resetDailyLocked(now time.Time) {
	today := now.In(o.opts.Location).Format("2006-01-02")
	if o.tradeDate != today {
		o.tradeDate = today
		o.dailyTrades = 0
	}
}

func (o *Orchestrator) incDailyTrades() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resetDailyLocked(o.now())
	o.dailyTrades++
}

// DailyTrades returns the trades counted for the current day.
func (o *Orchestrator) DailyTrades() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resetDailyLocked(o.now())
	return o.dailyTrades
}

func (o *Orchestrator) LastRecord() (report.ScanRecord, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastRecord == nil {
		return report.ScanRecord{}, false
	}
	return *o.lastRecord, true
}
