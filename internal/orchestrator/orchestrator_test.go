package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	cronrunner "eventarb/internal/cron"
	"eventarb/internal/gamma"
	"eventarb/internal/news"
	"eventarb/internal/notify"
	"eventarb/internal/pipeline"
	"eventarb/internal/position"
	"eventarb/internal/ratelimit"
	"eventarb/internal/report"
	"eventarb/internal/trading"
)

type stubNews struct {
	calls    int
	articles []news.Article
	block    chan struct{}
	entered  chan struct{}
}

func (s *stubNews) FetchForArbitrage(ctx context.Context) []news.Article {
	s.calls++
	if s.entered != nil {
		close(s.entered)
	}
	if s.block != nil {
		<-s.block
	}
	return s.articles
}

type stubLimiter struct {
	resets int
	used   int
	stats  ratelimit.Stats
}

func (l *stubLimiter) ResetCycle()      { l.resets++ }
func (l *stubLimiter) CheckBudget() int { return 95 - l.used }
func (l *stubLimiter) Budget() ratelimit.Budget {
	return ratelimit.Budget{DailyRequestCount: l.used, DailyLimit: 95}
}
func (l *stubLimiter) DrainStats() ratelimit.Stats {
	out := l.stats
	l.stats = ratelimit.Stats{}
	return out
}

type stubExtractor struct {
	events []pipeline.ConfirmedEvent
	err    error
}

func (x *stubExtractor) Extract(context.Context, []news.Article) ([]pipeline.ConfirmedEvent, error) {
	return x.events, x.err
}

type stubMatcher struct {
	calls   int
	limit   int
	matches []pipeline.MarketMatch
}

func (m *stubMatcher) Match(_ context.Context, _ []pipeline.ConfirmedEvent, fetchLimit int) (pipeline.MatchReport, error) {
	m.calls++
	m.limit = fetchLimit
	return pipeline.MatchReport{Matches: m.matches, MarketsFetched: 50}, nil
}

type stubExecutor struct {
	executed []trading.Decision
	fail     error
	deposit  bool
	onTrade  func(trading.Decision)
}

func (e *stubExecutor) Execute(_ context.Context, d trading.Decision) (trading.Execution, error) {
	if e.fail != nil {
		return trading.Execution{DepositAttempted: e.deposit}, e.fail
	}
	e.executed = append(e.executed, d)
	if e.onTrade != nil {
		e.onTrade(d)
	}
	return trading.Execution{Result: trading.TradeResult{OrderID: "ord-" + d.MarketID}, DepositAttempted: e.deposit}, nil
}

type stubPositions struct {
	open        map[string]position.Position
	refreshes   int
	refreshedAt time.Time
}

func newStubPositions(ids ...string) *stubPositions {
	p := &stubPositions{open: map[string]position.Position{}}
	for _, id := range ids {
		p.open[id] = position.Position{MarketID: id, Outcome: "YES", AvgPrice: decimal.RequireFromString("0.5")}
	}
	return p
}

func (p *stubPositions) Refresh(context.Context) error {
	p.refreshes++
	p.refreshedAt = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	return nil
}
func (p *stubPositions) IsOpen(id string) bool { _, ok := p.open[id]; return ok }
func (p *stubPositions) Count() int { return len(p.open) }
func (p *stubPositions) RefreshedAt() time.Time { return p.refreshedAt }
func (p *stubPositions) Snapshot() []position.Position {
	out := make([]position.Position, 0, len(p.open))
	for _, v := range p.open {
		out = append(out, v)
	}
	return out
}

type memSink struct {
	mu        sync.Mutex
	records   []report.ScanRecord
	snapshots int
	grades    []report.GradedPosition
	reports   []int
	err       error
}

func (s *memSink) Record(_ context.Context, rec report.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return s.err
}

func (s *memSink) Snapshot(context.Context) error { s.snapshots++; return nil }

func (s *memSink) DailyReport(_ context.Context, apiCalls int) (string, error) {
	s.reports = append(s.reports, apiCalls)
	return "mem:report", nil
}

func (s *memSink) RecordGrades(_ context.Context, g []report.GradedPosition) error {
	s.grades = g
	return nil
}

type recordingNotifier struct{ msgs []notify.Message }

func (n *recordingNotifier) Notify(_ context.Context, m notify.Message) error {
	n.msgs = append(n.msgs, m)
	return nil
}

type fixture struct {
	news      *stubNews
	limiter   *stubLimiter
	extractor *stubExtractor
	matcher   *stubMatcher
	executor  *stubExecutor
	positions *stubPositions
	sink      *memSink
	notifier  *recordingNotifier
	now       time.Time
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(markets ...string) *fixture {
	f := &fixture{
		news:      &stubNews{articles: []news.Article{{Title: "Fed cuts rates"}}},
		limiter:   &stubLimiter{used: 3},
		extractor: &stubExtractor{events: []pipeline.ConfirmedEvent{{Summary: "Fed cut rates by 25bp"}}},
		matcher:   &stubMatcher{},
		executor:  &stubExecutor{},
		positions: newStubPositions(),
		sink:      &memSink{},
		notifier:  &recordingNotifier{},
		now:       time.Date(2026, 3, 18, 15, 0, 0, 0, time.UTC),
	}
	for _, id := range markets {
		f.matcher.matches = append(f.matcher.matches, pipeline.MarketMatch{
			MarketID:         id,
			Question:         "Will the Fed cut? " + id,
			ConfirmedOutcome: pipeline.OutcomeYes,
			Reasoning:        "announced",
			CurrentPrice:     dec("0.72"),
		})
	}
	return f
}

func liveConfig() trading.Config {
	return trading.Config{
		MaxPositionSize:        dec("10"),
		RiskLimitPerTrade:      dec("10"),
		MinConfidenceThreshold: 0.8,
		MaxDailyTrades:         5,
		MaxOpenPositions:       10,
		UnsupervisedMode:       true,
	}
}

func (f *fixture) build(t *testing.T, opts Options) *Orchestrator {
	t.Helper()
	opts.Now = func() time.Time { return f.now }
	o, err := New(Deps{
		News:      f.news,
		Limiter:   f.limiter,
		Extractor: f.extractor,
		Matcher:   f.matcher,
		Executor:  f.executor,
		Positions: f.positions,
		Sink:      f.sink,
		Notifier:  f.notifier,
	}, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}, Options{}); err == nil {
		t.Fatalf("expected error for missing deps")
	}
}

func TestRunCycle_ExecutesAndRecords(t *testing.T) {
	f := newFixture("m1")
	f.executor.onTrade = func(d trading.Decision) { f.positions.open[d.MarketID] = position.Position{MarketID: d.MarketID} }
	f.limiter.stats = ratelimit.Stats{RateLimitHits: 1, SkippedSearches: 2}
	o := f.build(t, Options{Trading: liveConfig()})

	rec, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(f.executor.executed) != 1 || rec.TradesExecuted() != 1 {
		t.Fatalf("executed=%d trades=%d", len(f.executor.executed), rec.TradesExecuted())
	}
	if rec.Decisions[0].OrderID != "ord-m1" {
		t.Fatalf("order id=%q", rec.Decisions[0].OrderID)
	}
	if rec.ArticlesFetched != 1 || rec.EventsExtracted != 1 || rec.MarketsFetched != 50 {
		t.Fatalf("counts=%d/%d/%d", rec.ArticlesFetched, rec.EventsExtracted, rec.MarketsFetched)
	}
	if rec.RateLimitHits != 1 || rec.SkippedSearches != 2 || rec.APICallsUsed != 3 {
		t.Fatalf("limiter stats not copied: %+v", rec)
	}
	if f.limiter.resets != 1 {
		t.Fatalf("ResetCycle calls=%d want=1", f.limiter.resets)
	}
	if o.DailyTrades() != 1 {
		t.Fatalf("daily trades=%d", o.DailyTrades())
	}
	if f.positions.refreshes != 1 {
		t.Fatalf("positions refreshed %d times", f.positions.refreshes)
	}
	if len(f.notifier.msgs) != 1 || f.notifier.msgs[0].Event != "trade_executed" {
		t.Fatalf("notifications=%+v", f.notifier.msgs)
	}
	if len(f.sink.records) != 1 {
		t.Fatalf("records=%d", len(f.sink.records))
	}
	if o.State() != StateIdle {
		t.Fatalf("state=%s want idle", o.State())
	}
	if last, ok := o.LastRecord(); !ok || last.CycleID != rec.CycleID {
		t.Fatalf("last record not kept")
	}
}

func TestRunCycle_PassesFetchLimitToMatcher(t *testing.T) {
	f := newFixture("m1")
	o := f.build(t, Options{Trading: liveConfig(), FetchLimit: 40})
	if _, err := o.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if f.matcher.limit != 40 {
		t.Fatalf("fetch limit=%d want=40", f.matcher.limit)
	}
}

func TestRunCycle_Reentry(t *testing.T) {
	f := newFixture()
	f.news.block = make(chan struct{})
	f.news.entered = make(chan struct{})
	o := f.build(t, Options{Trading: liveConfig()})

	done := make(chan error, 1)
	go func() {
		_, err := o.RunCycle(context.Background())
		done <- err
	}()
	<-f.news.entered
	if o.State() != StateScanning {
		t.Fatalf("state=%s want scanning", o.State())
	}
	if _, err := o.RunCycle(context.Background()); !errors.Is(err, ErrCycleInProgress) {
		t.Fatalf("err=%v want ErrCycleInProgress", err)
	}
	close(f.news.block)
	if err := <-done; err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if f.news.calls != 1 {
		t.Fatalf("news calls=%d want=1", f.news.calls)
	}
}

func TestRunCycle_SkippedCycleStillRecorded(t *testing.T) {
	f := newFixture("m1")
	cfg := liveConfig()
	cfg.MaxOpenPositions = 1
	f.positions = newStubPositions("held")
	o := f.build(t, Options{Trading: cfg})

	rec, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if rec.SkipReason != SkipMaxOpen {
		t.Fatalf("skip reason=%q", rec.SkipReason)
	}
	if f.news.calls != 0 || f.limiter.resets != 0 {
		t.Fatalf("skipped cycle should not scan")
	}
	if len(f.sink.records) != 1 || f.sink.records[0].SkipReason != SkipMaxOpen {
		t.Fatalf("skipped cycle not recorded: %+v", f.sink.records)
	}
}

func TestRunCycle_OutsideTradingHours(t *testing.T) {
	f := newFixture("m1")
	cfg := liveConfig()
	cfg.TradingHours = &trading.TradingHours{StartHour: 22, EndHour: 6}
	o := f.build(t, Options{Trading: cfg})

	rec, _ := o.RunCycle(context.Background())
	if rec.SkipReason != SkipOutsideHours {
		t.Fatalf("skip reason=%q want outside hours (hour=15)", rec.SkipReason)
	}

	f.now = time.Date(2026, 3, 18, 23, 0, 0, 0, time.UTC)
	rec, _ = o.RunCycle(context.Background())
	if rec.SkipReason != "" {
		t.Fatalf("23:00 is inside a 22-6 window, got %q", rec.SkipReason)
	}
}

func TestRunCycle_DailyCounterResetsOnNewDay(t *testing.T) {
	f := newFixture("m1")
	cfg := liveConfig()
	cfg.MaxDailyTrades = 1
	o := f.build(t, Options{Trading: cfg})

	if _, err := o.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	rec, _ := o.RunCycle(context.Background())
	if rec.SkipReason != SkipDailyTradeCap {
		t.Fatalf("skip reason=%q want daily cap", rec.SkipReason)
	}

	f.now = f.now.Add(24 * time.Hour)
	f.matcher.matches[0].MarketID = "m2"
	rec, _ = o.RunCycle(context.Background())
	if rec.SkipReason != "" || rec.TradesExecuted() != 1 {
		t.Fatalf("new day should trade again: skip=%q trades=%d", rec.SkipReason, rec.TradesExecuted())
	}
}

func TestRunCycle_DuplicateGuard(t *testing.T) {
	f := newFixture("held", "fresh")
	f.positions = newStubPositions("held")
	o := f.build(t, Options{Trading: liveConfig()})

	rec, _ := o.RunCycle(context.Background())
	if rec.SkippedOpportunities != 1 {
		t.Fatalf("skipped=%d want=1", rec.SkippedOpportunities)
	}
	if len(rec.Decisions) != 1 || rec.Decisions[0].MarketID != "fresh" {
		t.Fatalf("held market must not be evaluated: %+v", rec.Decisions)
	}
}

func TestRunCycle_MidCycleCap(t *testing.T) {
	f := newFixture("a", "b", "c")
	cfg := liveConfig()
	cfg.MaxDailyTrades = 2
	o := f.build(t, Options{Trading: cfg})

	rec, _ := o.RunCycle(context.Background())
	if rec.TradesExecuted() != 2 || rec.SkippedOpportunities != 1 {
		t.Fatalf("trades=%d skipped=%d", rec.TradesExecuted(), rec.SkippedOpportunities)
	}
	if len(rec.Decisions) != 2 {
		t.Fatalf("decisions=%d want=2", len(rec.Decisions))
	}
}

func TestRunCycle_MonitorOnly(t *testing.T) {
	f := newFixture("m1")
	o := f.build(t, Options{Trading: liveConfig(), MonitorOnly: true})

	rec, _ := o.RunCycle(context.Background())
	if len(f.executor.executed) != 0 {
		t.Fatalf("monitor-only must not execute")
	}
	if len(rec.Decisions) != 1 || !rec.Decisions[0].MonitorOnly || !rec.Decisions[0].ShouldTrade {
		t.Fatalf("decision=%+v", rec.Decisions)
	}
	if o.DailyTrades() != 0 {
		t.Fatalf("monitor-only must not count trades")
	}
}

func TestRunCycle_SupervisedModeDoesNotTrade(t *testing.T) {
	f := newFixture("m1")
	cfg := liveConfig()
	cfg.UnsupervisedMode = false
	o := f.build(t, Options{Trading: cfg})

	rec, _ := o.RunCycle(context.Background())
	if len(f.executor.executed) != 0 || !rec.Decisions[0].MonitorOnly {
		t.Fatalf("supervised mode should only record would-trade decisions")
	}
}

func TestRunCycle_TradeFailureRecorded(t *testing.T) {
	f := newFixture("m1")
	f.executor.fail = &trading.Error{Kind: trading.KindRejected, Err: errors.New("bad tick")}
	o := f.build(t, Options{Trading: liveConfig()})

	rec, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if rec.TradesExecuted() != 0 || rec.Decisions[0].Error == "" {
		t.Fatalf("failure not recorded: %+v", rec.Decisions[0])
	}
	if len(f.notifier.msgs) != 0 {
		t.Fatalf("failed trade should not notify")
	}
}

func TestRunCycle_ExtractErrorIsZeroEvents(t *testing.T) {
	f := newFixture("m1")
	f.extractor.err = errors.New("model overloaded")
	o := f.build(t, Options{Trading: liveConfig()})

	rec, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if rec.EventsExtracted != 0 || len(rec.Errors) != 1 {
		t.Fatalf("events=%d errors=%v", rec.EventsExtracted, rec.Errors)
	}
	if f.matcher.calls != 0 {
		t.Fatalf("matcher should not run without events")
	}
}

func TestRunCycle_SinkErrorSwallowed(t *testing.T) {
	f := newFixture()
	f.sink.err = errors.New("disk full")
	o := f.build(t, Options{Trading: liveConfig()})

	if _, err := o.RunCycle(context.Background()); err != nil {
		t.Fatalf("sink error leaked: %v", err)
	}
}

func TestRunCycle_Stopped(t *testing.T) {
	f := newFixture()
	o := f.build(t, Options{Trading: liveConfig()})
	o.MarkStopped()
	if _, err := o.RunCycle(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("err=%v want ErrStopped", err)
	}
}

type stubMarkets struct{ markets []gamma.Market }

func (s stubMarkets) ActiveMarkets(context.Context, int) ([]gamma.Market, error) {
	return s.markets, nil
}

func TestSnapshot_GradesOpenPositions(t *testing.T) {
	f := newFixture()
	f.positions = newStubPositions("won", "lost", "gone")
	f.positions.open["lost"] = position.Position{MarketID: "lost", Outcome: "NO", AvgPrice: dec("0.6")}
	o, err := New(Deps{
		News:      f.news,
		Limiter:   f.limiter,
		Extractor: f.extractor,
		Matcher:   f.matcher,
		Executor:  f.executor,
		Positions: f.positions,
		Sink:      f.sink,
		Trader:    trading.NewPaperTrader(dec("100")),
		Markets: stubMarkets{markets: []gamma.Market{
			{ID: "won", YesPrice: dec("0.97"), NoPrice: dec("0.03")},
			{ID: "lost", YesPrice: dec("0.95"), NoPrice: dec("0.05")},
		}},
	}, Options{Trading: liveConfig()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := o.Snapshot(context.Background()); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if f.sink.snapshots != 1 || f.positions.refreshes != 1 {
		t.Fatalf("snapshots=%d refreshes=%d", f.sink.snapshots, f.positions.refreshes)
	}
	if len(f.sink.grades) != 2 {
		t.Fatalf("grades=%d want=2 (unpriced market skipped)", len(f.sink.grades))
	}
	for _, g := range f.sink.grades {
		want := report.VerdictLikelyWon
		if g.MarketID == "lost" {
			want = report.VerdictLikelyLost
		}
		if g.Verdict != want || !g.Approximate {
			t.Fatalf("grade %s=%s want %s", g.MarketID, g.Verdict, want)
		}
	}
}

func TestStatus(t *testing.T) {
	f := newFixture("m1")
	o := f.build(t, Options{Trading: liveConfig()})
	if _, err := o.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	st := o.Status()
	if st.State != "idle" || !st.Live || st.DailyTrades != 1 || st.NewsBudgetLeft != 92 {
		t.Fatalf("status=%+v", st)
	}
	if st.LastCycle == nil {
		t.Fatalf("missing last cycle")
	}
	if st.PositionsRefreshedAt == nil || st.PositionsRefreshedAt.Hour() != 14 {
		t.Fatalf("positions_refreshed_at=%v", st.PositionsRefreshedAt)
	}
}

func TestStatus_NoRefreshYet(t *testing.T) {
	f := newFixture()
	o := f.build(t, Options{Trading: liveConfig()})
	if st := o.Status(); st.PositionsRefreshedAt != nil {
		t.Fatalf("positions_refreshed_at=%v want nil", st.PositionsRefreshedAt)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	f := newFixture()
	o := f.build(t, Options{Trading: liveConfig()})
	runner := cronrunner.New(nil, context.Background())
	s := NewScheduler(o, runner, ScheduleConfig{CycleInterval: time.Hour, SnapshotInterval: time.Hour, RunOnStart: true}, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if runner.Entries() != 2 {
		t.Fatalf("entries=%d want=2", runner.Entries())
	}
	if len(f.sink.records) != 1 || f.positions.refreshes != 1 {
		t.Fatalf("records=%d refreshes=%d", len(f.sink.records), f.positions.refreshes)
	}

	path, err := s.Stop(context.Background())
	if err != nil || path != "mem:report" {
		t.Fatalf("Stop: path=%q err=%v", path, err)
	}
	if len(f.sink.reports) != 1 || f.sink.reports[0] != 3 {
		t.Fatalf("daily report flush=%v", f.sink.reports)
	}
	if _, err := o.RunCycle(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("cycles after Stop should fail, got %v", err)
	}
}

type failingPositionSource struct{}

func (failingPositionSource) OpenPositions(context.Context) ([]position.Position, error) {
	return nil, errors.New("positions endpoint timeout")
}

func TestRunCycle_OneOrderPerMarketWhenRefreshFails(t *testing.T) {
	f := newFixture("m1", "m1", "m2")
	o, err := New(Deps{
		News:      f.news,
		Limiter:   f.limiter,
		Extractor: f.extractor,
		Matcher:   f.matcher,
		Executor:  f.executor,
		Positions: position.NewManager(failingPositionSource{}),
		Sink:      f.sink,
	}, Options{Trading: liveConfig(), Now: func() time.Time { return f.now }})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(f.executor.executed) != 2 {
		t.Fatalf("executed=%d want=2 (m1 once, m2 once)", len(f.executor.executed))
	}
	if f.executor.executed[0].MarketID != "m1" || f.executor.executed[1].MarketID != "m2" {
		t.Fatalf("executed=%s,%s", f.executor.executed[0].MarketID, f.executor.executed[1].MarketID)
	}
	if rec.SkippedOpportunities != 1 || len(rec.Decisions) != 2 {
		t.Fatalf("skipped=%d decisions=%d", rec.SkippedOpportunities, len(rec.Decisions))
	}
}

func TestRunCycle_FailedOrderNotRetriedInSameCycle(t *testing.T) {
	f := newFixture("m1", "m1")
	f.executor.fail = errors.New("i/o timeout")
	o := f.build(t, Options{Trading: liveConfig()})

	rec, _ := o.RunCycle(context.Background())
	if len(rec.Decisions) != 1 || rec.SkippedOpportunities != 1 {
		t.Fatalf("decisions=%d skipped=%d", len(rec.Decisions), rec.SkippedOpportunities)
	}
}

func TestRunCycle_StopDuringEvaluationHaltsExecution(t *testing.T) {
	f := newFixture("a", "b", "c")
	o := f.build(t, Options{Trading: liveConfig()})
	f.executor.onTrade = func(trading.Decision) { o.MarkStopped() }

	rec, err := o.RunCycle(context.Background())
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("err=%v want ErrStopped", err)
	}
	if len(f.executor.executed) != 1 {
		t.Fatalf("executed=%d want=1", len(f.executor.executed))
	}
	if rec.SkippedOpportunities != 2 {
		t.Fatalf("skipped=%d want=2", rec.SkippedOpportunities)
	}
	if len(f.sink.records) != 1 || f.sink.records[0].TradesExecuted() != 1 {
		t.Fatalf("executed trade must still be reported: %+v", f.sink.records)
	}
}
