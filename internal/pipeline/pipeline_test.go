package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"eventarb/internal/gamma"
	"eventarb/internal/news"
)

type funcCompleter func(ctx context.Context, prompt string) (string, error)

func (f funcCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type stubMarkets struct {
	markets []gamma.Market
	err     error
	calls   int
	limit   int
}

func (s *stubMarkets) ActiveMarkets(_ context.Context, limit int) ([]gamma.Market, error) {
	s.calls++
	s.limit = limit
	return s.markets, s.err
}

func market(id, q, yes, no string) gamma.Market {
	return gamma.Market{ID: id, Question: q, YesPrice: decimal.RequireFromString(yes), NoPrice: decimal.RequireFromString(no)}
}

func TestExtract_KeepsNewestArticles(t *testing.T) {
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	var arts []news.Article
	for i := 0; i < 45; i++ {
		arts = append(arts, news.Article{Title: "story-" + string(rune('A'+i%26)) + string(rune('a'+i/26)), PublishedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	var prompt string
	x := NewEventExtractor(funcCompleter(func(_ context.Context, p string) (string, error) {
		prompt = p
		return "[]", nil
	}), 0, 0, nil)

	events, err := x.Extract(context.Background(), arts)
	if err != nil || len(events) != 0 {
		t.Fatalf("events=%v err=%v", events, err)
	}
	if strings.Contains(prompt, arts[0].Title) || strings.Contains(prompt, arts[4].Title) {
		t.Fatalf("oldest articles should be truncated")
	}
	if !strings.Contains(prompt, arts[44].Title) || !strings.Contains(prompt, "40. "+arts[5].Title) {
		t.Fatalf("newest 40 articles expected in prompt")
	}
}

func TestExtract_CapsEventsAndSkipsBlank(t *testing.T) {
	var b strings.Builder
	b.WriteString(`[{"event":""},`)
	for i := 0; i < 12; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"event":"e","details":"d","sources":[]}`)
	}
	b.WriteString("]")
	x := NewEventExtractor(funcCompleter(func(context.Context, string) (string, error) { return b.String(), nil }), 40, 10, nil)
	events, err := x.Extract(context.Background(), []news.Article{{Title: "t"}})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(events) != 10 {
		t.Fatalf("len=%d want=10", len(events))
	}
}

func TestExtract_ParseErrorIsZeroEvents(t *testing.T) {
	x := NewEventExtractor(funcCompleter(func(context.Context, string) (string, error) {
		return "Nothing confirmed today.", nil
	}), 40, 10, nil)
	events, err := x.Extract(context.Background(), []news.Article{{Title: "t"}})
	if err != nil || len(events) != 0 {
		t.Fatalf("events=%v err=%v", events, err)
	}
}

func TestExtract_ModelErrorIsReturned(t *testing.T) {
	boom := errors.New("invalid api key")
	x := NewEventExtractor(funcCompleter(func(context.Context, string) (string, error) { return "", boom }), 40, 10, nil)
	if _, err := x.Extract(context.Background(), []news.Article{{Title: "t"}}); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}

func TestExtract_NoArticlesSkipsModel(t *testing.T) {
	called := false
	x := NewEventExtractor(funcCompleter(func(context.Context, string) (string, error) {
		called = true
		return "[]", nil
	}), 40, 10, nil)
	if _, err := x.Extract(context.Background(), nil); err != nil || called {
		t.Fatalf("err=%v called=%v", err, called)
	}
}

func TestMatch_IndexConversionBoundsAndFirstWins(t *testing.T) {
	mk := &stubMarkets{markets: []gamma.Market{
		market("m1", "Q1", "0.30", "0.70"),
		market("m2", "Q2", "0.60", "0.40"),
	}}
	reply := `[
		{"event_index":1,"market_index":2,"outcome":"no","reasoning":"r1"},
		{"event_index":1,"market_index":1,"outcome":"YES","reasoning":"dup"},
		{"event_index":2,"market_index":3,"outcome":"YES","reasoning":"out of range"},
		{"event_index":0,"market_index":1,"outcome":"YES","reasoning":"zero"},
		{"event_index":2,"market_index":1,"outcome":"MAYBE","reasoning":"bad outcome"},
		{"event_index":2,"market_index":1,"outcome":"YES","reasoning":"r2"}
	]`
	m := NewMarketMatcher(mk, funcCompleter(func(context.Context, string) (string, error) { return reply, nil }), 25, nil)
	events := []ConfirmedEvent{{Summary: "e1"}, {Summary: "e2"}}

	rep, err := m.Match(context.Background(), events, 0)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if mk.limit != 25 || rep.MarketsFetched != 2 {
		t.Fatalf("limit=%d fetched=%d", mk.limit, rep.MarketsFetched)
	}
	if len(rep.Matches) != 2 {
		t.Fatalf("matches=%+v", rep.Matches)
	}
	first := rep.Matches[0]
	if first.MarketID != "m2" || first.ConfirmedOutcome != OutcomeNo || first.EventIndex != 0 || first.CurrentPrice.String() != "0.4" {
		t.Fatalf("first=%+v", first)
	}
	second := rep.Matches[1]
	if second.MarketID != "m1" || second.EventIndex != 1 || second.Reasoning != "r2" || second.CurrentPrice.String() != "0.3" {
		t.Fatalf("second=%+v", second)
	}
}

func TestMatch_NoEventsSkipsFetch(t *testing.T) {
	mk := &stubMarkets{}
	m := NewMarketMatcher(mk, funcCompleter(func(context.Context, string) (string, error) { return "[]", nil }), 10, nil)
	if rep, err := m.Match(context.Background(), nil, 0); err != nil || len(rep.Matches) != 0 || mk.calls != 0 {
		t.Fatalf("rep=%+v err=%v calls=%d", rep, err, mk.calls)
	}
}

func TestMatch_FetchErrorReturned(t *testing.T) {
	mk := &stubMarkets{err: errors.New("gamma down")}
	m := NewMarketMatcher(mk, funcCompleter(func(context.Context, string) (string, error) { return "[]", nil }), 10, nil)
	if _, err := m.Match(context.Background(), []ConfirmedEvent{{Summary: "e"}}, 0); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBuildOpportunities_PriceCeiling(t *testing.T) {
	events := []ConfirmedEvent{{Summary: "a"}, {Summary: "b"}}
	matches := []MarketMatch{
		{MarketID: "cheap", ConfirmedOutcome: OutcomeYes, CurrentPrice: decimal.RequireFromString("0.89"), EventIndex: 0},
		{MarketID: "edge", ConfirmedOutcome: OutcomeYes, CurrentPrice: decimal.RequireFromString("0.90"), EventIndex: 1},
		{MarketID: "rich", ConfirmedOutcome: OutcomeNo, CurrentPrice: decimal.RequireFromString("0.97"), EventIndex: 1},
	}
	opps := BuildOpportunities(events, matches, DefaultOpportunityConfig())
	if len(opps) != 1 || opps[0].MarketID != "cheap" {
		t.Fatalf("opps=%+v", opps)
	}
	if opps[0].ExpectedValue.String() != "0.06" || opps[0].RiskScore.String() != "0.89" {
		t.Fatalf("ev=%s risk=%s", opps[0].ExpectedValue, opps[0].RiskScore)
	}
}

func TestKellyFraction(t *testing.T) {
	if f := KellyFraction(0.5, 0.6); f != 0 {
		t.Fatalf("no edge should be 0, got %v", f)
	}
	if f := KellyFraction(0.95, 0.72); f < 0.8214 || f > 0.8215 {
		t.Fatalf("kelly=%v", f)
	}
}

// A confirmed Fed cut against a market still priced at 0.72 YES yields one
// opportunity with a 0.23 edge.
func TestPipeline_FedRateCutEndToEnd(t *testing.T) {
	arts := []news.Article{
		{Title: "Federal Reserve confirms 25bp rate cut", Source: "Reuters", PublishedAt: time.Date(2026, 3, 18, 18, 0, 0, 0, time.UTC)},
		{Title: "Analysts expect more cuts later this year", Source: "CNBC", PublishedAt: time.Date(2026, 3, 18, 17, 0, 0, 0, time.UTC)},
	}
	model := funcCompleter(func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "Markets:") {
			return `[{"event_index":1,"market_index":1,"outcome":"YES","reasoning":"FOMC statement confirms the cut"}]`, nil
		}
		return `[{"event":"Fed cuts rates by 25bp","details":"FOMC lowered the target range","sources":["Reuters"]}]`, nil
	})
	mk := &stubMarkets{markets: []gamma.Market{market("0xfed", "Will the Fed cut rates in March?", "0.72", "0.28")}}

	events, err := NewEventExtractor(model, 40, 10, nil).Extract(context.Background(), arts)
	if err != nil || len(events) != 1 {
		t.Fatalf("events=%v err=%v", events, err)
	}
	rep, err := NewMarketMatcher(mk, model, 100, nil).Match(context.Background(), events, 0)
	if err != nil || len(rep.Matches) != 1 {
		t.Fatalf("matches=%v err=%v", rep.Matches, err)
	}
	opps := BuildOpportunities(events, rep.Matches, DefaultOpportunityConfig())
	if len(opps) != 1 {
		t.Fatalf("opps=%d want=1", len(opps))
	}
	o := opps[0]
	if o.MarketID != "0xfed" || o.Outcome != OutcomeYes || o.CurrentPrice.String() != "0.72" {
		t.Fatalf("opp=%+v", o)
	}
	if o.Confidence != 0.95 || o.ExpectedValue.String() != "0.23" {
		t.Fatalf("confidence=%v ev=%s", o.Confidence, o.ExpectedValue)
	}
	if len(o.Signals) != 3 || o.Signals[0] != "confirmed_event:Fed cuts rates by 25bp" || o.Signals[2] != "kelly=0.8214" {
		t.Fatalf("signals=%v", o.Signals)
	}
}

func TestMatch_CallerFetchLimitOverridesDefault(t *testing.T) {
	mk := &stubMarkets{markets: []gamma.Market{market("m1", "Q1", "0.30", "0.70")}}
	m := NewMarketMatcher(mk, funcCompleter(func(context.Context, string) (string, error) { return "[]", nil }), 100, nil)
	if _, err := m.Match(context.Background(), []ConfirmedEvent{{Summary: "e"}}, 7); err != nil {
		t.Fatalf("err=%v", err)
	}
	if mk.limit != 7 {
		t.Fatalf("limit=%d want=7", mk.limit)
	}
}
