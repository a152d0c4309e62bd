package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"eventarb/internal/gamma"
	"eventarb/internal/llm"
)

// MatchReport is the matcher's output for one cycle.
type MatchReport struct {
	Matches        []MarketMatch
	MarketsFetched int
}

type rawMatch struct {
	EventIndex  int    `json:"event_index"`
	MarketIndex int    `json:"market_index"`
	Outcome     string `json:"outcome"`
	Reasoning   string `json:"reasoning"`
}

// MarketMatcher pairs confirmed events with the markets they settle.
type MarketMatcher struct {
	markets    gamma.MarketLister
	model      llm.Completer
	fetchLimit int
	logger     *zap.Logger
}

func NewMarketMatcher(markets gamma.MarketLister, model llm.Completer, fetchLimit int, logger *zap.Logger) *MarketMatcher {
	if fetchLimit <= 0 {
		fetchLimit = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketMatcher{markets: markets, model: model, fetchLimit: fetchLimit, logger: logger}
}

// Match fetches up to fetchLimit live markets and asks the model which ones
// each event resolves. Each event contributes at most one match. A
// non-positive fetchLimit uses the matcher's default.
func (m *MarketMatcher) Match(ctx context.Context, events []ConfirmedEvent, fetchLimit int) (MatchReport, error) {
	if len(events) == 0 {
		return MatchReport{}, nil
	}
	if fetchLimit <= 0 {
		fetchLimit = m.fetchLimit
	}
	markets, err := m.markets.ActiveMarkets(ctx, fetchLimit)
	if err != nil {
		return MatchReport{}, fmt.Errorf("fetch markets: %w", err)
	}
	report := MatchReport{MarketsFetched: len(markets)}
	if len(markets) == 0 {
		return report, nil
	}

	out, err := m.model.Complete(ctx, matchPrompt(events, markets))
	var res Result[rawMatch]
	if err != nil {
		res = modelError[rawMatch](err)
	} else {
		res = DecodeArray[rawMatch](out)
	}
	switch res.Kind {
	case ResultModelError:
		return report, res.Err
	case ResultParseError:
		m.logger.Warn("market match output not decodable", zap.Error(res.Err))
		return report, nil
	}
	report.Matches = resolveMatches(res.Items, len(events), markets)
	m.logger.Info("markets matched",
		zap.Int("events", len(events)),
		zap.Int("markets", len(markets)),
		zap.Int("matches", len(report.Matches)),
	)
	return report, nil
}

// resolveMatches converts 1-based indices, drops out-of-range entries and
// keeps the first match per event.
func resolveMatches(raw []rawMatch, eventCount int, markets []gamma.Market) []MarketMatch {
	seen := map[int]struct{}{}
	out := []MarketMatch{}
	for _, r := range raw {
		ei := r.EventIndex - 1
		mi := r.MarketIndex - 1
		if ei < 0 || ei >= eventCount || mi < 0 || mi >= len(markets) {
			continue
		}
		outcome := Outcome(strings.ToUpper(strings.TrimSpace(r.Outcome)))
		if outcome != OutcomeYes && outcome != OutcomeNo {
			continue
		}
		if _, dup := seen[ei]; dup {
			continue
		}
		seen[ei] = struct{}{}
		mk := markets[mi]
		price := mk.YesPrice
		if outcome == OutcomeNo {
			price = mk.NoPrice
		}
		out = append(out, MarketMatch{
			MarketID:         mk.ID,
			Question:         mk.Question,
			ConfirmedOutcome: outcome,
			Reasoning:        strings.TrimSpace(r.Reasoning),
			CurrentPrice:     price,
			EventIndex:       ei,
		})
	}
	return out
}

func matchPrompt(events []ConfirmedEvent, markets []gamma.Market) string {
	var b strings.Builder
	b.WriteString("Match confirmed real-world events to prediction markets they decide.\n\n")
	b.WriteString("Confirmed events:\n")
	for i, ev := range events {
		fmt.Fprintf(&b, "%d. %s", i+1, ev.Summary)
		if ev.Detail != "" {
			fmt.Fprintf(&b, " - %s", ev.Detail)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nMarkets:\n")
	for i, mk := range markets {
		fmt.Fprintf(&b, "%d. %s (YES %s / NO %s)\n", i+1, mk.Question, mk.YesPrice.StringFixed(2), mk.NoPrice.StringFixed(2))
	}
	b.WriteString("\nOnly include a match when the event definitively settles the market.\n")
	b.WriteString("Return a JSON array and nothing else:\n")
	b.WriteString(`[{"event_index": 1, "market_index": 1, "outcome": "YES", "reasoning": "why the event settles the market"}]`)
	b.WriteString("\nReturn [] when no market is settled.\n")
	return b.String()
}
