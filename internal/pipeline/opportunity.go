package pipeline

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type OpportunityConfig struct {
	MaxPrice   decimal.Decimal
	Confidence float64
}

func DefaultOpportunityConfig() OpportunityConfig {
	return OpportunityConfig{MaxPrice: decimal.RequireFromString("0.90"), Confidence: 0.95}
}

// BuildOpportunities keeps matches priced under the ceiling. The outcome is
// treated as settled, so confidence is fixed and the edge is confidence - price.
func BuildOpportunities(events []ConfirmedEvent, matches []MarketMatch, cfg OpportunityConfig) []Opportunity {
	conf := decimal.NewFromFloat(cfg.Confidence)
	out := []Opportunity{}
	for _, m := range matches {
		if !m.CurrentPrice.LessThan(cfg.MaxPrice) {
			continue
		}
		var summary string
		if m.EventIndex >= 0 && m.EventIndex < len(events) {
			summary = events[m.EventIndex].Summary
		}
		out = append(out, Opportunity{
			MarketID:      m.MarketID,
			Question:      m.Question,
			Outcome:       m.ConfirmedOutcome,
			CurrentPrice:  m.CurrentPrice,
			Confidence:    cfg.Confidence,
			ExpectedValue: conf.Sub(m.CurrentPrice),
			RiskScore:     m.CurrentPrice,
			Signals: []string{
				"confirmed_event:" + summary,
				"reasoning:" + m.Reasoning,
				fmt.Sprintf("kelly=%.4f", KellyFraction(cfg.Confidence, m.CurrentPrice.InexactFloat64())),
			},
		})
	}
	return out
}

// KellyFraction is the full-Kelly stake (p-m)/(1-m), zero without an edge.
func KellyFraction(p, m float64) float64 {
	if p <= m || m >= 1 {
		return 0
	}
	return (p - m) / (1 - m)
}
