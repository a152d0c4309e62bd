package report

import (
	"github.com/shopspring/decimal"

	"eventarb/internal/position"
)

type Verdict string

const (
	VerdictLikelyWon  Verdict = "likely_won"
	VerdictLikelyLost Verdict = "likely_lost"
	VerdictOpen       Verdict = "open"
)

var (
	wonAbove  = decimal.RequireFromString("0.90")
	lostBelow = decimal.RequireFromString("0.10")
)

// GradedPosition is a price-based guess at how a position will settle. It is
// not a resolution oracle; Approximate is always true.
type GradedPosition struct {
	MarketID     string          `json:"market_id"`
	Outcome      string          `json:"outcome"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Verdict      Verdict         `json:"verdict"`
	Approximate  bool            `json:"approximate"`
}

// Grade reads the current price of the held outcome: above 0.90 is treated as
// a likely win, below 0.10 as a likely loss.
func Grade(p position.Position, currentPrice decimal.Decimal) GradedPosition {
	v := VerdictOpen
	switch {
	case currentPrice.GreaterThan(wonAbove):
		v = VerdictLikelyWon
	case currentPrice.LessThan(lostBelow):
		v = VerdictLikelyLost
	}
	return GradedPosition{
		MarketID:     p.MarketID,
		Outcome:      p.Outcome,
		EntryPrice:   p.AvgPrice,
		CurrentPrice: currentPrice,
		Verdict:      v,
		Approximate:  true,
	}
}
