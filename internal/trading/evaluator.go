package trading

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"eventarb/internal/pipeline"
)

// Evaluate turns an opportunity into a decision. It has no side effects and
// the same inputs always give the same decision, reasoning included.
func Evaluate(opp pipeline.Opportunity, cfg Config) Decision {
	size := decimal.Min(cfg.MaxPositionSize, cfg.RiskLimitPerTrade)
	confident := opp.Confidence >= cfg.MinConfidenceThreshold
	sized := size.IsPositive()

	d := Decision{
		MarketID:    opp.MarketID,
		Question:    opp.Question,
		Outcome:     opp.Outcome,
		ShouldTrade: confident && sized,
		Size:        size,
		Price:       opp.CurrentPrice,
		Confidence:  opp.Confidence,
	}
	if d.ShouldTrade {
		d.Reasoning = fmt.Sprintf("BUY %s @ %s size=%s conf=%.2f; signals: %s",
			opp.Outcome, opp.CurrentPrice.String(), size.String(), opp.Confidence, strings.Join(opp.Signals, " | "))
		return d
	}
	var unmet []string
	if !confident {
		unmet = append(unmet, fmt.Sprintf("confidence %.2f < threshold %.2f", opp.Confidence, cfg.MinConfidenceThreshold))
	}
	if !sized {
		unmet = append(unmet, fmt.Sprintf("size %s <= 0 (max_position=%s risk_limit=%s)",
			size.String(), cfg.MaxPositionSize.String(), cfg.RiskLimitPerTrade.String()))
	}
	d.Reasoning = "NO TRADE: " + strings.Join(unmet, "; ")
	return d
}
