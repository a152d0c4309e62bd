package trading

import (
	"context"

	"github.com/shopspring/decimal"

	"eventarb/internal/config"
	"eventarb/internal/pipeline"
)

// TradingHours is an hour-of-day window [StartHour, EndHour). A window whose
// end is before its start wraps midnight.
type TradingHours struct {
	StartHour int
	EndHour   int
}

func (h TradingHours) Contains(hour int) bool {
	if h.StartHour == h.EndHour {
		return true
	}
	if h.StartHour < h.EndHour {
		return hour >= h.StartHour && hour < h.EndHour
	}
	return hour >= h.StartHour || hour < h.EndHour
}

// Config is the immutable trading policy built once at startup.
type Config struct {
	MaxPositionSize        decimal.Decimal
	RiskLimitPerTrade      decimal.Decimal
	MinConfidenceThreshold float64
	MaxDailyTrades         int
	MaxOpenPositions       int
	UnsupervisedMode       bool
	TradingHours           *TradingHours
}

func ConfigFrom(c config.TradingConfig) Config {
	out := Config{
		MaxPositionSize:        decimal.NewFromFloat(c.MaxPositionSize),
		RiskLimitPerTrade:      decimal.NewFromFloat(c.RiskLimitPerTrade),
		MinConfidenceThreshold: c.MinConfidenceThreshold,
		MaxDailyTrades:         c.MaxDailyTrades,
		MaxOpenPositions:       c.MaxOpenPositions,
		UnsupervisedMode:       c.UnsupervisedMode,
	}
	if c.HasTradingWindow() {
		out.TradingHours = &TradingHours{StartHour: c.TradingHoursStart, EndHour: c.TradingHoursEnd}
	}
	return out
}

type Decision struct {
	MarketID    string           `json:"market_id"`
	Question    string           `json:"question"`
	Outcome     pipeline.Outcome `json:"outcome"`
	ShouldTrade bool             `json:"should_trade"`
	Size        decimal.Decimal  `json:"size"`
	Price       decimal.Decimal  `json:"price"`
	Confidence  float64          `json:"confidence"`
	Reasoning   string           `json:"reasoning"`
}

type Balance struct {
	Available  decimal.Decimal
	Sufficient bool
}

type TradeResult struct {
	OrderID    string
	Status     string
	FilledSize decimal.Decimal
	AvgPrice   decimal.Decimal
}

// Trader is the order-placing backend.
type Trader interface {
	CheckBalance(ctx context.Context, amount decimal.Decimal) (Balance, error)
	ExecuteTrade(ctx context.Context, d Decision) (TradeResult, error)
	HandleDeposit(ctx context.Context, amount decimal.Decimal) error
}
