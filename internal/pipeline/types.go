package pipeline

import "github.com/shopspring/decimal"

// ConfirmedEvent is an event the model judged to have already happened.
type ConfirmedEvent struct {
	Summary string   `json:"event"`
	Detail  string   `json:"details"`
	Sources []string `json:"sources"`
}

type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

// MarketMatch ties a confirmed event to the market outcome it settles.
type MarketMatch struct {
	MarketID         string          `json:"market_id"`
	Question         string          `json:"question"`
	ConfirmedOutcome Outcome         `json:"confirmed_outcome"`
	Reasoning        string          `json:"reasoning"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	EventIndex       int             `json:"event_index"`
}

type Opportunity struct {
	MarketID      string          `json:"market_id"`
	Question      string          `json:"question"`
	Outcome       Outcome         `json:"outcome"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	Confidence    float64         `json:"confidence"`
	ExpectedValue decimal.Decimal `json:"expected_value"`
	RiskScore     decimal.Decimal `json:"risk_score"`
	Signals       []string        `json:"signals"`
}
