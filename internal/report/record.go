package report

import (
	"time"

	"eventarb/internal/pipeline"
	"eventarb/internal/trading"
)

// DecisionRecord is a decision plus what happened to it.
type DecisionRecord struct {
	trading.Decision
	Executed         bool      `json:"executed"`
	MonitorOnly      bool      `json:"monitor_only"`
	DepositAttempted bool      `json:"deposit_attempted"`
	OrderID          string    `json:"order_id,omitempty"`
	Error            string    `json:"error,omitempty"`
	DecidedAt        time.Time `json:"decided_at"`
}

// ScanRecord summarises one cycle. Skipped cycles carry SkipReason.
type ScanRecord struct {
	CycleID              string                 `json:"cycle_id"`
	Timestamp            time.Time              `json:"timestamp"`
	State                string                 `json:"state"`
	SkipReason           string                 `json:"skip_reason,omitempty"`
	ArticlesFetched      int                    `json:"articles_fetched"`
	EventsExtracted      int                    `json:"events_extracted"`
	MarketsFetched       int                    `json:"markets_fetched"`
	Opportunities        []pipeline.Opportunity `json:"opportunities"`
	Decisions            []DecisionRecord       `json:"decisions"`
	SkippedOpportunities int                    `json:"skipped_opportunities"`
	SkippedSearches      int                    `json:"skipped_searches"`
	RateLimitHits        int                    `json:"rate_limit_hits"`
	APICallsUsed         int                    `json:"api_calls_used"`
	Errors               []string               `json:"errors,omitempty"`
}

func (r ScanRecord) TradesExecuted() int {
	n := 0
	for _, d := range r.Decisions {
		if d.Executed {
			n++
		}
	}
	return n
}
