package trading

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"eventarb/internal/position"
)

// PaperTrader fills every order at the decision price against a simulated
// balance. Deposits credit the balance immediately.
type PaperTrader struct {
	mu        sync.Mutex
	balance   decimal.Decimal
	positions map[string]position.Position
	deposits  []decimal.Decimal
	now       func() time.Time
	// DepositFails makes HandleDeposit return an error, for dry runs of the
	// recovery path.
	DepositFails bool
}

func NewPaperTrader(balance decimal.Decimal) *PaperTrader {
	return &PaperTrader{balance: balance, positions: map[string]position.Position{}, now: time.Now}
}

func (p *PaperTrader) CheckBalance(_ context.Context, amount decimal.Decimal) (Balance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Balance{Available: p.balance, Sufficient: p.balance.GreaterThanOrEqual(amount)}, nil
}

func (p *PaperTrader) ExecuteTrade(_ context.Context, d Decision) (TradeResult, error) {
	if !d.Price.IsPositive() {
		return TradeResult{}, &Error{Kind: KindRejected, Err: fmt.Errorf("invalid price %s", d.Price)}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.balance.LessThan(d.Size) {
		return TradeResult{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientBalance, d.Size, p.balance)
	}
	p.balance = p.balance.Sub(d.Size)
	shares := d.Size.Div(d.Price)
	pos, ok := p.positions[d.MarketID]
	if !ok {
		pos = position.Position{MarketID: d.MarketID, Outcome: string(d.Outcome), OpenedAt: p.now().UTC(), AvgPrice: d.Price}
	} else {
		total := pos.Size.Add(shares)
		pos.AvgPrice = pos.Size.Mul(pos.AvgPrice).Add(shares.Mul(d.Price)).Div(total)
	}
	pos.Size = pos.Size.Add(shares)
	p.positions[d.MarketID] = pos
	return TradeResult{
		OrderID:    "paper-" + uuid.NewString(),
		Status:     "filled",
		FilledSize: d.Size,
		AvgPrice:   d.Price,
	}, nil
}

func (p *PaperTrader) HandleDeposit(_ context.Context, amount decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.DepositFails {
		return fmt.Errorf("paper deposit disabled")
	}
	p.balance = p.balance.Add(amount)
	p.deposits = append(p.deposits, amount)
	return nil
}

func (p *PaperTrader) OpenPositions(context.Context) ([]position.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]position.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	return out, nil
}

func (p *PaperTrader) Deposits() []decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]decimal.Decimal(nil), p.deposits...)
}
