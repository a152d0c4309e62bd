package trading

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Execution reports what the executor did for one decision.
type Execution struct {
	Result           TradeResult
	DepositAttempted bool
	Retried          bool
}

// Executor places orders and recovers once from an insufficient balance by
// depositing the order size, waiting for settlement and retrying.
type Executor struct {
	trader          Trader
	settlementDelay time.Duration
	sleep           func(ctx context.Context, d time.Duration) error
	logger          *zap.Logger
}

func NewExecutor(trader Trader, settlementDelay time.Duration, logger *zap.Logger) *Executor {
	if settlementDelay < 0 {
		settlementDelay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{trader: trader, settlementDelay: settlementDelay, sleep: sleepContext, logger: logger}
}

// WithSleep replaces the settlement wait; tests use it to avoid real delays.
func (e *Executor) WithSleep(fn func(ctx context.Context, d time.Duration) error) *Executor {
	if fn != nil {
		e.sleep = fn
	}
	return e
}

func (e *Executor) Trader() Trader { return e.trader }

func (e *Executor) Execute(ctx context.Context, d Decision) (Execution, error) {
	var ex Execution
	if !d.ShouldTrade || !d.Size.IsPositive() {
		return ex, ErrNotTradable
	}
	res, err := e.trader.ExecuteTrade(ctx, d)
	if err == nil {
		ex.Result = res
		return ex, nil
	}
	kind := ClassifyError(err)
	if kind != KindInsufficientBalance {
		return ex, &Error{Kind: kind, Err: err}
	}

	e.logger.Warn("insufficient balance, depositing",
		zap.String("market_id", d.MarketID),
		zap.String("amount", d.Size.String()),
	)
	ex.DepositAttempted = true
	if derr := e.trader.HandleDeposit(ctx, d.Size); derr != nil {
		return ex, &Error{Kind: KindInsufficientBalance, Err: fmt.Errorf("deposit failed: %w (order: %v)", derr, err)}
	}
	if err := e.sleep(ctx, e.settlementDelay); err != nil {
		return ex, err
	}

	ex.Retried = true
	res, err = e.trader.ExecuteTrade(ctx, d)
	if err != nil {
		return ex, &Error{Kind: ClassifyError(err), Err: fmt.Errorf("retry after deposit: %w", err)}
	}
	ex.Result = res
	return ex, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
