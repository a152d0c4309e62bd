package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Retrier wraps a Completer with linear backoff on transient failures. The
// wait after attempt n is n*Unit, and it is also served after the last
// transient failure before the error is returned.
type Retrier struct {
	Completer Completer
	Attempts  int
	Unit      time.Duration
	Sleep     func(ctx context.Context, d time.Duration) error
	Logger    *zap.Logger
}

func NewRetrier(c Completer, attempts int, unit time.Duration, logger *zap.Logger) *Retrier {
	if attempts <= 0 {
		attempts = 3
	}
	if unit <= 0 {
		unit = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrier{Completer: c, Attempts: attempts, Unit: unit, Sleep: SleepContext, Logger: logger}
}

func (r *Retrier) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.Attempts; attempt++ {
		out, err := r.Completer.Complete(ctx, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if Classify(err) != KindTransient {
			return "", err
		}
		wait := time.Duration(attempt) * r.Unit
		r.Logger.Warn("llm transient failure",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.Attempts),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if err := r.Sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("llm failed after %d attempts: %w", r.Attempts, lastErr)
}

func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
