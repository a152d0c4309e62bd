package trading

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"sentinel", ErrInsufficientBalance, KindInsufficientBalance},
		{"wrapped sentinel", fmt.Errorf("order: %w", ErrInsufficientBalance), KindInsufficientBalance},
		{"insufficient text", errors.New("Insufficient funds for order"), KindInsufficientBalance},
		{"allowance", errors.New("not enough allowance to spend USDC"), KindInsufficientBalance},
		{"not enough balance", errors.New("not enough balance / allowance"), KindInsufficientBalance},
		{"api insufficient", &APIError{Status: 400, Body: `{"error":"insufficient balance"}`}, KindInsufficientBalance},
		{"api 429", &APIError{Status: 429, Body: "slow down"}, KindRateLimited},
		{"api 503", &APIError{Status: 503, Body: "maintenance"}, KindTransient},
		{"api 400", &APIError{Status: 400, Body: "bad tick size"}, KindRejected},
		{"rate limit text", errors.New("rate limit exceeded"), KindRateLimited},
		{"deadline", context.DeadlineExceeded, KindTransient},
		{"timeout text", errors.New("request failed: i/o timeout"), KindTransient},
		{"rejected text", errors.New("order rejected by matcher"), KindRejected},
		{"typed", &Error{Kind: KindRejected, Err: errors.New("x")}, KindRejected},
		{"unknown", errors.New("something odd"), KindUnknown},
		{"nil", nil, KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyError(tc.err); got != tc.want {
				t.Fatalf("ClassifyError(%v)=%s want=%s", tc.err, got, tc.want)
			}
		})
	}
}
