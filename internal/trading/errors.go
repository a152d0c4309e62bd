package trading

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotTradable         = errors.New("decision is not tradable")
)

// Kind groups backend failures by how the executor reacts to them.
type Kind int

const (
	KindUnknown Kind = iota
	KindInsufficientBalance
	KindRateLimited
	KindTransient
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindInsufficientBalance:
		return "insufficient_balance"
	case KindRateLimited:
		return "rate_limited"
	case KindTransient:
		return "transient"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Error is a classified backend error.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("trading API error (%d): %s", e.Status, e.Body)
}

var insufficientTokens = []string{"insufficient", "allowance", "not enough balance"}

var transientTokens = []string{"timeout", "timed out", "connection reset", "connection refused", "unavailable", "eof"}

// ClassifyError maps a backend error onto a Kind. Message matching is only
// used when the error carries no structure.
func ClassifyError(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	if errors.Is(err, ErrInsufficientBalance) {
		return KindInsufficientBalance
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	msg := strings.ToLower(err.Error())
	for _, tok := range insufficientTokens {
		if strings.Contains(msg, tok) {
			return KindInsufficientBalance
		}
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusTooManyRequests:
			return KindRateLimited
		case apiErr.Status >= 500:
			return KindTransient
		case apiErr.Status >= 400:
			return KindRejected
		}
	}
	if strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests") {
		return KindRateLimited
	}
	for _, tok := range transientTokens {
		if strings.Contains(msg, tok) {
			return KindTransient
		}
	}
	if strings.Contains(msg, "rejected") || strings.Contains(msg, "invalid") {
		return KindRejected
	}
	return KindUnknown
}
