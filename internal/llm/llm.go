package llm

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v3"
)

// Completer turns a prompt into raw model text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

var ErrEmptyResponse = errors.New("llm returned no text")

// Kind separates failures worth retrying from the rest.
type Kind int

const (
	KindFatal Kind = iota
	KindTransient
)

func (k Kind) String() string {
	if k == KindTransient {
		return "transient"
	}
	return "fatal"
}

var transientTokens = []string{
	"overloaded",
	"529",
	"503",
	"502",
	"unavailable",
	"timeout",
	"timed out",
	"rate limit",
	"too many requests",
	"connection reset",
	"temporarily",
}

// Classify reports whether err is a transient backend condition.
func Classify(err error) Kind {
	if err == nil {
		return KindFatal
	}
	if errors.Is(err, context.Canceled) {
		return KindFatal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTransient
	}
	var anthErr *anthropic.Error
	if errors.As(err, &anthErr) {
		return classifyStatus(anthErr.StatusCode)
	}
	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		return classifyStatus(oaiErr.StatusCode)
	}
	msg := strings.ToLower(err.Error())
	for _, tok := range transientTokens {
		if strings.Contains(msg, tok) {
			return KindTransient
		}
	}
	return KindFatal
}

func classifyStatus(code int) Kind {
	switch {
	case code == 408, code == 429, code >= 500:
		return KindTransient
	default:
		return KindFatal
	}
}
