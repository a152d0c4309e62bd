package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eventarb/internal/config"
)

func TestAnthropicCompleter_ReadsTextBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/messages") {
			t.Fatalf("path=%s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"m",
			"content":[{"type":"text","text":"[{\"event\":"},{"type":"text","text":"\"x\"}]"}],
			"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`))
	}))
	defer srv.Close()

	c := NewAnthropicCompleter("k", srv.URL+"/", "m", 128, 5*time.Second)
	out, err := c.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if out != `[{"event":"x"}]` {
		t.Fatalf("out=%q", out)
	}
}

func TestAnthropicCompleter_OverloadedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(529)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	}))
	defer srv.Close()

	c := NewAnthropicCompleter("k", srv.URL+"/", "m", 128, 5*time.Second)
	_, err := c.Complete(context.Background(), "hello")
	if err == nil {
		t.Fatalf("expected error")
	}
	if Classify(err) != KindTransient {
		t.Fatalf("err=%v should be transient", err)
	}
}

func TestOpenAICompleter_ReadsFirstChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Fatalf("path=%s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"[]"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter("k", srv.URL+"/", "m", 128, 5*time.Second)
	out, err := c.Complete(context.Background(), "hello")
	if err != nil || out != "[]" {
		t.Fatalf("out=%q err=%v", out, err)
	}
}

func TestNewFromConfig(t *testing.T) {
	if _, err := NewFromConfig(config.LLMConfig{Provider: "anthropic"}); err == nil {
		t.Fatalf("expected error without api key")
	}
	if _, err := NewFromConfig(config.LLMConfig{Provider: "bogus", APIKey: "k"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
	c, err := NewFromConfig(config.LLMConfig{Provider: "openai", APIKey: "k", Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, ok := c.(*OpenAICompleter); !ok {
		t.Fatalf("got %T want *OpenAICompleter", c)
	}
}
