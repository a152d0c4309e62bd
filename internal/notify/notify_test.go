package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventarb/internal/config"
)

func TestTelegram_Notify(t *testing.T) {
	var got telegramSendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottok/sendMessage" {
			t.Fatalf("path=%s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := &Telegram{BotToken: "tok", ChatID: "42", BaseURL: srv.URL, HTTP: srv.Client()}
	if err := tg.Notify(context.Background(), Message{Event: "trade", Text: "BUY YES"}); err != nil {
		t.Fatalf("err=%v", err)
	}
	if got.ChatID != "42" || got.Text != "[trade] BUY YES" {
		t.Fatalf("got=%+v", got)
	}
}

func TestWebhook_NotifyErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	wh := &Webhook{URL: srv.URL, Project: "eventarb", HTTP: srv.Client()}
	if err := wh.Notify(context.Background(), Message{Text: "x"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFromConfig(t *testing.T) {
	if _, ok := FromConfig(config.NotifyConfig{}).(Nop); !ok {
		t.Fatalf("empty config should yield Nop")
	}
	n := FromConfig(config.NotifyConfig{TelegramBotToken: "t", TelegramChatID: "c", WebhookURL: "http://x"})
	m, ok := n.(Multi)
	if !ok || len(m) != 2 {
		t.Fatalf("got %T %v", n, n)
	}
}
