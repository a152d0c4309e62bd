package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Telegram struct {
	BotToken string
	ChatID   string
	// BaseURL overrides https://api.telegram.org.
	BaseURL string
	HTTP    *http.Client
}

type telegramSendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

func (t *Telegram) Notify(ctx context.Context, msg Message) error {
	if t.BotToken == "" || t.ChatID == "" {
		return fmt.Errorf("missing bot_token/chat_id")
	}
	base := strings.TrimRight(t.BaseURL, "/")
	if base == "" {
		base = "https://api.telegram.org"
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", base, url.PathEscape(t.BotToken))
	text := msg.Text
	if msg.Event != "" {
		text = "[" + msg.Event + "] " + text
	}
	b, err := json.Marshal(telegramSendMessageRequest{ChatID: t.ChatID, Text: text})
	if err != nil {
		return err
	}
	client := t.HTTP
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram http %d", resp.StatusCode)
	}
	return nil
}
