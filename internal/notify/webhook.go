package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Webhook struct {
	URL     string
	Project string
	HTTP    *http.Client
}

type webhookPayload struct {
	Project string `json:"project"`
	Event   string `json:"event"`
	Message string `json:"message"`
	SentAt  string `json:"sent_at"`
}

func (w *Webhook) Notify(ctx context.Context, msg Message) error {
	b, err := json.Marshal(webhookPayload{
		Project: w.Project,
		Event:   msg.Event,
		Message: msg.Text,
		SentAt:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	client := w.HTTP
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(b))
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
		return fmt.Errorf("webhook http %d", resp.StatusCode)
	}
	return nil
}
