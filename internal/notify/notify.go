package notify

import (
	"context"
	"errors"
	"strings"

	"eventarb/internal/config"
)

type Message struct {
	Event string
	Text  string
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Notify(context.Context, Message) error { return nil }

// FromConfig returns the notifiers that have credentials configured.
func FromConfig(cfg config.NotifyConfig) Notifier {
	var out Multi
	if strings.TrimSpace(cfg.TelegramBotToken) != "" && strings.TrimSpace(cfg.TelegramChatID) != "" {
		out = append(out, &Telegram{BotToken: cfg.TelegramBotToken, ChatID: cfg.TelegramChatID})
	}
	if strings.TrimSpace(cfg.WebhookURL) != "" {
		out = append(out, &Webhook{URL: cfg.WebhookURL, Project: cfg.Project})
	}
	if len(out) == 0 {
		return Nop{}
	}
	return out
}
