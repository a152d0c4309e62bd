package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"eventarb/internal/llm"
	"eventarb/internal/news"
)

const (
	defaultMaxArticles = 40
	defaultMaxEvents   = 10
)

// EventExtractor asks the model which articles report events that have
// already happened.
type EventExtractor struct {
	model       llm.Completer
	maxArticles int
	maxEvents   int
	logger      *zap.Logger
}

func NewEventExtractor(model llm.Completer, maxArticles, maxEvents int, logger *zap.Logger) *EventExtractor {
	if maxArticles <= 0 {
		maxArticles = defaultMaxArticles
	}
	if maxEvents <= 0 {
		maxEvents = defaultMaxEvents
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventExtractor{model: model, maxArticles: maxArticles, maxEvents: maxEvents, logger: logger}
}

// Extract returns at most maxEvents confirmed events. Unparseable model output
// yields no events and no error; a model failure after retries is returned.
func (e *EventExtractor) Extract(ctx context.Context, articles []news.Article) ([]ConfirmedEvent, error) {
	if len(articles) == 0 {
		return nil, nil
	}
	res := e.run(ctx, newestFirst(articles, e.maxArticles))
	switch res.Kind {
	case ResultModelError:
		return nil, res.Err
	case ResultParseError:
		e.logger.Warn("event extraction output not decodable", zap.Error(res.Err))
		return nil, nil
	}
	events := make([]ConfirmedEvent, 0, len(res.Items))
	for _, ev := range res.Items {
		if strings.TrimSpace(ev.Summary) == "" {
			continue
		}
		events = append(events, ev)
		if len(events) == e.maxEvents {
			break
		}
	}
	e.logger.Info("events extracted", zap.Int("articles", len(articles)), zap.Int("events", len(events)))
	return events, nil
}

func (e *EventExtractor) run(ctx context.Context, articles []news.Article) Result[ConfirmedEvent] {
	out, err := e.model.Complete(ctx, extractionPrompt(articles, e.maxEvents))
	if err != nil {
		return modelError[ConfirmedEvent](err)
	}
	return DecodeArray[ConfirmedEvent](out)
}

// newestFirst keeps the limit most recent articles.
func newestFirst(articles []news.Article, limit int) []news.Article {
	sorted := make([]news.Article, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.After(sorted[j].PublishedAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func extractionPrompt(articles []news.Article, maxEvents int) string {
	var b strings.Builder
	b.WriteString("You review news articles and identify events that have ALREADY HAPPENED and are officially confirmed.\n")
	b.WriteString("Ignore predictions, rumours, polls, expectations and anything still pending.\n\n")
	b.WriteString("Articles:\n")
	for i, a := range articles {
		fmt.Fprintf(&b, "%d. %s", i+1, a.Title)
		if a.Source != "" {
			fmt.Fprintf(&b, " (%s", a.Source)
			if !a.PublishedAt.IsZero() {
				fmt.Fprintf(&b, ", %s", a.PublishedAt.UTC().Format("2006-01-02 15:04"))
			}
			b.WriteString(")")
		}
		b.WriteString("\n")
		if d := truncate(a.Description, 240); d != "" {
			fmt.Fprintf(&b, "   %s\n", d)
		}
	}
	fmt.Fprintf(&b, "\nReturn at most %d events as a JSON array and nothing else:\n", maxEvents)
	b.WriteString(`[{"event": "one-line summary", "details": "what exactly was confirmed", "sources": ["source name"]}]`)
	b.WriteString("\nReturn [] when nothing is confirmed.\n")
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
