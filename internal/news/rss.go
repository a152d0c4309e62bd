package news

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

// RSSSource polls configured feeds. Results are held for ttl so repeated
// headline calls within a cycle do not refetch.
type RSSSource struct {
	feeds   []string
	ttl     time.Duration
	timeout time.Duration
	parser  *gofeed.Parser
	logger  *zap.Logger
	now     func() time.Time

	mu        sync.Mutex
	items     []RawArticle
	fetchedAt time.Time
}

func NewRSSSource(feeds []string, ttl, timeout time.Duration, logger *zap.Logger) *RSSSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RSSSource{
		feeds:   feeds,
		ttl:     ttl,
		timeout: timeout,
		parser:  gofeed.NewParser(),
		logger:  logger,
		now:     time.Now,
	}
}

func (s *RSSSource) Items(ctx context.Context) []RawArticle {
	if s == nil || len(s.feeds) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fetchedAt.IsZero() && s.now().Sub(s.fetchedAt) < s.ttl {
		return s.items
	}

	var out []RawArticle
	for _, u := range s.feeds {
		fctx, cancel := context.WithTimeout(ctx, s.timeout)
		feed, err := s.parser.ParseURLWithContext(u, fctx)
		cancel()
		if err != nil {
			s.logger.Warn("rss feed failed", zap.String("url", u), zap.Error(err))
			continue
		}
		out = append(out, feedItems(feed)...)
	}
	s.items = out
	s.fetchedAt = s.now()
	return out
}

func feedItems(feed *gofeed.Feed) []RawArticle {
	if feed == nil {
		return nil
	}
	out := make([]RawArticle, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil || strings.TrimSpace(it.Title) == "" {
			continue
		}
		var published time.Time
		if it.PublishedParsed != nil {
			published = it.PublishedParsed.UTC()
		} else if it.UpdatedParsed != nil {
			published = it.UpdatedParsed.UTC()
		}
		out = append(out, RawArticle{
			Title:       strings.TrimSpace(it.Title),
			Description: strings.TrimSpace(it.Description),
			URL:         strings.TrimSpace(it.Link),
			Source:      strings.TrimSpace(feed.Title),
			PublishedAt: published,
		})
	}
	return out
}
