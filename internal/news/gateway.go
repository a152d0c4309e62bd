package news

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"eventarb/internal/ratelimit"
)

// BreakingQuery is the fixed search issued by FetchForArbitrage.
const BreakingQuery = "breaking OR confirmed OR announced"

type GatewayConfig struct {
	Language       string
	SearchPageSize int
	LookbackDays   int
}

// Gateway serves annotated articles through the rate-limited cache. Upstream
// trouble degrades to cached or empty results rather than failing the caller.
type Gateway struct {
	source   Source
	limiter  *ratelimit.Cache
	rss      *RSSSource
	analyzer *Analyzer
	cfg      GatewayConfig
	logger   *zap.Logger
	now      func() time.Time

	mu        sync.Mutex
	headlines []Article
}

type GatewayOption func(*Gateway)

func WithRSS(rss *RSSSource) GatewayOption {
	return func(g *Gateway) { g.rss = rss }
}

func WithGatewayLogger(l *zap.Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithGatewayClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

func NewGateway(source Source, limiter *ratelimit.Cache, analyzer *Analyzer, cfg GatewayConfig, opts ...GatewayOption) *Gateway {
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.SearchPageSize <= 0 {
		cfg.SearchPageSize = 50
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 3
	}
	if analyzer == nil {
		analyzer = NewAnalyzer(nil)
	}
	g := &Gateway{
		source:   source,
		limiter:  limiter,
		analyzer: analyzer,
		cfg:      cfg,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) Limiter() *ratelimit.Cache { return g.limiter }

// Headlines returns top headlines, merged with RSS items when feeds are configured.
func (g *Gateway) Headlines(ctx context.Context) []Article {
	arts, err := ratelimit.Fetch(ctx, g.limiter, ratelimit.HeadlineSlot(), func(ctx context.Context) ([]Article, error) {
		raw, err := g.source.TopHeadlines(ctx)
		if err != nil {
			return nil, err
		}
		return g.analyzer.AnnotateAll(raw), nil
	})
	g.logFetchErr("headlines", "", err)
	if g.rss != nil {
		arts = Dedupe(arts, g.analyzer.AnnotateAll(g.rss.Items(ctx)))
	}
	if arts == nil {
		arts = []Article{}
	}
	if len(arts) > 0 {
		g.mu.Lock()
		g.headlines = arts
		g.mu.Unlock()
	}
	return arts
}

// Search runs a keyword search over the lookback window. When the budget
// skips the request and nothing is cached, the last headlines are matched
// against the query locally.
func (g *Gateway) Search(ctx context.Context, query string) []Article {
	params := SearchParams{
		Query:    query,
		Language: g.cfg.Language,
		SortBy:   "publishedAt",
		PageSize: g.cfg.SearchPageSize,
		From:     g.now().AddDate(0, 0, -g.cfg.LookbackDays),
	}
	terms := queryTerms(query)
	arts, err := ratelimit.Fetch(ctx, g.limiter, ratelimit.SearchSlot(query), func(ctx context.Context) ([]Article, error) {
		raw, err := g.source.Everything(ctx, params)
		if err != nil {
			return nil, err
		}
		out := g.analyzer.AnnotateAll(raw)
		for i := range out {
			out[i].RelevanceScore = Relevance(out[i], terms)
		}
		return out, nil
	})
	g.logFetchErr("search", query, err)
	if len(arts) == 0 && skippedByBudget(err) {
		g.mu.Lock()
		seen := g.headlines
		g.mu.Unlock()
		arts = MatchArticlesLocally(seen, query)
	}
	if arts == nil {
		arts = []Article{}
	}
	return arts
}

// FetchForArbitrage pulls headlines and the breaking-news search concurrently
// and returns them deduplicated by title, headlines first.
func (g *Gateway) FetchForArbitrage(ctx context.Context) []Article {
	var headlines, breaking []Article
	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		headlines = g.Headlines(egctx)
		return nil
	})
	eg.Go(func() error {
		breaking = g.Search(egctx, BreakingQuery)
		return nil
	})
	_ = eg.Wait()
	out := Dedupe(headlines, breaking)
	g.logger.Info("news fetched",
		zap.Int("headlines", len(headlines)),
		zap.Int("breaking", len(breaking)),
		zap.Int("unique", len(out)),
		zap.Int("budget_remaining", g.limiter.CheckBudget()),
	)
	return out
}

func skippedByBudget(err error) bool {
	return errors.Is(err, ratelimit.ErrBudgetExhausted) || errors.Is(err, ratelimit.ErrCycleCapReached)
}

func (g *Gateway) logFetchErr(kind, query string, err error) {
	switch {
	case err == nil:
	case skippedByBudget(err):
		g.logger.Info("news request skipped", zap.String("kind", kind), zap.String("query", query), zap.Error(err))
	default:
		g.logger.Warn("news request failed", zap.String("kind", kind), zap.String("query", query), zap.Error(err))
	}
}
