// Package ratelimit caches outbound news calls behind a shared daily request
// budget and a per-cycle cap on targeted searches.
package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"eventarb/internal/cache"
)

var (
	ErrBudgetExhausted = errors.New("daily request budget exhausted")
	ErrCycleCapReached = errors.New("per-cycle search cap reached")
	// ErrUpstreamRateLimited is wrapped by fetchers when the upstream answers 429.
	ErrUpstreamRateLimited = errors.New("upstream rate limited")
)

// Kind tells the limiter which budgets a fetch draws from.
type Kind int

const (
	KindHeadline Kind = iota
	KindSearch
)

type Config struct {
	DailyLimit          int
	MaxSearchesPerCycle int
	HeadlineTTL         time.Duration
	SearchTTL           time.Duration
	Location            *time.Location
}

func (c Config) withDefaults() Config {
	if c.DailyLimit <= 0 {
		c.DailyLimit = 95
	}
	if c.MaxSearchesPerCycle <= 0 {
		c.MaxSearchesPerCycle = 3
	}
	if c.HeadlineTTL <= 0 {
		c.HeadlineTTL = 30 * time.Minute
	}
	if c.SearchTTL <= 0 {
		c.SearchTTL = 2 * time.Hour
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}

// Budget is a read-only view of the counters.
type Budget struct {
	DailyRequestCount   int    `json:"daily_request_count"`
	DailyLimit          int    `json:"daily_limit"`
	LastResetDate       string `json:"last_reset_date"`
	SearchesThisCycle   int    `json:"searches_this_cycle"`
	MaxSearchesPerCycle int    `json:"max_searches_per_cycle"`
}

// Stats counts degraded conditions since the last DrainStats call.
type Stats struct {
	Fetches         int `json:"fetches"`
	CacheHits       int `json:"cache_hits"`
	RateLimitHits   int `json:"rate_limit_hits"`
	SkippedSearches int `json:"skipped_searches"`
	BudgetSkips     int `json:"budget_skips"`
}

type Option func(*Cache)

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

type Cache struct {
	store  cache.Store
	cfg    Config
	now    func() time.Time
	logger *zap.Logger

	mu     sync.Mutex
	budget Budget
	stats  Stats
}

func New(store cache.Store, cfg Config, opts ...Option) *Cache {
	if store == nil {
		store = cache.NewMemoryStore()
	}
	c := &Cache{
		store:  store,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.budget.DailyLimit = c.cfg.DailyLimit
	c.budget.MaxSearchesPerCycle = c.cfg.MaxSearchesPerCycle
	c.budget.LastResetDate = c.today()
	return c
}

// Slot identifies one cached value.
type Slot struct {
	Key  string
	Kind Kind
}

func HeadlineSlot() Slot { return Slot{Key: "headlines", Kind: KindHeadline} }

func SearchSlot(query string) Slot {
	return Slot{Key: "search:" + NormalizeQuery(query), Kind: KindSearch}
}

// NormalizeQuery lower-cases and collapses whitespace so equivalent queries share a slot.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

func (c *Cache) ttl(kind Kind) time.Duration {
	if kind == KindSearch {
		return c.cfg.SearchTTL
	}
	return c.cfg.HeadlineTTL
}

// Fetch returns the cached value for slot or calls fetch when the slot is cold
// and the budgets allow it.
//
// Budget exhaustion returns the last known value together with ErrBudgetExhausted
// or ErrCycleCapReached. An upstream 429 returns the last known value and no
// error; the spent budget unit is not refunded. Any other fetch error returns
// the last known value and the error.
func Fetch[T any](ctx context.Context, c *Cache, slot Slot, fetch func(context.Context) (T, error)) (T, error) {
	c.CheckBudget()

	if raw, ok, err := c.store.Get(ctx, slot.Key); err == nil && ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			c.mu.Lock()
			c.stats.CacheHits++
			c.mu.Unlock()
			return v, nil
		}
	} else if err != nil {
		c.logger.Warn("cache get failed", zap.String("key", slot.Key), zap.Error(err))
	}

	if err := c.reserve(slot.Kind); err != nil {
		stale, _ := lastKnown[T](ctx, c, slot)
		c.logger.Debug("fetch skipped by budget", zap.String("key", slot.Key), zap.Error(err))
		return stale, err
	}

	v, err := fetch(ctx)
	if err != nil {
		stale, _ := lastKnown[T](ctx, c, slot)
		if errors.Is(err, ErrUpstreamRateLimited) {
			c.mu.Lock()
			c.stats.RateLimitHits++
			c.mu.Unlock()
			c.logger.Warn("upstream rate limited, serving cached value", zap.String("key", slot.Key))
			return stale, nil
		}
		return stale, err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return v, nil
	}
	if err := c.store.Set(ctx, slot.Key, raw, c.ttl(slot.Kind)); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", slot.Key), zap.Error(err))
	}
	if err := c.store.Set(ctx, staleKey(slot), raw, 0); err != nil {
		c.logger.Warn("cache stale set failed", zap.String("key", slot.Key), zap.Error(err))
	}
	return v, nil
}

func lastKnown[T any](ctx context.Context, c *Cache, slot Slot) (T, bool) {
	var v T
	raw, ok, err := c.store.Get(ctx, staleKey(slot))
	if err != nil || !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero, false
	}
	return v, true
}

func staleKey(slot Slot) string { return "stale:" + slot.Key }

// reserve spends one unit of the daily budget, and for searches one unit of the
// cycle cap. Both checks happen before either counter moves.
func (c *Cache) reserve(kind Kind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetIfNewDayLocked()
	if kind == KindSearch && c.budget.SearchesThisCycle >= c.cfg.MaxSearchesPerCycle {
		c.stats.SkippedSearches++
		return ErrCycleCapReached
	}
	if c.budget.DailyRequestCount >= c.cfg.DailyLimit {
		c.stats.BudgetSkips++
		if kind == KindSearch {
			c.stats.SkippedSearches++
		}
		return ErrBudgetExhausted
	}
	c.budget.DailyRequestCount++
	if kind == KindSearch {
		c.budget.SearchesThisCycle++
	}
	c.stats.Fetches++
	return nil
}

// CheckBudget applies the lazy day rollover and returns the remaining daily units.
func (c *Cache) CheckBudget() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetIfNewDayLocked()
	return c.cfg.DailyLimit - c.budget.DailyRequestCount
}

func (c *Cache) resetIfNewDayLocked() {
	today := c.today()
	if today != c.budget.LastResetDate {
		c.logger.Info("daily request budget reset",
			zap.String("previous_date", c.budget.LastResetDate),
			zap.Int("previous_count", c.budget.DailyRequestCount),
		)
		c.budget.DailyRequestCount = 0
		c.budget.LastResetDate = today
	}
}

func (c *Cache) today() string {
	return c.now().In(c.cfg.Location).Format("2006-01-02")
}

// ResetCycle zeroes the per-cycle search counter. The orchestrator calls it at
// the start of every scan.
func (c *Cache) ResetCycle() {
	c.mu.Lock()
	c.budget.SearchesThisCycle = 0
	c.mu.Unlock()
}

func (c *Cache) Budget() Budget {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.budget
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// DrainStats returns the counters and zeroes them.
func (c *Cache) DrainStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.stats
	c.stats = Stats{}
	return out
}
