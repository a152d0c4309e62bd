package position

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Position struct {
	MarketID string          `json:"market_id"`
	Outcome  string          `json:"outcome"`
	Size     decimal.Decimal `json:"size"`
	AvgPrice decimal.Decimal `json:"avg_price"`
	OpenedAt time.Time       `json:"opened_at"`
}

// Source is the authoritative list of open positions, usually the trading backend.
type Source interface {
	OpenPositions(ctx context.Context) ([]Position, error)
}

// SnapshotStore persists the set after each refresh.
type SnapshotStore interface {
	SavePositionSnapshot(ctx context.Context, at time.Time, positions []Position) error
}

// Manager owns the open-position set. Refresh always replaces the whole set.
type Manager struct {
	source Source
	store  SnapshotStore
	logger *zap.Logger
	now    func() time.Time

	mu          sync.RWMutex
	open        map[string]Position
	refreshedAt time.Time
}

type Option func(*Manager)

func WithSnapshotStore(s SnapshotStore) Option {
	return func(m *Manager) { m.store = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(source Source, opts ...Option) *Manager {
	m := &Manager{
		source: source,
		logger: zap.NewNop(),
		now:    time.Now,
		open:   map[string]Position{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Refresh(ctx context.Context) error {
	if m.source == nil {
		return fmt.Errorf("position source not configured")
	}
	list, err := m.source.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("load open positions: %w", err)
	}
	next := make(map[string]Position, len(list))
	for _, p := range list {
		if p.MarketID == "" {
			continue
		}
		next[p.MarketID] = p
	}
	now := m.now()
	m.mu.Lock()
	m.open = next
	m.refreshedAt = now
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.SavePositionSnapshot(ctx, now, m.Snapshot()); err != nil {
			m.logger.Warn("position snapshot persist failed", zap.Error(err))
		}
	}
	m.logger.Debug("positions refreshed", zap.Int("open", len(next)))
	return nil
}

func (m *Manager) IsOpen(marketID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.open[marketID]
	return ok
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.open)
}

// Snapshot returns the open positions ordered by market id.
func (m *Manager) Snapshot() []Position {
	m.mu.RLock()
	out := make([]Position, 0, len(m.open))
	for _, p := range m.open {
		out = append(out, p)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].MarketID < out[j].MarketID })
	return out
}

func (m *Manager) RefreshedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshedAt
}
