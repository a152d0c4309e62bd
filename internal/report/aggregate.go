package report

import (
	"fmt"
	"sync"
	"time"
)

type Bucket struct {
	Cycles        int `json:"cycles"`
	Opportunities int `json:"opportunities"`
	Decisions     int `json:"decisions"`
	Trades        int `json:"trades"`
	Skipped       int `json:"skipped"`
	RateLimitHits int `json:"rate_limit_hits"`
}

func (b *Bucket) add(rec ScanRecord) {
	b.Cycles++
	b.Opportunities += len(rec.Opportunities)
	b.Decisions += len(rec.Decisions)
	b.Trades += rec.TradesExecuted()
	b.Skipped += rec.SkippedOpportunities
	if rec.SkipReason != "" {
		b.Skipped++
	}
	b.RateLimitHits += rec.RateLimitHits
}

type SnapshotEntry struct {
	At     time.Time `json:"at"`
	Totals Bucket    `json:"totals"`
}

// Day is the persisted per-date report.
type Day struct {
	Date            string             `json:"date"`
	Hours           map[string]*Bucket `json:"hours"`
	Totals          Bucket             `json:"totals"`
	RecentDecisions []DecisionRecord   `json:"recent_decisions"`
	Snapshots       []SnapshotEntry    `json:"snapshots,omitempty"`
	Grades          []GradedPosition   `json:"grades,omitempty"`
	APICallsUsed    int                `json:"api_calls_used"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Aggregator folds scan records into the current day. A record dated after
// the current day starts a fresh one.
type Aggregator struct {
	mu        sync.Mutex
	loc       *time.Location
	maxRecent int
	day       *Day
}

func NewAggregator(maxRecent int, loc *time.Location) *Aggregator {
	if maxRecent <= 0 {
		maxRecent = 200
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{maxRecent: maxRecent, loc: loc}
}

func newDay(date string) *Day {
	return &Day{Date: date, Hours: map[string]*Bucket{}, RecentDecisions: []DecisionRecord{}}
}

func (a *Aggregator) dayFor(t time.Time) *Day {
	date := a.Date(t)
	if a.day == nil || a.day.Date != date {
		a.day = newDay(date)
	}
	return a.day
}

// Add folds rec in and returns a copy of the updated day.
func (a *Aggregator) Add(rec ScanRecord) Day {
	a.mu.Lock()
	defer a.mu.Unlock()
	d := a.dayFor(rec.Timestamp)
	hour := fmt.Sprintf("%02d", rec.Timestamp.In(a.loc).Hour())
	b, ok := d.Hours[hour]
	if !ok {
		b = &Bucket{}
		d.Hours[hour] = b
	}
	b.add(rec)
	d.Totals.add(rec)
	d.RecentDecisions = append(d.RecentDecisions, rec.Decisions...)
	if n := len(d.RecentDecisions); n > a.maxRecent {
		d.RecentDecisions = append([]DecisionRecord(nil), d.RecentDecisions[n-a.maxRecent:]...)
	}
	if rec.APICallsUsed > d.APICallsUsed {
		d.APICallsUsed = rec.APICallsUsed
	}
	d.UpdatedAt = rec.Timestamp
	return cloneDay(d)
}

func (a *Aggregator) Snapshot(at time.Time) Day {
	a.mu.Lock()
	defer a.mu.Unlock()
	d := a.dayFor(at)
	d.Snapshots = append(d.Snapshots, SnapshotEntry{At: at, Totals: d.Totals})
	d.UpdatedAt = at
	return cloneDay(d)
}

func (a *Aggregator) SetGrades(at time.Time, grades []GradedPosition) Day {
	a.mu.Lock()
	defer a.mu.Unlock()
	d := a.dayFor(at)
	d.Grades = append([]GradedPosition(nil), grades...)
	d.UpdatedAt = at
	return cloneDay(d)
}

func (a *Aggregator) Finalize(at time.Time, apiCallsUsed int) Day {
	a.mu.Lock()
	defer a.mu.Unlock()
	d := a.dayFor(at)
	if apiCallsUsed > d.APICallsUsed {
		d.APICallsUsed = apiCallsUsed
	}
	d.UpdatedAt = at
	return cloneDay(d)
}

// Restore makes d the current day, as after a restart. Nil maps and slices
// are normalised; the recent window is trimmed to the configured size.
func (a *Aggregator) Restore(d Day) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if d.Hours == nil {
		d.Hours = map[string]*Bucket{}
	}
	if n := len(d.RecentDecisions); n > a.maxRecent {
		d.RecentDecisions = d.RecentDecisions[n-a.maxRecent:]
	}
	restored := cloneDay(&d)
	a.day = &restored
}

// Date is today's date in the aggregator's location.
func (a *Aggregator) Date(at time.Time) string {
	return at.In(a.loc).Format("2006-01-02")
}

func (a *Aggregator) Current() (Day, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.day == nil {
		return Day{}, false
	}
	return cloneDay(a.day), true
}

func cloneDay(d *Day) Day {
	out := *d
	out.Hours = make(map[string]*Bucket, len(d.Hours))
	for k, v := range d.Hours {
		b := *v
		out.Hours[k] = &b
	}
	out.RecentDecisions = append([]DecisionRecord{}, d.RecentDecisions...)
	out.Snapshots = append([]SnapshotEntry(nil), d.Snapshots...)
	out.Grades = append([]GradedPosition(nil), d.Grades...)
	return out
}
