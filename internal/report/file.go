package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileSink writes <dir>/report-YYYY-MM-DD.json, rewriting it on every change.
// Dates are taken in loc.
type FileSink struct {
	dir string
	agg *Aggregator
	now func() time.Time
}

// NewFileSink picks up today's file when one exists so a restart keeps the
// earlier buckets and decisions.
func NewFileSink(dir string, maxRecent int, loc *time.Location, now func() time.Time) (*FileSink, error) {
	if dir == "" {
		dir = "reports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	s := &FileSink{dir: dir, agg: NewAggregator(maxRecent, loc), now: now}
	today := s.agg.Date(now())
	day, err := ReadDay(s.Path(today))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("load report %s: %w", today, err)
	case day.Date == today:
		s.agg.Restore(day)
	}
	return s, nil
}

func (s *FileSink) Path(date string) string {
	return filepath.Join(s.dir, "report-"+date+".json")
}

func (s *FileSink) Record(_ context.Context, rec ScanRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	_, err := s.write(s.agg.Add(rec))
	return err
}

func (s *FileSink) Snapshot(context.Context) error {
	_, err := s.write(s.agg.Snapshot(s.now()))
	return err
}

func (s *FileSink) RecordGrades(_ context.Context, grades []GradedPosition) error {
	_, err := s.write(s.agg.SetGrades(s.now(), grades))
	return err
}

func (s *FileSink) DailyReport(_ context.Context, apiCallsUsed int) (string, error) {
	return s.write(s.agg.Finalize(s.now(), apiCallsUsed))
}

func (s *FileSink) write(day Day) (string, error) {
	raw, err := json.MarshalIndent(day, "", "  ")
	if err != nil {
		return "", err
	}
	path := s.Path(day.Date)
	tmp, err := os.CreateTemp(s.dir, ".report-*.tmp")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}

// ReadDay loads a report previously written by FileSink.
func ReadDay(path string) (Day, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Day{}, err
	}
	var d Day
	if err := json.Unmarshal(raw, &d); err != nil {
		return Day{}, err
	}
	return d, nil
}
