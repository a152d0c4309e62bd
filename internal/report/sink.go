package report

import (
	"context"
	"errors"
)

// Sink receives cycle records. Callers log and drop its errors.
type Sink interface {
	Record(ctx context.Context, rec ScanRecord) error
	Snapshot(ctx context.Context) error
	// DailyReport persists the current day and returns where it went.
	DailyReport(ctx context.Context, apiCallsUsed int) (string, error)
}

// GradeRecorder is implemented by sinks that keep approximate position grades.
type GradeRecorder interface {
	RecordGrades(ctx context.Context, grades []GradedPosition) error
}

type MultiSink []Sink

func (m MultiSink) Record(ctx context.Context, rec ScanRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Snapshot(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if err := s.Snapshot(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DailyReport returns the first non-empty location.
func (m MultiSink) DailyReport(ctx context.Context, apiCallsUsed int) (string, error) {
	var errs []error
	var path string
	for _, s := range m {
		p, err := s.DailyReport(ctx, apiCallsUsed)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if path == "" {
			path = p
		}
	}
	return path, errors.Join(errs...)
}

func (m MultiSink) RecordGrades(ctx context.Context, grades []GradedPosition) error {
	var errs []error
	for _, s := range m {
		if gr, ok := s.(GradeRecorder); ok {
			if err := gr.RecordGrades(ctx, grades); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

type NopSink struct{}

func (NopSink) Record(context.Context, ScanRecord) error         { return nil }
func (NopSink) Snapshot(context.Context) error                   { return nil }
func (NopSink) DailyReport(context.Context, int) (string, error) { return "", nil }
