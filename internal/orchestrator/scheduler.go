package orchestrator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	cronrunner "eventarb/internal/cron"
)

type ScheduleConfig struct {
	CycleInterval    time.Duration
	SnapshotInterval time.Duration
	RunOnStart       bool
}

// Scheduler drives the orchestrator from cron: one entry for cycles, one for
// snapshots.
type Scheduler struct {
	orch   *Orchestrator
	runner *cronrunner.Runner
	cfg    ScheduleConfig
	logger *zap.Logger
}

func NewScheduler(orch *Orchestrator, runner *cronrunner.Runner, cfg ScheduleConfig, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CycleInterval <= 0 {
		cfg.CycleInterval = 30 * time.Minute
	}
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = time.Hour
	}
	return &Scheduler{orch: orch, runner: runner, cfg: cfg, logger: logger}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.orch.deps.Positions.Refresh(ctx); err != nil {
		s.logger.Warn("initial position refresh failed", zap.Error(err))
	}
	if s.cfg.RunOnStart {
		s.runCycle(ctx)
	}
	if _, err := s.runner.Every(s.cfg.CycleInterval, s.runCycle); err != nil {
		return err
	}
	if _, err := s.runner.Every(s.cfg.SnapshotInterval, s.runSnapshot); err != nil {
		return err
	}
	s.runner.Start()
	s.logger.Info("scheduler started",
		zap.Duration("cycle_interval", s.cfg.CycleInterval),
		zap.Duration("snapshot_interval", s.cfg.SnapshotInterval),
		zap.Bool("live", s.orch.Live()),
	)
	return nil
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if _, err := s.orch.RunCycle(ctx); err != nil {
		switch {
		case errors.Is(err, ErrCycleInProgress):
			s.logger.Info("cycle already running, skipping tick")
		case errors.Is(err, ErrStopped):
		default:
			s.logger.Error("cycle failed", zap.Error(err))
		}
	}
}

func (s *Scheduler) runSnapshot(ctx context.Context) {
	if s.orch.Stopped() {
		return
	}
	_ = s.orch.Snapshot(ctx)
}

// Stop refuses new cycles, waits for the running ones and writes the daily
// report.
func (s *Scheduler) Stop(ctx context.Context) (string, error) {
	s.orch.MarkStopped()
	s.runner.Stop()
	return s.orch.DailyReport(ctx)
}
