package cronrunner

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner wraps robfig/cron. Every job runs with the runner's base context and
// overlapping runs of the same job are skipped rather than queued.
type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

func New(logger *zap.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := zapCronLogger{l: logger}
	return &Runner{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		job(r.baseCtx)
	})
}

// Every registers job on a fixed interval.
func (r *Runner) Every(interval time.Duration, job func(context.Context)) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("cron interval must be > 0, got %s", interval)
	}
	return r.Add("@every "+interval.String(), job)
}

func (r *Runner) Entries() int {
	return len(r.cron.Entries())
}

func (r *Runner) Start() {
	r.logger.Info("cron started")
	r.cron.Start()
}

// Stop cancels all timers and waits for running jobs to return.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("cron stopped")
}

type zapCronLogger struct {
	l *zap.Logger
}

func (z zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	z.l.Debug("cron: "+msg, zap.Any("kv", keysAndValues))
}

func (z zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	z.l.Warn("cron: "+msg, zap.Error(err), zap.Any("kv", keysAndValues))
}
