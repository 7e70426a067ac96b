package cronrunner

import (
	"context"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

func New(logger *zap.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

// Add registers job under spec. A run still in progress when the next tick fires
// is not overlapped; the tick is skipped and logged.
func (r *Runner) Add(name, spec string, job func(context.Context)) (cron.EntryID, error) {
	var running atomic.Bool
	return r.cron.AddFunc(spec, func() {
		if !running.CompareAndSwap(false, true) {
			if r.logger != nil {
				r.logger.Warn("cron job still running, skipping tick", zap.String("job", name))
			}
			return
		}
		defer running.Store(false)
		defer func() {
			if rec := recover(); rec != nil && r.logger != nil {
				r.logger.Error("cron job panicked", zap.String("job", name), zap.Any("panic", rec))
			}
		}()
		job(r.baseCtx)
	})
}

func (r *Runner) Entries() int {
	return len(r.cron.Entries())
}

func (r *Runner) Start() {
	if r.logger != nil {
		r.logger.Info("cron started", zap.Int("entries", r.Entries()))
	}
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	if r.logger != nil {
		r.logger.Info("cron stopped")
	}
}
