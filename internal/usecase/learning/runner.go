package learning

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is how often the runner executes a learning pass.
const DefaultInterval = 15 * time.Minute

// Runner executes learning passes on a ticker until the context ends.
type Runner struct {
	svc      *Service
	interval time.Duration
	log      *zap.Logger
}

// NewRunner creates a runner around the service.
func NewRunner(svc *Service, interval time.Duration, log *zap.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{svc: svc, interval: interval, log: log}
}

// Run blocks, executing one pass per tick. Pass failures are logged;
// the runner only stops when ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("learning runner started", zap.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			r.log.Info("learning runner stopped")
			return
		case <-ticker.C:
			if err := r.svc.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.log.Error("learning pass failed", zap.Error(err))
			}
		}
	}
}
