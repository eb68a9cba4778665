package jobs

import (
	"context"
	"log/slog"
	"time"
)

// Task is one unit of periodic work.
type Task interface {
	Run(ctx context.Context) error
}

// Runner runs a task immediately and then on every tick until ctx ends.
type Runner struct {
	name     string
	interval time.Duration
	task     Task
	log      *slog.Logger
}

func NewRunner(name string, interval time.Duration, task Task, log *slog.Logger) *Runner {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Runner{name: name, interval: interval, task: task, log: log}
}

func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("job started", "job", r.name, "interval", r.interval.String())
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runOnce(ctx)
	for {
		select {
		case <-ticker.C:
			r.runOnce(ctx)
		case <-ctx.Done():
			r.log.Info("job stopped", "job", r.name)
			return ctx.Err()
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	started := time.Now()
	if err := r.task.Run(ctx); err != nil && ctx.Err() == nil {
		r.log.Error("job failed", "job", r.name, "err", err)
		return
	}
	r.log.Debug("job finished", "job", r.name, "took", time.Since(started).String())
}
