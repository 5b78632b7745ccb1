package task

import (
	"context"
	"log/slog"
	"time"
)

// Poller calls Runner.Run on a fixed interval for deployments without an
// external scheduler. Each tick is an independent, stateless run.
type Poller struct {
	runner     *Runner
	interval   time.Duration
	batchLimit int
	runnerID   string
	afterRun   func(ctx context.Context, sum Summary)
	logger     *slog.Logger
}

// NewPoller creates a Poller. afterRun, if set, is called after every tick.
func NewPoller(
	runner *Runner,
	interval time.Duration,
	batchLimit int,
	runnerID string,
	afterRun func(ctx context.Context, sum Summary),
	logger *slog.Logger,
) *Poller {
	return &Poller{
		runner:     runner,
		interval:   interval,
		batchLimit: batchLimit,
		runnerID:   runnerID,
		afterRun:   afterRun,
		logger:     logger.With("component", "job_poller"),
	}
}

// Start blocks, running a batch every interval until ctx is cancelled.
func (p *Poller) Start(ctx context.Context) error {
	p.logger.Info("starting job poller", "interval", p.interval, "batch_limit", p.batchLimit)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("stopping job poller")
			return nil
		case <-ticker.C:
			sum, err := p.runner.Run(ctx, p.batchLimit, p.runnerID)
			if err != nil && ctx.Err() == nil {
				p.logger.Error("job run failed", "error", err)
			}
			if p.afterRun != nil {
				p.afterRun(ctx, sum)
			}
		}
	}
}
