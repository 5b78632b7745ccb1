package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/inkpipe/internal/platform/logger"
)

// DefaultJobTimeout bounds a single execution. It must stay below the stale
// threshold so that a live runner never has its lease reclaimed.
const DefaultJobTimeout = 2 * time.Minute

// RunnerConfig holds configuration for the runner.
type RunnerConfig struct {
	// JobTimeout bounds each job's execution. Zero means DefaultJobTimeout.
	JobTimeout time.Duration
}

// Recorder observes job lifecycle events. The metrics package provides the
// Prometheus implementation.
type Recorder interface {
	JobClaimed(t Type)
	JobFinalized(t Type, tr Transition)
}

type nopRecorder struct{}

func (nopRecorder) JobClaimed(Type)               {}
func (nopRecorder) JobFinalized(Type, Transition) {}

// Summary reports what one Run call did.
type Summary struct {
	// Processed counts every claimed job.
	Processed int `json:"processed"`

	// Failed counts claimed jobs whose execution failed, whether they were
	// requeued or marked failed, plus jobs whose finalize was rejected.
	Failed int `json:"failed"`
}

// Runner claims and executes jobs. It holds no state between Run calls and
// any number of Run calls may execute concurrently, in one process or many.
type Runner struct {
	store    Store
	registry *Registry
	config   RunnerConfig
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithRecorder installs a lifecycle recorder.
func WithRecorder(rec Recorder) RunnerOption {
	return func(r *Runner) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// WithClock overrides the runner's time source.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(
	store Store,
	registry *Registry,
	config RunnerConfig,
	logger *slog.Logger,
	opts ...RunnerOption,
) *Runner {
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultJobTimeout
	}
	r := &Runner{
		store:    store,
		registry: registry,
		config:   config,
		recorder: nopRecorder{},
		logger:   logger.With("component", "job_runner"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRunnerID returns "<hostname>-<uuid>".
func NewRunnerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "runner"
	}
	return host + "-" + uuid.NewString()
}

// Run processes up to batchLimit jobs. It stops early when no job is
// eligible. A claim error aborts the run and is returned with the counts so
// far; execution and finalize errors are counted, never returned.
//
// A non-empty runnerID is a prefix: each run leases as "<runnerID>-<uuid>" so
// overlapping runs sharing a configured id never finalize each other's jobs.
// Cancelling ctx stops the run before the next claim; the job in flight
// still runs to completion or to its timeout.
func (r *Runner) Run(ctx context.Context, batchLimit int, runnerID string) (Summary, error) {
	if runnerID == "" {
		runnerID = NewRunnerID()
	} else {
		runnerID = runnerID + "-" + uuid.NewString()
	}
	log := r.logger.With("runner_id", runnerID)

	var sum Summary
	for sum.Processed < batchLimit {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		job, err := r.store.ClaimNext(ctx, runnerID, r.now())
		if err != nil {
			log.Error("failed to claim job", "error", err)
			return sum, fmt.Errorf("failed to claim job: %w", err)
		}
		if job == nil {
			break
		}

		sum.Processed++
		r.recorder.JobClaimed(job.Type)
		if !r.process(ctx, log, job) {
			sum.Failed++
		}
	}

	if sum.Processed > 0 {
		log.Info("run finished", "processed", sum.Processed, "failed", sum.Failed)
	}
	return sum, nil
}

// process executes and finalizes one claimed job and reports whether it
// succeeded.
func (r *Runner) process(ctx context.Context, log *slog.Logger, job *Job) bool {
	jobLog := log.With(
		"job_id", job.ID,
		"job_type", job.Type,
		"owner_id", job.OwnerID,
		"attempt", job.Attempts,
	)
	jobLog.Debug("processing job")

	res, execErr := r.execute(logger.WithLogger(ctx, jobLog), job)
	tr := Resolve(job, res, execErr, r.now())

	switch tr.Status {
	case StatusSucceeded:
		jobLog.Info("job succeeded", "duration", tr.Duration)
	case StatusQueued:
		jobLog.Warn("job failed, will retry",
			"error", execErr,
			"run_after", tr.RunAfter)
	case StatusFailed:
		jobLog.Error("job failed permanently",
			"error", execErr,
			"max_attempts", job.MaxAttempts)
	}

	// Finalize even when the run's context is cancelled so that a finished
	// job does not wait for lease reclamation.
	if err := r.store.Finalize(context.WithoutCancel(ctx), tr); err != nil {
		if errors.Is(err, ErrLeaseLost) {
			jobLog.Warn("lease lost before finalize, result discarded")
		} else {
			jobLog.Error("failed to finalize job", "error", err)
		}
		return false
	}

	r.recorder.JobFinalized(job.Type, tr)
	return execErr == nil
}

// execute dispatches the job under the job timeout, converting panics into
// errors. Cancelling the run does not interrupt a claimed job; only the job
// timeout bounds it.
func (r *Runner) execute(ctx context.Context, job *Job) (res Result, err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.JobTimeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			res = Result{}
			err = fmt.Errorf("executor panicked: %v", p)
		}
	}()

	return r.registry.Dispatch(ctx, job)
}
