package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/inkpipe/internal/api/shared"
	"github.com/phrazzld/inkpipe/internal/task"
)

// MaxRunLimit caps the number of jobs a single trigger may process.
const MaxRunLimit = 1000

// Runner executes a batch of jobs.
type Runner interface {
	Run(ctx context.Context, batchLimit int, runnerID string) (task.Summary, error)
}

// RunRequest is the validated form of the trigger query.
type RunRequest struct {
	Limit int `validate:"gte=1,lte=1000"`
}

// JobsHandler serves the run trigger.
type JobsHandler struct {
	runner       Runner
	defaultLimit int
	runnerID     string
	afterRun     func(context.Context) error
	logger       *slog.Logger
}

// JobsHandlerOption configures a JobsHandler.
type JobsHandlerOption func(*JobsHandler)

// WithRunnerID sets the runner identity prefix for every triggered run.
func WithRunnerID(id string) JobsHandlerOption {
	return func(h *JobsHandler) { h.runnerID = id }
}

// WithAfterRun registers fn to be called after each successful run. Its
// error is logged and does not change the response.
func WithAfterRun(fn func(context.Context) error) JobsHandlerOption {
	return func(h *JobsHandler) { h.afterRun = fn }
}

// NewJobsHandler creates a JobsHandler. defaultLimit applies when the
// request carries no limit.
func NewJobsHandler(runner Runner, defaultLimit int, logger *slog.Logger, opts ...JobsHandlerOption) *JobsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &JobsHandler{
		runner:       runner,
		defaultLimit: defaultLimit,
		logger:       logger.With("component", "jobs_handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run handles POST /internal/jobs/run?limit=N. Limits above MaxRunLimit are
// clamped; non-positive or non-numeric limits are rejected.
func (h *JobsHandler) Run(w http.ResponseWriter, r *http.Request) {
	limit, err := shared.QueryInt(r, "limit", h.defaultLimit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "limit must be an integer", err)
		return
	}
	if limit > MaxRunLimit {
		limit = MaxRunLimit
	}
	req := RunRequest{Limit: limit}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "limit must be at least 1", err)
		return
	}

	sum, err := h.runner.Run(r.Context(), req.Limit, h.runnerID)
	if err != nil {
		status := MapErrorToStatusCode(err)
		shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err)
		return
	}

	if h.afterRun != nil {
		if err := h.afterRun(r.Context()); err != nil {
			h.logger.Warn("post-run hook failed", "error", err)
		}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, sum)
}
