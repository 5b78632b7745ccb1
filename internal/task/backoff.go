package task

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/phrazzld/inkpipe/internal/redact"
)

// Queue defaults
const (
	// DefaultMaxAttempts is used when neither the job nor the store config
	// sets a retry budget.
	DefaultMaxAttempts = 3

	// DefaultStaleAfter is how long a lease may be held before another
	// runner may reclaim the job.
	DefaultStaleAfter = 5 * time.Minute

	// MaxBackoff caps the retry delay.
	MaxBackoff = 60 * time.Minute

	// MaxErrorLength bounds last_error, in characters.
	MaxErrorLength = 2000
)

// Delay returns the retry delay after the given number of attempts:
// 2^attempts minutes, capped at MaxBackoff. Negative attempts count as zero.
func Delay(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	// 2^6 minutes already exceeds the cap.
	if attempts >= 6 {
		return MaxBackoff
	}
	d := time.Duration(1<<attempts) * time.Minute
	if d > MaxBackoff {
		return MaxBackoff
	}
	return d
}

// Result is what an executor reports on success.
type Result struct {
	// CostEstimate is the number of model tokens the job consumed, nil when
	// nothing was measured.
	CostEstimate *int
}

// Cost returns a Result carrying n tokens.
func Cost(n int) Result {
	return Result{CostEstimate: &n}
}

// Transition is the precomputed end state of one job execution.
// Store.Finalize applies it only while the runner still holds the lease.
type Transition struct {
	JobID    uuid.UUID
	RunnerID string
	Status   Status

	// RunAfter is set when the job is requeued for retry.
	RunAfter *time.Time

	// FinishedAt and Duration are set for terminal transitions.
	FinishedAt *time.Time
	Duration   time.Duration

	LastError      string
	TokensEstimate *int
}

// Retried reports whether the transition puts the job back in the queue.
func (t Transition) Retried() bool {
	return t.Status == StatusQueued
}

// Resolve computes the transition for a claimed job given the outcome of
// its execution. execErr nil means success.
func Resolve(job *Job, res Result, execErr error, now time.Time) Transition {
	now = now.UTC()
	tr := Transition{
		JobID:    job.ID,
		RunnerID: job.LockedBy,
	}

	var elapsed time.Duration
	if job.StartedAt != nil {
		elapsed = now.Sub(*job.StartedAt)
		if elapsed < 0 {
			elapsed = 0
		}
	}

	switch {
	case execErr == nil:
		tr.Status = StatusSucceeded
		tr.FinishedAt = &now
		tr.Duration = elapsed
		tr.TokensEstimate = res.CostEstimate
	case job.Attempts < job.MaxAttempts:
		next := now.Add(Delay(job.Attempts))
		tr.Status = StatusQueued
		tr.RunAfter = &next
		tr.LastError = TruncateError(redact.Error(execErr))
	default:
		tr.Status = StatusFailed
		tr.FinishedAt = &now
		tr.Duration = elapsed
		tr.LastError = TruncateError(redact.Error(execErr))
	}
	return tr
}

// TruncateError shortens msg to MaxErrorLength characters.
func TruncateError(msg string) string {
	if utf8.RuneCountInString(msg) <= MaxErrorLength {
		return msg
	}
	runes := []rune(msg)
	return string(runes[:MaxErrorLength])
}

// Apply writes the transition onto job, clearing the lease. In-memory
// stores use it; the SQL store expresses the same update in its statement.
func (t Transition) Apply(job *Job, now time.Time) {
	job.Status = t.Status
	job.LockedAt = nil
	job.LockedBy = ""
	job.UpdatedAt = now.UTC()
	if t.RunAfter != nil {
		job.RunAfter = *t.RunAfter
	}
	if t.FinishedAt != nil {
		finished := *t.FinishedAt
		job.FinishedAt = &finished
		job.Duration = t.Duration
	}
	if t.LastError != "" {
		job.LastError = t.LastError
	}
	if t.TokensEstimate != nil {
		n := *t.TokensEstimate
		job.TokensEstimate = &n
	}
}
