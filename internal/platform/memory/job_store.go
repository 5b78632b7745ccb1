package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/inkpipe/internal/store"
	"github.com/phrazzld/inkpipe/internal/task"
)

// JobStore is a mutex-guarded task.Store.
type JobStore struct {
	mu          sync.Mutex
	jobs        map[uuid.UUID]*task.Job
	staleAfter  time.Duration
	maxAttempts int
	now         func() time.Time
}

// NewJobStore creates an empty store. Zero arguments select the task
// package defaults.
func NewJobStore(staleAfter time.Duration, maxAttempts int) *JobStore {
	if staleAfter <= 0 {
		staleAfter = task.DefaultStaleAfter
	}
	if maxAttempts <= 0 {
		maxAttempts = task.DefaultMaxAttempts
	}
	return &JobStore{
		jobs:        make(map[uuid.UUID]*task.Job),
		staleAfter:  staleAfter,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// SetClock overrides the time used for enqueue and finalize timestamps.
func (s *JobStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Enqueue implements task.Store.
func (s *JobStore) Enqueue(ctx context.Context, params task.EnqueueParams) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := task.NewJob(params, s.now(), s.maxAttempts)
	if err != nil {
		return uuid.Nil, err
	}
	s.jobs[job.ID] = job
	return job.ID, nil
}

// EnqueueUnique implements task.Store.
func (s *JobStore) EnqueueUnique(ctx context.Context, params task.EnqueueParams) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := task.NewJob(params, s.now(), s.maxAttempts)
	if err != nil {
		return uuid.Nil, false, err
	}
	for _, existing := range s.jobs {
		if existing.Status.Pending() &&
			existing.OwnerID == job.OwnerID &&
			existing.Type == job.Type &&
			existing.DedupeKey == job.DedupeKey {
			return existing.ID, false, nil
		}
	}
	s.jobs[job.ID] = job
	return job.ID, true, nil
}

// ClaimNext implements task.Store.
func (s *JobStore) ClaimNext(ctx context.Context, runnerID string, now time.Time) (*task.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var eligible []*task.Job
	for _, job := range s.jobs {
		if job.Claimable(now, s.staleAfter) {
			eligible = append(eligible, job)
		}
	}
	if len(eligible) == 0 {
		return nil, nil
	}
	sort.Slice(eligible, func(i, j int) bool {
		if !eligible[i].RunAfter.Equal(eligible[j].RunAfter) {
			return eligible[i].RunAfter.Before(eligible[j].RunAfter)
		}
		return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
	})

	job := eligible[0]
	leased := now.UTC()
	job.Status = task.StatusRunning
	job.Attempts++
	job.LockedAt = &leased
	job.LockedBy = runnerID
	job.StartedAt = &leased
	job.UpdatedAt = leased

	return cloneJob(job), nil
}

// Finalize implements task.Store.
func (s *JobStore) Finalize(ctx context.Context, tr task.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[tr.JobID]
	if !ok {
		return store.ErrJobNotFound
	}
	if job.Status != task.StatusRunning || job.LockedBy != tr.RunnerID {
		return task.ErrLeaseLost
	}
	tr.Apply(job, s.now())
	return nil
}

// Get implements task.Store.
func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (*task.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	return cloneJob(job), nil
}

// CountByStatus implements task.Store.
func (s *JobStore) CountByStatus(ctx context.Context) (map[task.Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[task.Status]int, len(task.Statuses))
	for _, st := range task.Statuses {
		counts[st] = 0
	}
	for _, job := range s.jobs {
		counts[job.Status]++
	}
	return counts, nil
}

// Jobs returns copies of every stored job.
func (s *JobStore) Jobs() []*task.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*task.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, cloneJob(job))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func cloneJob(j *task.Job) *task.Job {
	c := *j
	c.Payload = append([]byte(nil), j.Payload...)
	if j.LockedAt != nil {
		t := *j.LockedAt
		c.LockedAt = &t
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	if j.TokensEstimate != nil {
		n := *j.TokensEstimate
		c.TokensEstimate = &n
	}
	return &c
}

var _ task.Store = (*JobStore)(nil)
