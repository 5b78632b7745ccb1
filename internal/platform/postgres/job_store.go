package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/inkpipe/internal/platform/logger"
	"github.com/phrazzld/inkpipe/internal/store"
	"github.com/phrazzld/inkpipe/internal/task"
)

const jobColumns = `
	id, owner_id, type, payload, dedupe_key, status, attempts, max_attempts,
	run_after, locked_at, locked_by, started_at, finished_at, duration_ms,
	last_error, tokens_estimate, created_at, updated_at`

// JobStoreConfig holds the queue settings the store enforces.
type JobStoreConfig struct {
	// StaleAfter is the lease age after which a running job may be reclaimed.
	StaleAfter time.Duration

	// MaxAttempts is the retry budget for jobs enqueued without one.
	MaxAttempts int
}

// JobStore implements task.Store on the jobs table.
type JobStore struct {
	db     store.DBTX
	config JobStoreConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewJobStore creates a JobStore. Zero config values select the task
// package defaults.
func NewJobStore(db store.DBTX, config JobStoreConfig, logger *slog.Logger) *JobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = task.DefaultStaleAfter
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = task.DefaultMaxAttempts
	}
	return &JobStore{
		db:     db,
		config: config,
		logger: logger.With(slog.String("component", "job_store")),
		now:    time.Now,
	}
}

// WithTx returns a copy of the store that runs on tx.
func (s *JobStore) WithTx(tx *sql.Tx) *JobStore {
	c := *s
	c.db = tx
	return &c
}

var _ task.Store = (*JobStore)(nil)

func (s *JobStore) insert(ctx context.Context, db store.DBTX, job *task.Job) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO jobs (id, owner_id, type, payload, dedupe_key, status, attempts,
			max_attempts, run_after, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9, $10)`,
		job.ID,
		job.OwnerID,
		string(job.Type),
		[]byte(job.Payload),
		job.DedupeKey,
		string(job.Status),
		job.MaxAttempts,
		job.RunAfter,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return MapError(err)
}

// Enqueue implements task.Store.
func (s *JobStore) Enqueue(ctx context.Context, params task.EnqueueParams) (uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	job, err := task.NewJob(params, s.now(), s.config.MaxAttempts)
	if err != nil {
		log.Warn("rejected job", slog.String("job_type", string(params.Type)), slog.String("error", err.Error()))
		return uuid.Nil, err
	}
	if err := s.insert(ctx, s.db, job); err != nil {
		log.Error("failed to enqueue job",
			slog.String("job_type", string(job.Type)),
			slog.String("error", err.Error()))
		return uuid.Nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	log.Debug("job enqueued", slog.String("job_id", job.ID.String()), slog.String("job_type", string(job.Type)))
	return job.ID, nil
}

// EnqueueUnique implements task.Store. Concurrent callers with the same
// (owner, type, dedupe key) serialize on a transaction-scoped advisory lock.
func (s *JobStore) EnqueueUnique(ctx context.Context, params task.EnqueueParams) (uuid.UUID, bool, error) {
	job, err := task.NewJob(params, s.now(), s.config.MaxAttempts)
	if err != nil {
		return uuid.Nil, false, err
	}

	id := job.ID
	created := false
	err = inTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		lockKey := job.OwnerID.String() + "|" + string(job.Type) + "|" + job.DedupeKey
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
			return MapError(err)
		}

		var existing uuid.UUID
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM jobs
			WHERE owner_id = $1 AND type = $2 AND dedupe_key = $3
			  AND status = 'queued'
			ORDER BY created_at
			LIMIT 1`,
			job.OwnerID, string(job.Type), job.DedupeKey,
		).Scan(&existing)
		switch {
		case err == nil:
			id = existing
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return MapError(err)
		}

		created = true
		return s.insert(ctx, tx, job)
	})
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to enqueue job: %w", err)
	}
	return id, created, nil
}

// ClaimNext implements task.Store.
func (s *JobStore) ClaimNext(ctx context.Context, runnerID string, now time.Time) (*task.Job, error) {
	now = now.UTC()
	staleBefore := now.Add(-s.config.StaleAfter)

	row := s.db.QueryRowContext(ctx, `
		UPDATE jobs
		SET status = 'running',
		    attempts = attempts + 1,
		    locked_at = $1,
		    locked_by = $2,
		    started_at = $1,
		    updated_at = $1
		WHERE id = (
			SELECT id FROM jobs
			WHERE (status = 'queued' AND run_after <= $1)
			   OR (status = 'running' AND locked_at < $3)
			ORDER BY run_after, created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING`+jobColumns,
		now, runnerID, staleBefore,
	)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, store.NewStoreError("job", "claim", "claim query failed", MapError(err))
	}
	return job, nil
}

// Finalize implements task.Store.
func (s *JobStore) Finalize(ctx context.Context, tr task.Transition) error {
	var durationMS sql.NullInt64
	if tr.FinishedAt != nil {
		durationMS = sql.NullInt64{Int64: tr.Duration.Milliseconds(), Valid: true}
	}
	var lastError sql.NullString
	if tr.LastError != "" {
		lastError = sql.NullString{String: tr.LastError, Valid: true}
	}
	var tokens sql.NullInt64
	if tr.TokensEstimate != nil {
		tokens = sql.NullInt64{Int64: int64(*tr.TokensEstimate), Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $3,
		    locked_at = NULL,
		    locked_by = NULL,
		    run_after = COALESCE($4, run_after),
		    finished_at = COALESCE($5, finished_at),
		    duration_ms = COALESCE($6, duration_ms),
		    last_error = COALESCE($7, last_error),
		    tokens_estimate = COALESCE($8, tokens_estimate),
		    updated_at = $9
		WHERE id = $1 AND status = 'running' AND locked_by = $2`,
		tr.JobID,
		tr.RunnerID,
		string(tr.Status),
		nullTime(tr.RunAfter),
		nullTime(tr.FinishedAt),
		durationMS,
		lastError,
		tokens,
		s.now().UTC(),
	)
	if err != nil {
		return store.NewStoreError("job", "finalize", "update failed", MapError(err))
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, tr.JobID).
		Scan(&exists); err != nil {
		return fmt.Errorf("failed to check job: %w", MapError(err))
	}
	if !exists {
		return store.ErrJobNotFound
	}
	return task.ErrLeaseLost
}

// Get implements task.Store.
func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (*task.Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, `SELECT`+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", MapError(err))
	}
	return job, nil
}

// CountByStatus implements task.Store.
func (s *JobStore) CountByStatus(ctx context.Context) (map[task.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, count(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[task.Status]int, len(task.Statuses))
	for _, st := range task.Statuses {
		counts[st] = 0
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan job count: %w", err)
		}
		counts[task.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", MapError(err))
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*task.Job, error) {
	var (
		job        task.Job
		typ        string
		status     string
		payload    []byte
		lockedAt   sql.NullTime
		lockedBy   sql.NullString
		startedAt  sql.NullTime
		finishedAt sql.NullTime
		durationMS sql.NullInt64
		lastError  sql.NullString
		tokens     sql.NullInt64
	)
	err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&typ,
		&payload,
		&job.DedupeKey,
		&status,
		&job.Attempts,
		&job.MaxAttempts,
		&job.RunAfter,
		&lockedAt,
		&lockedBy,
		&startedAt,
		&finishedAt,
		&durationMS,
		&lastError,
		&tokens,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Type = task.Type(typ)
	job.Status = task.Status(status)
	job.Payload = payload
	job.LockedAt = timePtr(lockedAt)
	job.LockedBy = lockedBy.String
	job.StartedAt = timePtr(startedAt)
	job.FinishedAt = timePtr(finishedAt)
	job.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	job.LastError = lastError.String
	if tokens.Valid {
		n := int(tokens.Int64)
		job.TokensEstimate = &n
	}
	return &job, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
