package postgres_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/inkpipe/internal/platform/postgres"
	"github.com/phrazzld/inkpipe/internal/store"
	"github.com/phrazzld/inkpipe/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jobRowColumns = []string{
	"id", "owner_id", "type", "payload", "dedupe_key", "status", "attempts", "max_attempts",
	"run_after", "locked_at", "locked_by", "started_at", "finished_at", "duration_ms",
	"last_error", "tokens_estimate", "created_at", "updated_at",
}

// passthroughConverter lets sqlmock accept argument types database/sql's
// default converter rejects, such as []float32.
type passthroughConverter struct{}

func (passthroughConverter) ConvertValue(v any) (driver.Value, error) {
	if valuer, ok := v.(driver.Valuer); ok {
		return valuer.Value()
	}
	if dv, err := driver.DefaultParameterConverter.ConvertValue(v); err == nil {
		return dv, nil
	}
	return v, nil
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(passthroughConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJobStoreClaimNextEmpty(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	s := postgres.NewJobStore(db, postgres.JobStoreConfig{}, quietLogger())

	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`UPDATE jobs\s+SET status = 'running'`).
		WithArgs(now, "r1", now.Add(-task.DefaultStaleAfter)).
		WillReturnRows(sqlmock.NewRows(jobRowColumns))

	job, err := s.ClaimNext(context.Background(), "r1", now)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestJobStoreClaimNextWrapsQueryErrors(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	s := postgres.NewJobStore(db, postgres.JobStoreConfig{}, quietLogger())

	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`UPDATE jobs\s+SET status = 'running'`).
		WithArgs(now, "r1", now.Add(-task.DefaultStaleAfter)).
		WillReturnError(sql.ErrConnDone)

	_, err := s.ClaimNext(context.Background(), "r1", now)
	require.Error(t, err)

	var storeErr *store.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "job", storeErr.Entity)
	assert.Equal(t, "claim", storeErr.Operation)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestJobStoreClaimNextReturnsLeasedJob(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	s := postgres.NewJobStore(db, postgres.JobStoreConfig{StaleAfter: 10 * time.Minute}, quietLogger())

	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	id, owner, note := uuid.New(), uuid.New(), uuid.New()
	payload := `{"note_id":"` + note.String() + `"}`

	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WithArgs(now, "r1", now.Add(-10*time.Minute)).
		WillReturnRows(sqlmock.NewRows(jobRowColumns).AddRow(
			id.String(), owner.String(), "embed_note", []byte(payload), "note:"+note.String(), "running", 2, 3,
			now.Add(-time.Minute), now, "r1", now, nil, nil,
			"previous failure", nil, now.Add(-time.Hour), now,
		))

	job, err := s.ClaimNext(context.Background(), "r1", now)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, owner, job.OwnerID)
	assert.Equal(t, task.TypeEmbedNote, job.Type)
	assert.Equal(t, task.StatusRunning, job.Status)
	assert.Equal(t, 2, job.Attempts)
	assert.Equal(t, "r1", job.LockedBy)
	require.NotNil(t, job.LockedAt)
	assert.Nil(t, job.FinishedAt)
	assert.Nil(t, job.TokensEstimate)
	assert.Equal(t, "previous failure", job.LastError)

	p, err := job.DecodePayload()
	require.NoError(t, err)
	assert.Equal(t, task.NotePayload{NoteID: note}, p)
}

func TestJobStoreFinalize(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	tr := task.Transition{
		JobID:      uuid.New(),
		RunnerID:   "r1",
		Status:     task.StatusSucceeded,
		FinishedAt: &now,
		Duration:   1500 * time.Millisecond,
	}

	t.Run("applied", func(t *testing.T) {
		db, mock := newMock(t)
		s := postgres.NewJobStore(db, postgres.JobStoreConfig{}, quietLogger())
		mock.ExpectExec(`UPDATE jobs`).
			WithArgs(tr.JobID, "r1", "succeeded", sqlmock.AnyArg(), sqlmock.AnyArg(),
				int64(1500), nil, nil, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, s.Finalize(context.Background(), tr))
	})

	t.Run("lease lost", func(t *testing.T) {
		db, mock := newMock(t)
		s := postgres.NewJobStore(db, postgres.JobStoreConfig{}, quietLogger())
		mock.ExpectExec(`UPDATE jobs`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs(tr.JobID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		assert.ErrorIs(t, s.Finalize(context.Background(), tr), task.ErrLeaseLost)
	})

	t.Run("missing job", func(t *testing.T) {
		db, mock := newMock(t)
		s := postgres.NewJobStore(db, postgres.JobStoreConfig{}, quietLogger())
		mock.ExpectExec(`UPDATE jobs`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs(tr.JobID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		assert.ErrorIs(t, s.Finalize(context.Background(), tr), store.ErrJobNotFound)
	})
}

func TestJobStoreEnqueueRejectsInvalidPayloadWithoutQuerying(t *testing.T) {
	t.Parallel()
	db, _ := newMock(t)
	s := postgres.NewJobStore(db, postgres.JobStoreConfig{}, quietLogger())

	_, err := s.Enqueue(context.Background(), task.NoteJob(task.TypeEmbedNote, uuid.New(), uuid.Nil))
	assert.ErrorIs(t, err, task.ErrInvalidPayload)
}

func TestJobStoreEnqueueUniqueReturnsActiveJob(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	s := postgres.NewJobStore(db, postgres.JobStoreConfig{}, quietLogger())

	owner, note, existing := uuid.New(), uuid.New(), uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT id FROM jobs[\s\S]*AND status = 'queued'`).
		WithArgs(owner, "classify_note", "note:"+note.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(existing.String()))
	mock.ExpectCommit()

	id, created, err := s.EnqueueUnique(context.Background(), task.NoteJob(task.TypeClassifyNote, owner, note))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing, id)
}

func TestJobStoreEnqueueUniqueInsertsWhenNoneActive(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	s := postgres.NewJobStore(db, postgres.JobStoreConfig{MaxAttempts: 5}, quietLogger())

	owner, note := uuid.New(), uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT id FROM jobs`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`INSERT INTO jobs`).
		WithArgs(sqlmock.AnyArg(), owner, "embed_note", sqlmock.AnyArg(), "note:"+note.String(),
			"queued", 5, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, created, err := s.EnqueueUnique(context.Background(), task.NoteJob(task.TypeEmbedNote, owner, note))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, uuid.Nil, id)
}

func TestJobStoreCountByStatus(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	s := postgres.NewJobStore(db, postgres.JobStoreConfig{}, quietLogger())

	mock.ExpectQuery(`SELECT status, count\(\*\) FROM jobs`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("queued", 4).
			AddRow("failed", 1))

	counts, err := s.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[task.Status]int{
		task.StatusQueued:    4,
		task.StatusRunning:   0,
		task.StatusSucceeded: 0,
		task.StatusFailed:    1,
	}, counts)
}
