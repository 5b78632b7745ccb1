package task_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/inkpipe/internal/domain"
	"github.com/phrazzld/inkpipe/internal/task"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// claimed builds a running job as ClaimNext would return it.
func claimed(t *testing.T, typ task.Type, owner uuid.UUID, payload task.Payload) *task.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	started := testNow
	return &task.Job{
		ID:          uuid.New(),
		OwnerID:     owner,
		Type:        typ,
		Payload:     raw,
		DedupeKey:   payload.DedupeKey(),
		Status:      task.StatusRunning,
		Attempts:    1,
		MaxAttempts: 3,
		LockedAt:    &started,
		LockedBy:    "test-runner",
		StartedAt:   &started,
	}
}

func textNote(owner uuid.UUID, title, body string) *domain.Note {
	return &domain.Note{
		ID:        uuid.New(),
		OwnerID:   owner,
		Title:     title,
		Body:      body,
		CreatedAt: testNow,
	}
}

// chainerFor returns the Chainer a Registry hands to e.
func chainerFor(t *testing.T, e task.Executor) task.Chainer {
	t.Helper()
	reg, err := task.NewRegistry(e)
	require.NoError(t, err)
	return reg.Chainer(e.Type())
}
