package task_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/inkpipe/internal/domain"
	"github.com/phrazzld/inkpipe/internal/generation"
	"github.com/phrazzld/inkpipe/internal/store"
	"github.com/phrazzld/inkpipe/internal/task"
	"github.com/phrazzld/inkpipe/internal/task/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type packFixture struct {
	owner      uuid.UUID
	packs      map[string]*domain.Pack
	notes      *mocks.NoteRepository
	summarizer *mocks.Summarizer
	executor   *task.PackExecutor
}

func newPackFixture(t *testing.T) *packFixture {
	t.Helper()
	f := &packFixture{owner: uuid.New(), packs: map[string]*domain.Pack{}}
	f.notes = &mocks.NoteRepository{
		ListNotesInRangeFunc: func(ctx context.Context, owner uuid.UUID, r domain.DateRange) ([]*domain.Note, error) {
			return []*domain.Note{textNote(owner, "a", ""), textNote(owner, "b", "")}, nil
		},
	}
	repo := &mocks.PackRepository{
		FindPackFunc: func(ctx context.Context, owner uuid.UUID, r domain.DateRange) (*domain.Pack, error) {
			if p, ok := f.packs[r.String()]; ok {
				return p, nil
			}
			return nil, store.ErrPackNotFound
		},
		UpsertPackFunc: func(ctx context.Context, pack *domain.Pack) error {
			f.packs[pack.Range.String()] = pack
			return nil
		},
	}
	f.summarizer = &mocks.Summarizer{
		SummarizeFunc: func(ctx context.Context, notes []*domain.Note, r domain.DateRange) (*generation.Digest, error) {
			return &generation.Digest{Document: "# " + r.String(), TokensUsed: 300}, nil
		},
	}
	f.executor = task.NewPackExecutor(f.notes, repo, f.summarizer, discardLogger())
	return f
}

func (f *packFixture) run(t *testing.T, mode domain.PackMode) (task.Result, error) {
	t.Helper()
	payload := task.PackPayload{RangeStart: "2026-06-01", RangeEnd: "2026-06-07", Mode: mode}
	job := claimed(t, task.TypeGeneratePack, f.owner, payload)
	return f.executor.Execute(context.Background(), job, task.Chainer{})
}

func TestPackSkipIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newPackFixture(t)
	res, err := f.run(t, domain.PackModeSkip)
	require.NoError(t, err)
	assert.Equal(t, 300, *res.CostEstimate)
	require.Contains(t, f.packs, "2026-06-01..2026-06-07")
	assert.Equal(t, 2, f.packs["2026-06-01..2026-06-07"].NoteCount)

	_, err = f.run(t, domain.PackModeSkip)
	require.NoError(t, err)
	assert.Equal(t, 1, f.summarizer.Calls, "existing pack must not be regenerated")
}

func TestPackOverwriteRegenerates(t *testing.T) {
	t.Parallel()

	f := newPackFixture(t)
	_, err := f.run(t, domain.PackModeSkip)
	require.NoError(t, err)
	_, err = f.run(t, domain.PackModeOverwrite)
	require.NoError(t, err)
	assert.Equal(t, 2, f.summarizer.Calls)
	assert.Len(t, f.packs, 1)
}

func TestPackPassesRangeToNoteQuery(t *testing.T) {
	t.Parallel()

	f := newPackFixture(t)
	var got domain.DateRange
	f.notes.ListNotesInRangeFunc = func(ctx context.Context, owner uuid.UUID, r domain.DateRange) ([]*domain.Note, error) {
		got = r
		return nil, nil
	}

	_, err := f.run(t, domain.PackModeSkip)
	require.NoError(t, err)
	assert.Equal(t, "2026-06-08", got.Until().Format(domain.DateLayout))
	assert.Equal(t, 0, f.packs["2026-06-01..2026-06-07"].NoteCount)
	assert.Equal(t, 1, f.summarizer.Calls, "empty ranges still go through the summarizer")
}
