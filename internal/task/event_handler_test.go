package task_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/inkpipe/internal/domain"
	"github.com/phrazzld/inkpipe/internal/events"
	"github.com/phrazzld/inkpipe/internal/store"
	"github.com/phrazzld/inkpipe/internal/task"
	"github.com/phrazzld/inkpipe/internal/task/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteSavedHandler(t *testing.T) {
	t.Parallel()

	note := textNote(uuid.New(), "Standup", "notes from monday")
	notes := &mocks.NoteRepository{
		GetNoteFunc: func(ctx context.Context, owner, id uuid.UUID) (*domain.Note, error) {
			if id == note.ID && owner == note.OwnerID {
				return note, nil
			}
			return nil, store.ErrNoteNotFound
		},
	}

	t.Run("note saved enqueues enrichment", func(t *testing.T) {
		s := newMemoryStore(t)
		handler := task.NewNoteSavedHandler(notes, task.NewProducer(s, discardLogger()), discardLogger())

		event, err := events.NewNoteSavedEvent(note.OwnerID, note.ID)
		require.NoError(t, err)
		require.NoError(t, handler.HandleEvent(context.Background(), event))
		assert.Equal(t, map[task.Type]int{task.TypeClassifyNote: 1, task.TypeEmbedNote: 1}, jobTypes(s))
	})

	t.Run("missing note is ignored", func(t *testing.T) {
		s := newMemoryStore(t)
		handler := task.NewNoteSavedHandler(notes, task.NewProducer(s, discardLogger()), discardLogger())

		event, err := events.NewNoteSavedEvent(note.OwnerID, uuid.New())
		require.NoError(t, err)
		require.NoError(t, handler.HandleEvent(context.Background(), event))
		assert.Empty(t, s.Jobs())
	})

	t.Run("pack requested", func(t *testing.T) {
		s := newMemoryStore(t)
		handler := task.NewNoteSavedHandler(notes, task.NewProducer(s, discardLogger()), discardLogger())

		event, err := events.NewEvent(events.TypePackRequested, note.OwnerID, events.PackRequestedEvent{
			RangeStart: "2026-06-01",
			RangeEnd:   "2026-06-07",
		})
		require.NoError(t, err)
		require.NoError(t, handler.HandleEvent(context.Background(), event))
		assert.Equal(t, map[task.Type]int{task.TypeGeneratePack: 1}, jobTypes(s))
	})

	t.Run("bad pack range is rejected", func(t *testing.T) {
		s := newMemoryStore(t)
		handler := task.NewNoteSavedHandler(notes, task.NewProducer(s, discardLogger()), discardLogger())

		event, err := events.NewEvent(events.TypePackRequested, note.OwnerID, events.PackRequestedEvent{
			RangeStart: "2026-06-07",
			RangeEnd:   "2026-06-01",
		})
		require.NoError(t, err)
		assert.ErrorIs(t, handler.HandleEvent(context.Background(), event), task.ErrInvalidPayload)
	})

	t.Run("unknown events are ignored", func(t *testing.T) {
		s := newMemoryStore(t)
		handler := task.NewNoteSavedHandler(notes, task.NewProducer(s, discardLogger()), discardLogger())

		event, err := events.NewEvent("note.deleted", note.OwnerID, map[string]string{})
		require.NoError(t, err)
		require.NoError(t, handler.HandleEvent(context.Background(), event))
		assert.Empty(t, s.Jobs())
	})
}
