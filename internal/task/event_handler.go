package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/inkpipe/internal/domain"
	"github.com/phrazzld/inkpipe/internal/events"
	"github.com/phrazzld/inkpipe/internal/store"
)

// NoteSavedHandler turns application events into jobs.
type NoteSavedHandler struct {
	notes    NoteRepository
	producer *Producer
	logger   *slog.Logger
}

// NewNoteSavedHandler creates the event handler.
func NewNoteSavedHandler(notes NoteRepository, producer *Producer, logger *slog.Logger) *NoteSavedHandler {
	return &NoteSavedHandler{
		notes:    notes,
		producer: producer,
		logger:   logger.With("component", "note_saved_handler"),
	}
}

// HandleEvent implements events.EventHandler.
func (h *NoteSavedHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	switch event.Type {
	case events.TypeNoteSaved:
		return h.noteSaved(ctx, event)
	case events.TypePackRequested:
		return h.packRequested(ctx, event)
	default:
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}
}

func (h *NoteSavedHandler) noteSaved(ctx context.Context, event *events.Event) error {
	var payload events.NoteSavedEvent
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	note, err := h.notes.GetNote(ctx, event.OwnerID, payload.NoteID)
	if errors.Is(err, store.ErrNoteNotFound) {
		h.logger.Warn("saved note not found", "note_id", payload.NoteID, "event_id", event.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load note: %w", err)
	}

	ids, err := h.producer.NoteSaved(ctx, note)
	if err != nil {
		return err
	}
	h.logger.Info("note enrichment enqueued",
		"note_id", note.ID,
		"event_id", event.ID,
		"job_count", len(ids))
	return nil
}

func (h *NoteSavedHandler) packRequested(ctx context.Context, event *events.Event) error {
	var payload events.PackRequestedEvent
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	r, err := domain.NewDateRange(payload.RangeStart, payload.RangeEnd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	mode := domain.PackMode(payload.Mode)
	if mode == "" {
		mode = domain.PackModeSkip
	}

	id, _, err := h.producer.RequestPack(ctx, event.OwnerID, r, mode)
	if err != nil {
		return err
	}
	h.logger.Info("pack generation enqueued", "job_id", id, "range", r.String(), "event_id", event.ID)
	return nil
}

var _ events.EventHandler = (*NoteSavedHandler)(nil)
