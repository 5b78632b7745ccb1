package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/inkpipe/internal/domain"
	"github.com/phrazzld/inkpipe/internal/platform/logger"
	"github.com/phrazzld/inkpipe/internal/store"
)

// notePayload decodes a note-targeted job's payload.
func notePayload(job *Job) (NotePayload, error) {
	p, err := job.DecodePayload()
	if err != nil {
		return NotePayload{}, err
	}
	np, ok := p.(NotePayload)
	if !ok {
		return NotePayload{}, fmt.Errorf("%w: %s expects a note payload", ErrInvalidPayload, job.Type)
	}
	return np, nil
}

// loadNote fetches the note a job targets. A note deleted after the job was
// enqueued yields (nil, nil): there is nothing left to enrich.
func loadNote(ctx context.Context, notes NoteRepository, job *Job) (*domain.Note, error) {
	p, err := notePayload(job)
	if err != nil {
		return nil, err
	}
	note, err := notes.GetNote(ctx, job.OwnerID, p.NoteID)
	if errors.Is(err, store.ErrNoteNotFound) {
		logger.FromContext(ctx).Info("note no longer exists, skipping", "note_id", p.NoteID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load note %s: %w", p.NoteID, err)
	}
	return note, nil
}
