package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/inkpipe/internal/domain"
)

// Producer decides which jobs follow from application events. It enqueues
// through EnqueueUnique so that repeated saves of one note do not stack up
// duplicate queued jobs.
type Producer struct {
	jobs   Enqueuer
	logger *slog.Logger
}

// NewProducer creates a Producer.
func NewProducer(jobs Enqueuer, logger *slog.Logger) *Producer {
	return &Producer{
		jobs:   jobs,
		logger: logger.With("component", "job_producer"),
	}
}

// NoteSaved enqueues enrichment for a saved note: classify_note and
// embed_note when it has text, caption_ink when it is handwritten and not yet
// captioned. It returns the ids of the jobs covering the note, whether newly
// created or already pending.
func (p *Producer) NoteSaved(ctx context.Context, note *domain.Note) ([]uuid.UUID, error) {
	if err := note.Validate(); err != nil {
		return nil, err
	}

	var types []Type
	if note.HasText() {
		types = append(types, TypeClassifyNote, TypeEmbedNote)
	}
	if note.IsInk() && !note.HasCaption() {
		types = append(types, TypeCaptionInk)
	}

	ids := make([]uuid.UUID, 0, len(types))
	for _, t := range types {
		id, created, err := p.jobs.EnqueueUnique(ctx, NoteJob(t, note.OwnerID, note.ID))
		if err != nil {
			return ids, fmt.Errorf("failed to enqueue %s for note %s: %w", t, note.ID, err)
		}
		p.logger.Debug("note job enqueued",
			"job_id", id,
			"job_type", t,
			"note_id", note.ID,
			"created", created)
		ids = append(ids, id)
	}
	return ids, nil
}

// RequestPack enqueues a generate_pack job for the owner's range.
func (p *Producer) RequestPack(
	ctx context.Context,
	owner uuid.UUID,
	r domain.DateRange,
	mode domain.PackMode,
) (uuid.UUID, bool, error) {
	if err := r.Validate(); err != nil {
		return uuid.Nil, false, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	id, created, err := p.jobs.EnqueueUnique(ctx, PackJob(owner, r, mode))
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to enqueue pack %s: %w", r, err)
	}
	p.logger.Debug("pack job enqueued", "job_id", id, "range", r.String(), "created", created)
	return id, created, nil
}
