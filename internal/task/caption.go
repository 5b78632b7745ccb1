package task

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/inkpipe/internal/domain"
	"github.com/phrazzld/inkpipe/internal/generation"
	"github.com/phrazzld/inkpipe/internal/platform/logger"
)

// CaptionExecutor writes a one-line caption for handwritten notes and chains
// an embed_note so the caption becomes searchable.
type CaptionExecutor struct {
	notes     NoteRepository
	images    ImageSource
	captioner generation.Captioner
	logger    *slog.Logger
}

// NewCaptionExecutor creates the caption_ink executor.
func NewCaptionExecutor(
	notes NoteRepository,
	images ImageSource,
	captioner generation.Captioner,
	logger *slog.Logger,
) *CaptionExecutor {
	return &CaptionExecutor{
		notes:     notes,
		images:    images,
		captioner: captioner,
		logger:    logger.With("component", "caption_executor"),
	}
}

// Type implements Executor.
func (e *CaptionExecutor) Type() Type { return TypeCaptionInk }

// FollowUps implements Executor.
func (e *CaptionExecutor) FollowUps() []Type { return []Type{TypeEmbedNote} }

// Execute implements Executor.
func (e *CaptionExecutor) Execute(ctx context.Context, job *Job, chain Chainer) (Result, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	note, err := loadNote(ctx, e.notes, job)
	if err != nil || note == nil {
		return Result{}, err
	}
	if note.HasCaption() {
		log.Debug("note already captioned", "note_id", note.ID)
		return Result{}, nil
	}

	caption := e.caption(ctx, log, note)

	followUp, err := chain.FollowUp(job.OwnerID, TypeEmbedNote, NotePayload{NoteID: note.ID})
	if err != nil {
		return Result{}, err
	}

	saved, err := e.notes.SaveCaption(ctx, job.OwnerID, note.ID, caption, followUp)
	if err != nil {
		return Result{}, fmt.Errorf("failed to save caption: %w", err)
	}
	if !saved {
		log.Info("note was captioned concurrently, nothing chained", "note_id", note.ID)
		return Result{}, nil
	}

	log.Debug("note captioned", "note_id", note.ID, "caption_length", len(caption))
	return Result{}, nil
}

// caption produces the image caption or, on any failure, the fallback.
func (e *CaptionExecutor) caption(ctx context.Context, log *slog.Logger, note *domain.Note) string {
	if note.InkImageKey == "" {
		return note.FallbackCaption()
	}

	img, err := e.images.FetchImage(ctx, note.InkImageKey)
	if err != nil {
		log.Warn("failed to fetch ink image, using fallback caption",
			"note_id", note.ID,
			"image_key", note.InkImageKey,
			"error", err)
		return note.FallbackCaption()
	}

	caption, err := e.captioner.Caption(ctx, img)
	if err != nil {
		log.Warn("captioner failed, using fallback caption", "note_id", note.ID, "error", err)
		return note.FallbackCaption()
	}
	caption = strings.TrimSpace(caption)
	if caption == "" {
		log.Warn("captioner returned an empty caption, using fallback", "note_id", note.ID)
		return note.FallbackCaption()
	}
	return caption
}
