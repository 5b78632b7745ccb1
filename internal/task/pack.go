package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/inkpipe/internal/domain"
	"github.com/phrazzld/inkpipe/internal/generation"
	"github.com/phrazzld/inkpipe/internal/platform/logger"
	"github.com/phrazzld/inkpipe/internal/store"
)

// PackExecutor generates a digest document over an owner's notes in a date
// range.
type PackExecutor struct {
	notes      NoteRepository
	packs      PackRepository
	summarizer generation.Summarizer
	logger     *slog.Logger
}

// NewPackExecutor creates the generate_pack executor.
func NewPackExecutor(
	notes NoteRepository,
	packs PackRepository,
	summarizer generation.Summarizer,
	logger *slog.Logger,
) *PackExecutor {
	return &PackExecutor{
		notes:      notes,
		packs:      packs,
		summarizer: summarizer,
		logger:     logger.With("component", "pack_executor"),
	}
}

// Type implements Executor.
func (e *PackExecutor) Type() Type { return TypeGeneratePack }

// FollowUps implements Executor.
func (e *PackExecutor) FollowUps() []Type { return nil }

// Execute implements Executor.
func (e *PackExecutor) Execute(ctx context.Context, job *Job, _ Chainer) (Result, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	p, err := job.DecodePayload()
	if err != nil {
		return Result{}, err
	}
	pp, ok := p.(PackPayload)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s expects a pack payload", ErrInvalidPayload, job.Type)
	}
	r, err := pp.Range()
	if err != nil {
		return Result{}, err
	}

	if pp.Mode == domain.PackModeSkip {
		existing, err := e.packs.FindPack(ctx, job.OwnerID, r)
		switch {
		case err == nil:
			log.Debug("pack exists, skipping", "pack_id", existing.ID, "range", r.String())
			return Result{}, nil
		case !errors.Is(err, store.ErrPackNotFound):
			return Result{}, fmt.Errorf("failed to look up pack: %w", err)
		}
	}

	notes, err := e.notes.ListNotesInRange(ctx, job.OwnerID, r)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list notes: %w", err)
	}

	digest, err := e.summarizer.Summarize(ctx, notes, r)
	if err != nil {
		return Result{}, fmt.Errorf("summarizer failed: %w", err)
	}

	pack := &domain.Pack{
		OwnerID:   job.OwnerID,
		Range:     r,
		Document:  digest.Document,
		NoteCount: len(notes),
	}
	if err := e.packs.UpsertPack(ctx, pack); err != nil {
		return Result{}, fmt.Errorf("failed to save pack: %w", err)
	}

	log.Debug("pack generated", "range", r.String(), "note_count", len(notes))
	return Cost(digest.TokensUsed), nil
}
