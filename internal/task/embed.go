package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/inkpipe/internal/generation"
	"github.com/phrazzld/inkpipe/internal/platform/logger"
)

// EmbedExecutor computes a note's embedding vector. Unchanged text is
// detected by content hash and skipped without calling the model.
type EmbedExecutor struct {
	notes      NoteRepository
	embeddings EmbeddingRepository
	embedder   generation.Embedder
	guard      *Guard
	logger     *slog.Logger
}

// NewEmbedExecutor creates the embed_note executor.
func NewEmbedExecutor(
	notes NoteRepository,
	embeddings EmbeddingRepository,
	embedder generation.Embedder,
	logger *slog.Logger,
) *EmbedExecutor {
	return &EmbedExecutor{
		notes:      notes,
		embeddings: embeddings,
		embedder:   embedder,
		guard:      NewGuard(embeddings),
		logger:     logger.With("component", "embed_executor"),
	}
}

// Type implements Executor.
func (e *EmbedExecutor) Type() Type { return TypeEmbedNote }

// FollowUps implements Executor.
func (e *EmbedExecutor) FollowUps() []Type { return nil }

// Execute implements Executor.
func (e *EmbedExecutor) Execute(ctx context.Context, job *Job, _ Chainer) (Result, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	note, err := loadNote(ctx, e.notes, job)
	if err != nil || note == nil {
		return Result{}, err
	}

	text := note.EnrichmentText()
	if text == "" {
		log.Debug("note has no text, nothing to embed", "note_id", note.ID)
		return Result{}, nil
	}

	skip, hash, err := e.guard.ShouldSkip(ctx, note.ID, KindEmbedding, text)
	if err != nil {
		return Result{}, err
	}
	if skip {
		log.Debug("embedding is current, skipping", "note_id", note.ID)
		return Cost(0), nil
	}

	emb, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return Result{}, fmt.Errorf("embedder failed: %w", err)
	}

	if err := e.embeddings.SaveEmbedding(ctx, job.OwnerID, note.ID, emb, hash); err != nil {
		return Result{}, fmt.Errorf("failed to save embedding: %w", err)
	}

	log.Debug("note embedded", "note_id", note.ID, "dimensions", len(emb.Vector))
	return Cost(emb.TokensUsed), nil
}
