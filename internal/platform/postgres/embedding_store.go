package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/inkpipe/internal/generation"
	"github.com/phrazzld/inkpipe/internal/store"
	"github.com/phrazzld/inkpipe/internal/task"
)

// EmbeddingStore implements task.EmbeddingRepository on note_embeddings and
// enrichment_hashes.
type EmbeddingStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewEmbeddingStore creates an EmbeddingStore.
func NewEmbeddingStore(db store.DBTX, logger *slog.Logger) *EmbeddingStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddingStore{
		db:     db,
		logger: logger.With(slog.String("component", "embedding_store")),
	}
}

var _ task.EmbeddingRepository = (*EmbeddingStore)(nil)

// ContentHash implements task.HashStore.
func (s *EmbeddingStore) ContentHash(ctx context.Context, resourceID uuid.UUID, kind string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT content_hash FROM enrichment_hashes
		WHERE note_id = $1 AND kind = $2`, resourceID, kind).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read content hash: %w", MapError(err))
	}
	return hash, nil
}

// SaveEmbedding implements task.EmbeddingRepository.
func (s *EmbeddingStore) SaveEmbedding(
	ctx context.Context,
	owner, noteID uuid.UUID,
	emb *generation.Embedding,
	hash string,
) error {
	if emb == nil || len(emb.Vector) == 0 {
		return fmt.Errorf("%w: empty embedding", store.ErrInvalidEntity)
	}

	return inTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO note_embeddings (note_id, owner_id, embedding, model, updated_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (note_id) DO UPDATE
			SET embedding = EXCLUDED.embedding,
			    model = EXCLUDED.model,
			    updated_at = EXCLUDED.updated_at`,
			noteID, owner, emb.Vector, emb.Model); err != nil {
			return fmt.Errorf("failed to save embedding: %w", MapError(err))
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO enrichment_hashes (note_id, kind, content_hash, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (note_id, kind) DO UPDATE
			SET content_hash = EXCLUDED.content_hash,
			    updated_at = EXCLUDED.updated_at`,
			noteID, task.KindEmbedding, hash); err != nil {
			return fmt.Errorf("failed to record content hash: %w", MapError(err))
		}
		return nil
	})
}
