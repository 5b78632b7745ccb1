package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/inkpipe/internal/domain"
	"github.com/phrazzld/inkpipe/internal/store"
	"github.com/phrazzld/inkpipe/internal/task"
)

// PackStore implements task.PackRepository on the packs table.
type PackStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPackStore creates a PackStore.
func NewPackStore(db store.DBTX, logger *slog.Logger) *PackStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PackStore{
		db:     db,
		logger: logger.With(slog.String("component", "pack_store")),
	}
}

var _ task.PackRepository = (*PackStore)(nil)

// FindPack implements task.PackRepository.
func (s *PackStore) FindPack(ctx context.Context, owner uuid.UUID, r domain.DateRange) (*domain.Pack, error) {
	var p domain.Pack
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, range_start, range_end, document, note_count, created_at, updated_at
		FROM packs
		WHERE owner_id = $1 AND range_start = $2 AND range_end = $3`,
		owner, r.Start.Format(domain.DateLayout), r.End.Format(domain.DateLayout),
	).Scan(
		&p.ID,
		&p.OwnerID,
		&p.Range.Start,
		&p.Range.End,
		&p.Document,
		&p.NoteCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrPackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pack: %w", MapError(err))
	}
	return &p, nil
}

// UpsertPack implements task.PackRepository. The pack's ID and timestamps
// are filled in from the stored row.
func (s *PackStore) UpsertPack(ctx context.Context, pack *domain.Pack) error {
	if pack.OwnerID == uuid.Nil {
		return fmt.Errorf("%w: pack owner", store.ErrInvalidEntity)
	}
	if err := pack.Range.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	id := pack.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO packs (id, owner_id, range_start, range_end, document, note_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (owner_id, range_start, range_end) DO UPDATE
		SET document = EXCLUDED.document,
		    note_count = EXCLUDED.note_count,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at`,
		id,
		pack.OwnerID,
		pack.Range.Start.Format(domain.DateLayout),
		pack.Range.End.Format(domain.DateLayout),
		pack.Document,
		pack.NoteCount,
	).Scan(&pack.ID, &pack.CreatedAt, &pack.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save pack: %w", MapError(err))
	}
	return nil
}
