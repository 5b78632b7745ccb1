package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/inkpipe/internal/domain"
	"github.com/phrazzld/inkpipe/internal/platform/logger"
	"github.com/phrazzld/inkpipe/internal/store"
	"github.com/phrazzld/inkpipe/internal/task"
)

const noteColumns = `
	id, owner_id, title, body, COALESCE(caption, ''), COALESCE(ink_image_key, ''),
	stroke_count, category_id, language_mix, created_at, updated_at`

// NoteStore implements task.NoteRepository on the notes table. Follow-up
// jobs are written through jobs so that a caption and its chained job
// commit together.
type NoteStore struct {
	db     store.DBTX
	jobs   *JobStore
	logger *slog.Logger
}

// NewNoteStore creates a NoteStore.
func NewNoteStore(db store.DBTX, jobs *JobStore, logger *slog.Logger) *NoteStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NoteStore{
		db:     db,
		jobs:   jobs,
		logger: logger.With(slog.String("component", "note_store")),
	}
}

var _ task.NoteRepository = (*NoteStore)(nil)

// GetNote implements task.NoteRepository.
func (s *NoteStore) GetNote(ctx context.Context, owner, noteID uuid.UUID) (*domain.Note, error) {
	note, err := scanNote(s.db.QueryRowContext(ctx,
		`SELECT`+noteColumns+` FROM notes WHERE id = $1 AND owner_id = $2`, noteID, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", MapError(err))
	}
	return note, nil
}

// SaveClassification implements task.NoteRepository.
func (s *NoteStore) SaveClassification(
	ctx context.Context,
	owner, noteID uuid.UUID,
	mix domain.LanguageMix,
	categoryID *uuid.UUID,
) error {
	var mixJSON []byte
	if mix != nil {
		var err error
		if mixJSON, err = json.Marshal(mix); err != nil {
			return fmt.Errorf("%w: language mix: %v", store.ErrInvalidEntity, err)
		}
	}
	var category uuid.NullUUID
	if categoryID != nil {
		category = uuid.NullUUID{UUID: *categoryID, Valid: true}
	}

	return inTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE notes
			SET language_mix = $3,
			    category_id = COALESCE($4, category_id),
			    updated_at = now()
			WHERE id = $1 AND owner_id = $2`,
			noteID, owner, mixJSON, category)
		if err != nil {
			return fmt.Errorf("failed to save classification: %w", MapError(err))
		}
		n, err := rowsAffected(result)
		if err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNoteNotFound
		}

		if categoryID == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE categories SET last_used_at = now()
			WHERE id = $1 AND owner_id = $2`,
			*categoryID, owner); err != nil {
			return fmt.Errorf("failed to touch category: %w", MapError(err))
		}
		return nil
	})
}

// SaveCaption implements task.NoteRepository.
func (s *NoteStore) SaveCaption(
	ctx context.Context,
	owner, noteID uuid.UUID,
	caption string,
	followUp task.EnqueueParams,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	saved := false
	err := inTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE notes
			SET caption = $3, updated_at = now()
			WHERE id = $1 AND owner_id = $2
			  AND (caption IS NULL OR btrim(caption) = '')`,
			noteID, owner, caption)
		if err != nil {
			return fmt.Errorf("failed to save caption: %w", MapError(err))
		}
		n, err := rowsAffected(result)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}

		if _, err := s.jobs.WithTx(tx).Enqueue(ctx, followUp); err != nil {
			return err
		}
		saved = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if saved {
		log.Debug("caption saved", slog.String("note_id", noteID.String()))
	}
	return saved, nil
}

// ListNotesInRange implements task.NoteRepository.
func (s *NoteStore) ListNotesInRange(
	ctx context.Context,
	owner uuid.UUID,
	r domain.DateRange,
) ([]*domain.Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT`+noteColumns+`
		FROM notes
		WHERE owner_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at, id`,
		owner, r.Start, r.Until())
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var notes []*domain.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", MapError(err))
	}
	return notes, nil
}

func scanNote(row rowScanner) (*domain.Note, error) {
	var (
		note     domain.Note
		category uuid.NullUUID
		mix      []byte
	)
	err := row.Scan(
		&note.ID,
		&note.OwnerID,
		&note.Title,
		&note.Body,
		&note.Caption,
		&note.InkImageKey,
		&note.StrokeCount,
		&category,
		&mix,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if category.Valid {
		id := category.UUID
		note.CategoryID = &id
	}
	if len(mix) > 0 {
		if err := json.Unmarshal(mix, &note.LanguageMix); err != nil {
			return nil, fmt.Errorf("failed to decode language mix: %w", err)
		}
	}
	return &note, nil
}
