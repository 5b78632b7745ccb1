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

// CategoryStore implements task.CategoryRepository. It only reads
// categories; creating them is left to the user-facing application.
type CategoryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewCategoryStore creates a CategoryStore.
func NewCategoryStore(db store.DBTX, logger *slog.Logger) *CategoryStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryStore{
		db:     db,
		logger: logger.With(slog.String("component", "category_store")),
	}
}

var _ task.CategoryRepository = (*CategoryStore)(nil)

// ListCategories implements task.CategoryRepository.
func (s *CategoryStore) ListCategories(ctx context.Context, owner uuid.UUID, limit int) ([]domain.Category, error) {
	return s.query(ctx, `
		SELECT id, owner_id, name, last_used_at FROM categories
		WHERE owner_id = $1
		ORDER BY name
		LIMIT $2`, owner, limit)
}

// RecentCategories implements task.CategoryRepository.
func (s *CategoryStore) RecentCategories(ctx context.Context, owner uuid.UUID, limit int) ([]domain.Category, error) {
	return s.query(ctx, `
		SELECT id, owner_id, name, last_used_at FROM categories
		WHERE owner_id = $1 AND last_used_at IS NOT NULL
		ORDER BY last_used_at DESC
		LIMIT $2`, owner, limit)
}

// FindCategoryByName implements task.CategoryRepository.
func (s *CategoryStore) FindCategoryByName(
	ctx context.Context,
	owner uuid.UUID,
	name string,
) (*domain.Category, error) {
	normalized := domain.NormalizeCategoryName(name)
	if normalized == "" {
		return nil, store.ErrCategoryNotFound
	}

	var (
		c        domain.Category
		lastUsed sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, last_used_at FROM categories
		WHERE owner_id = $1
		  AND lower(regexp_replace(btrim(name), '\s+', ' ', 'g')) = $2
		ORDER BY name
		LIMIT 1`, owner, normalized).Scan(&c.ID, &c.OwnerID, &c.Name, &lastUsed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category: %w", MapError(err))
	}
	c.LastUsedAt = timePtr(lastUsed)
	return &c, nil
}

func (s *CategoryStore) query(ctx context.Context, query string, args ...any) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var categories []domain.Category
	for rows.Next() {
		var (
			c        domain.Category
			lastUsed sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &lastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.LastUsedAt = timePtr(lastUsed)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", MapError(err))
	}
	return categories, nil
}
