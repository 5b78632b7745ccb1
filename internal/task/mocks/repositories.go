// Package mocks provides func-field fakes for the collaborators of the task
// executors. A nil func field makes the method return zero values.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/inkpipe/internal/domain"
	"github.com/phrazzld/inkpipe/internal/generation"
	"github.com/phrazzld/inkpipe/internal/task"
)

// NoteRepository fakes task.NoteRepository.
type NoteRepository struct {
	GetNoteFunc func(ctx context.Context, owner, noteID uuid.UUID) (*domain.Note, error)

	SaveClassificationFunc func(
		ctx context.Context,
		owner, noteID uuid.UUID,
		mix domain.LanguageMix,
		categoryID *uuid.UUID,
	) error

	SaveCaptionFunc func(
		ctx context.Context,
		owner, noteID uuid.UUID,
		caption string,
		followUp task.EnqueueParams,
	) (bool, error)

	ListNotesInRangeFunc func(ctx context.Context, owner uuid.UUID, r domain.DateRange) ([]*domain.Note, error)
}

// GetNote implements task.NoteRepository.
func (m *NoteRepository) GetNote(ctx context.Context, owner, noteID uuid.UUID) (*domain.Note, error) {
	if m.GetNoteFunc != nil {
		return m.GetNoteFunc(ctx, owner, noteID)
	}
	return nil, nil
}

// SaveClassification implements task.NoteRepository.
func (m *NoteRepository) SaveClassification(
	ctx context.Context,
	owner, noteID uuid.UUID,
	mix domain.LanguageMix,
	categoryID *uuid.UUID,
) error {
	if m.SaveClassificationFunc != nil {
		return m.SaveClassificationFunc(ctx, owner, noteID, mix, categoryID)
	}
	return nil
}

// SaveCaption implements task.NoteRepository.
func (m *NoteRepository) SaveCaption(
	ctx context.Context,
	owner, noteID uuid.UUID,
	caption string,
	followUp task.EnqueueParams,
) (bool, error) {
	if m.SaveCaptionFunc != nil {
		return m.SaveCaptionFunc(ctx, owner, noteID, caption, followUp)
	}
	return true, nil
}

// ListNotesInRange implements task.NoteRepository.
func (m *NoteRepository) ListNotesInRange(
	ctx context.Context,
	owner uuid.UUID,
	r domain.DateRange,
) ([]*domain.Note, error) {
	if m.ListNotesInRangeFunc != nil {
		return m.ListNotesInRangeFunc(ctx, owner, r)
	}
	return nil, nil
}

// CategoryRepository fakes task.CategoryRepository.
type CategoryRepository struct {
	ListCategoriesFunc     func(ctx context.Context, owner uuid.UUID, limit int) ([]domain.Category, error)
	RecentCategoriesFunc   func(ctx context.Context, owner uuid.UUID, limit int) ([]domain.Category, error)
	FindCategoryByNameFunc func(ctx context.Context, owner uuid.UUID, name string) (*domain.Category, error)
}

// ListCategories implements task.CategoryRepository.
func (m *CategoryRepository) ListCategories(
	ctx context.Context,
	owner uuid.UUID,
	limit int,
) ([]domain.Category, error) {
	if m.ListCategoriesFunc != nil {
		return m.ListCategoriesFunc(ctx, owner, limit)
	}
	return nil, nil
}

// RecentCategories implements task.CategoryRepository.
func (m *CategoryRepository) RecentCategories(
	ctx context.Context,
	owner uuid.UUID,
	limit int,
) ([]domain.Category, error) {
	if m.RecentCategoriesFunc != nil {
		return m.RecentCategoriesFunc(ctx, owner, limit)
	}
	return nil, nil
}

// FindCategoryByName implements task.CategoryRepository.
func (m *CategoryRepository) FindCategoryByName(
	ctx context.Context,
	owner uuid.UUID,
	name string,
) (*domain.Category, error) {
	if m.FindCategoryByNameFunc != nil {
		return m.FindCategoryByNameFunc(ctx, owner, name)
	}
	return nil, nil
}

// EmbeddingRepository fakes task.EmbeddingRepository.
type EmbeddingRepository struct {
	ContentHashFunc   func(ctx context.Context, resourceID uuid.UUID, kind string) (string, error)
	SaveEmbeddingFunc func(
		ctx context.Context,
		owner, noteID uuid.UUID,
		emb *generation.Embedding,
		hash string,
	) error
}

// ContentHash implements task.HashStore.
func (m *EmbeddingRepository) ContentHash(ctx context.Context, resourceID uuid.UUID, kind string) (string, error) {
	if m.ContentHashFunc != nil {
		return m.ContentHashFunc(ctx, resourceID, kind)
	}
	return "", nil
}

// SaveEmbedding implements task.EmbeddingRepository.
func (m *EmbeddingRepository) SaveEmbedding(
	ctx context.Context,
	owner, noteID uuid.UUID,
	emb *generation.Embedding,
	hash string,
) error {
	if m.SaveEmbeddingFunc != nil {
		return m.SaveEmbeddingFunc(ctx, owner, noteID, emb, hash)
	}
	return nil
}

// PackRepository fakes task.PackRepository.
type PackRepository struct {
	FindPackFunc   func(ctx context.Context, owner uuid.UUID, r domain.DateRange) (*domain.Pack, error)
	UpsertPackFunc func(ctx context.Context, pack *domain.Pack) error
}

// FindPack implements task.PackRepository.
func (m *PackRepository) FindPack(ctx context.Context, owner uuid.UUID, r domain.DateRange) (*domain.Pack, error) {
	if m.FindPackFunc != nil {
		return m.FindPackFunc(ctx, owner, r)
	}
	return nil, nil
}

// UpsertPack implements task.PackRepository.
func (m *PackRepository) UpsertPack(ctx context.Context, pack *domain.Pack) error {
	if m.UpsertPackFunc != nil {
		return m.UpsertPackFunc(ctx, pack)
	}
	return nil
}

// ImageSource fakes task.ImageSource.
type ImageSource struct {
	FetchImageFunc func(ctx context.Context, key string) (generation.Image, error)
}

// FetchImage implements task.ImageSource.
func (m *ImageSource) FetchImage(ctx context.Context, key string) (generation.Image, error) {
	if m.FetchImageFunc != nil {
		return m.FetchImageFunc(ctx, key)
	}
	return generation.Image{}, nil
}
