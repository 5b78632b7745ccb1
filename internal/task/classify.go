package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/inkpipe/internal/domain"
	"github.com/phrazzld/inkpipe/internal/generation"
	"github.com/phrazzld/inkpipe/internal/platform/logger"
	"github.com/phrazzld/inkpipe/internal/store"
)

// Classification limits
const (
	// ConfidenceThreshold is the minimum classifier confidence for filing a
	// note under an existing category.
	ConfidenceThreshold = 0.7

	// MaxCategories bounds the category names sent to the classifier.
	MaxCategories = 50

	// MaxRecentCategories bounds the recently used names sent to the classifier.
	MaxRecentCategories = 10
)

// ClassifyExecutor files notes under one of the owner's existing categories
// and records the note's language mix. It never creates categories.
type ClassifyExecutor struct {
	notes      NoteRepository
	categories CategoryRepository
	classifier generation.Classifier
	logger     *slog.Logger
}

// NewClassifyExecutor creates the classify_note executor.
func NewClassifyExecutor(
	notes NoteRepository,
	categories CategoryRepository,
	classifier generation.Classifier,
	logger *slog.Logger,
) *ClassifyExecutor {
	return &ClassifyExecutor{
		notes:      notes,
		categories: categories,
		classifier: classifier,
		logger:     logger.With("component", "classify_executor"),
	}
}

// Type implements Executor.
func (e *ClassifyExecutor) Type() Type { return TypeClassifyNote }

// FollowUps implements Executor.
func (e *ClassifyExecutor) FollowUps() []Type { return nil }

// Execute implements Executor.
func (e *ClassifyExecutor) Execute(ctx context.Context, job *Job, _ Chainer) (Result, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	note, err := loadNote(ctx, e.notes, job)
	if err != nil || note == nil {
		return Result{}, err
	}

	text := note.EnrichmentText()
	if text == "" {
		log.Debug("note has no text, nothing to classify", "note_id", note.ID)
		return Result{}, nil
	}

	existing, err := e.categories.ListCategories(ctx, job.OwnerID, MaxCategories)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list categories: %w", err)
	}
	recent, err := e.categories.RecentCategories(ctx, job.OwnerID, MaxRecentCategories)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list recent categories: %w", err)
	}

	cls, err := e.classifier.Classify(ctx, generation.ClassificationRequest{
		Text:     text,
		Existing: domain.CategoryNames(existing),
		Recent:   domain.CategoryNames(recent),
	})
	if err != nil {
		return Result{}, fmt.Errorf("classifier failed: %w", err)
	}

	var categoryID *uuid.UUID
	if cls.Confidence >= ConfidenceThreshold && cls.ProposedCategory != "" {
		cat, err := e.categories.FindCategoryByName(ctx, job.OwnerID, cls.ProposedCategory)
		switch {
		case err == nil:
			categoryID = &cat.ID
		case errors.Is(err, store.ErrCategoryNotFound):
			log.Info("classifier proposed an unknown category, leaving note unclassified",
				"note_id", note.ID,
				"proposed_category", cls.ProposedCategory,
				"new_category_reason", cls.NewCategoryReason)
		default:
			return Result{}, fmt.Errorf("failed to look up category: %w", err)
		}
	}

	if err := e.notes.SaveClassification(ctx, job.OwnerID, note.ID, cls.LanguageMix, categoryID); err != nil {
		return Result{}, fmt.Errorf("failed to save classification: %w", err)
	}

	log.Debug("note classified",
		"note_id", note.ID,
		"confidence", cls.Confidence,
		"assigned", categoryID != nil)
	return Cost(cls.TokensUsed), nil
}
