package task

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/inkpipe/internal/domain"
	"github.com/phrazzld/inkpipe/internal/generation"
)

// Queue errors
var (
	// ErrLeaseLost is returned by Store.Finalize when the job is no longer
	// running under the finalizing runner's lease.
	ErrLeaseLost = errors.New("job lease lost")

	// ErrUnknownType is returned for a job type with no registered executor.
	ErrUnknownType = errors.New("unknown job type")

	// ErrUndeclaredFollowUp is returned when an executor tries to chain a
	// job type it did not declare in FollowUps.
	ErrUndeclaredFollowUp = errors.New("undeclared follow-up job type")
)

// Enqueuer inserts jobs.
type Enqueuer interface {
	// Enqueue always inserts a new queued job and returns its id.
	Enqueue(ctx context.Context, params EnqueueParams) (uuid.UUID, error)

	// EnqueueUnique inserts a job unless a queued job with the same owner,
	// type and dedupe key exists, in which case it returns that job's id and
	// created=false. Running jobs never absorb an enqueue: they may have
	// read the content before it changed.
	EnqueueUnique(ctx context.Context, params EnqueueParams) (id uuid.UUID, created bool, err error)
}

// Store is the persistent job queue.
type Store interface {
	Enqueuer

	// ClaimNext atomically leases one eligible job to runnerID: a queued job
	// whose run_after has passed, or a running job whose lease went stale.
	// The claim increments attempts. It returns (nil, nil) when nothing is
	// eligible.
	ClaimNext(ctx context.Context, runnerID string, now time.Time) (*Job, error)

	// Finalize applies tr if the job is still running under tr.RunnerID and
	// returns ErrLeaseLost otherwise.
	Finalize(ctx context.Context, tr Transition) error

	// Get returns a job by id or store.ErrJobNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Job, error)

	// CountByStatus returns the number of jobs in each status.
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

// NoteRepository is the executors' view of the notes table.
type NoteRepository interface {
	// GetNote returns the owner's note or store.ErrNoteNotFound.
	GetNote(ctx context.Context, owner, noteID uuid.UUID) (*domain.Note, error)

	// SaveClassification stores the language mix and, when categoryID is
	// set, files the note under that category and touches its last_used_at.
	SaveClassification(
		ctx context.Context,
		owner, noteID uuid.UUID,
		mix domain.LanguageMix,
		categoryID *uuid.UUID,
	) error

	// SaveCaption writes caption only if the note is still uncaptioned and,
	// in the same transaction, enqueues followUp. It reports whether the
	// caption was written; when it was not, nothing is enqueued.
	SaveCaption(
		ctx context.Context,
		owner, noteID uuid.UUID,
		caption string,
		followUp EnqueueParams,
	) (bool, error)

	// ListNotesInRange returns the owner's notes created in [r.Start, r.Until()),
	// oldest first.
	ListNotesInRange(ctx context.Context, owner uuid.UUID, r domain.DateRange) ([]*domain.Note, error)
}

// CategoryRepository reads an owner's categories.
type CategoryRepository interface {
	// ListCategories returns up to limit categories ordered by name.
	ListCategories(ctx context.Context, owner uuid.UUID, limit int) ([]domain.Category, error)

	// RecentCategories returns up to limit categories by last use, newest first.
	RecentCategories(ctx context.Context, owner uuid.UUID, limit int) ([]domain.Category, error)

	// FindCategoryByName matches name case-insensitively after trimming and
	// returns store.ErrCategoryNotFound when the owner has no such category.
	FindCategoryByName(ctx context.Context, owner uuid.UUID, name string) (*domain.Category, error)
}

// HashStore reads idempotency hashes.
type HashStore interface {
	// ContentHash returns the stored hash for (resourceID, kind), or "" when
	// none has been recorded.
	ContentHash(ctx context.Context, resourceID uuid.UUID, kind string) (string, error)
}

// EmbeddingRepository persists note vectors together with their hash.
type EmbeddingRepository interface {
	HashStore

	// SaveEmbedding upserts the vector for the note and records hash under
	// KindEmbedding in one transaction.
	SaveEmbedding(ctx context.Context, owner, noteID uuid.UUID, emb *generation.Embedding, hash string) error
}

// PackRepository persists generated packs.
type PackRepository interface {
	// FindPack returns the pack for (owner, r) or store.ErrPackNotFound.
	FindPack(ctx context.Context, owner uuid.UUID, r domain.DateRange) (*domain.Pack, error)

	// UpsertPack inserts or replaces the pack keyed by (owner, range).
	UpsertPack(ctx context.Context, pack *domain.Pack) error
}

// ImageSource loads ink images ready for captioning.
type ImageSource interface {
	FetchImage(ctx context.Context, key string) (generation.Image, error)
}
