package task_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/inkpipe/internal/domain"
	"github.com/phrazzld/inkpipe/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jobTypes(s interface{ Jobs() []*task.Job }) map[task.Type]int {
	counts := map[task.Type]int{}
	for _, j := range s.Jobs() {
		counts[j.Type]++
	}
	return counts
}

func TestProducerNoteSaved(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		note func() *domain.Note
		want map[task.Type]int
	}{
		{
			name: "typed note",
			note: func() *domain.Note { return textNote(uuid.New(), "title", "body") },
			want: map[task.Type]int{task.TypeClassifyNote: 1, task.TypeEmbedNote: 1},
		},
		{
			name: "uncaptioned ink note",
			note: func() *domain.Note { return inkNote(10, "ink/1.png") },
			want: map[task.Type]int{task.TypeCaptionInk: 1},
		},
		{
			name: "ink note with title",
			note: func() *domain.Note {
				n := inkNote(10, "ink/1.png")
				n.Title = "Sketches"
				return n
			},
			want: map[task.Type]int{task.TypeClassifyNote: 1, task.TypeEmbedNote: 1, task.TypeCaptionInk: 1},
		},
		{
			name: "captioned ink note",
			note: func() *domain.Note {
				n := inkNote(10, "ink/1.png")
				n.Caption = "A map"
				return n
			},
			want: map[task.Type]int{task.TypeClassifyNote: 1, task.TypeEmbedNote: 1},
		},
		{
			name: "empty note",
			note: func() *domain.Note { return textNote(uuid.New(), "", "") },
			want: map[task.Type]int{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newMemoryStore(t)
			producer := task.NewProducer(s, discardLogger())

			ids, err := producer.NoteSaved(context.Background(), tt.note())
			require.NoError(t, err)
			assert.Equal(t, tt.want, jobTypes(s))

			want := 0
			for _, n := range tt.want {
				want += n
			}
			assert.Len(t, ids, want)
		})
	}
}

func TestProducerDedupesRepeatedSaves(t *testing.T) {
	t.Parallel()

	s := newMemoryStore(t)
	producer := task.NewProducer(s, discardLogger())
	note := textNote(uuid.New(), "draft", "v1")

	first, err := producer.NoteSaved(context.Background(), note)
	require.NoError(t, err)
	note.Body = "v2"
	second, err := producer.NoteSaved(context.Background(), note)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, s.Jobs(), 2)
}

func TestProducerResaveWhileRunningEnqueuesFreshJobs(t *testing.T) {
	t.Parallel()

	s := newMemoryStore(t)
	producer := task.NewProducer(s, discardLogger())
	note := textNote(uuid.New(), "draft", "v1")
	ctx := context.Background()

	first, err := producer.NoteSaved(ctx, note)
	require.NoError(t, err)
	require.Len(t, first, 2)

	for range first {
		job, err := s.ClaimNext(ctx, "r1", testNow)
		require.NoError(t, err)
		require.NotNil(t, job)
	}

	note.Body = "v2"
	second, err := producer.NoteSaved(ctx, note)
	require.NoError(t, err)
	require.Len(t, second, 2)
	for _, id := range second {
		assert.NotContains(t, first, id)
	}

	counts, err := s.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[task.StatusRunning])
	assert.Equal(t, 2, counts[task.StatusQueued])
}

func TestProducerRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	s := newMemoryStore(t)
	producer := task.NewProducer(s, discardLogger())

	_, err := producer.NoteSaved(context.Background(), &domain.Note{ID: uuid.New(), Title: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	r := domain.DateRange{Start: testNow, End: testNow.AddDate(0, 0, -1)}
	_, _, err = producer.RequestPack(context.Background(), uuid.New(), r, domain.PackModeSkip)
	assert.ErrorIs(t, err, task.ErrInvalidPayload)

	r = domain.DateRange{Start: testNow, End: testNow}
	_, _, err = producer.RequestPack(context.Background(), uuid.New(), r, "merge")
	assert.ErrorIs(t, err, task.ErrInvalidPayload)
	assert.Empty(t, s.Jobs())
}

func TestProducerRequestPack(t *testing.T) {
	t.Parallel()

	s := newMemoryStore(t)
	producer := task.NewProducer(s, discardLogger())
	owner := uuid.New()
	r, err := domain.NewDateRange("2026-06-01", "2026-06-30")
	require.NoError(t, err)

	id, created, err := producer.RequestPack(context.Background(), owner, r, domain.PackModeSkip)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := producer.RequestPack(context.Background(), owner, r, domain.PackModeSkip)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, again)

	job, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"range_start":"2026-06-01","range_end":"2026-06-30","mode":"skip"}`, string(job.Payload))
}
