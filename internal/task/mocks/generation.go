package mocks

import (
	"context"

	"github.com/phrazzld/inkpipe/internal/domain"
	"github.com/phrazzld/inkpipe/internal/generation"
)

// Classifier fakes generation.Classifier.
type Classifier struct {
	ClassifyFunc func(ctx context.Context, req generation.ClassificationRequest) (*generation.Classification, error)
	Calls        int
}

// Classify implements generation.Classifier.
func (m *Classifier) Classify(
	ctx context.Context,
	req generation.ClassificationRequest,
) (*generation.Classification, error) {
	m.Calls++
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, req)
	}
	return &generation.Classification{}, nil
}

// Embedder fakes generation.Embedder.
type Embedder struct {
	EmbedFunc func(ctx context.Context, text string) (*generation.Embedding, error)
	Calls     int
}

// Embed implements generation.Embedder.
func (m *Embedder) Embed(ctx context.Context, text string) (*generation.Embedding, error) {
	m.Calls++
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return &generation.Embedding{}, nil
}

// Captioner fakes generation.Captioner.
type Captioner struct {
	CaptionFunc func(ctx context.Context, img generation.Image) (string, error)
	Calls       int
}

// Caption implements generation.Captioner.
func (m *Captioner) Caption(ctx context.Context, img generation.Image) (string, error) {
	m.Calls++
	if m.CaptionFunc != nil {
		return m.CaptionFunc(ctx, img)
	}
	return "", nil
}

// Summarizer fakes generation.Summarizer.
type Summarizer struct {
	SummarizeFunc func(ctx context.Context, notes []*domain.Note, r domain.DateRange) (*generation.Digest, error)
	Calls         int
}

// Summarize implements generation.Summarizer.
func (m *Summarizer) Summarize(
	ctx context.Context,
	notes []*domain.Note,
	r domain.DateRange,
) (*generation.Digest, error) {
	m.Calls++
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, notes, r)
	}
	return &generation.Digest{}, nil
}
