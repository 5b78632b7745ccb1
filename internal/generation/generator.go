package generation

import (
	"context"

	"github.com/phrazzld/inkpipe/internal/domain"
)

// ClassificationRequest carries the note text and the owner's vocabulary.
type ClassificationRequest struct {
	Text     string
	Existing []string
	Recent   []string
}

// Classification is the classifier's verdict for one note.
type Classification struct {
	ProposedCategory  string             `json:"proposed_category_name"`
	Confidence        float64            `json:"confidence"`
	NewCategoryReason string             `json:"new_category_reason,omitempty"`
	LanguageMix       domain.LanguageMix `json:"language_mix"`

	// TokensUsed is reported by the model, zero when unknown.
	TokensUsed int `json:"-"`
}

// Classifier proposes a category for a note.
type Classifier interface {
	Classify(ctx context.Context, req ClassificationRequest) (*Classification, error)
}

// Embedding is a fixed-length vector for a piece of text.
type Embedding struct {
	Vector     []float32
	Model      string
	TokensUsed int
}

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (*Embedding, error)
}

// Image is an encoded image ready to send to a vision model.
type Image struct {
	Data     []byte
	MIMEType string
}

// Captioner describes a handwritten note image in one line.
type Captioner interface {
	Caption(ctx context.Context, img Image) (string, error)
}

// Digest is a generated pack document.
type Digest struct {
	Document   string
	TokensUsed int
}

// Summarizer writes a digest of the notes in a date range.
type Summarizer interface {
	Summarize(ctx context.Context, notes []*domain.Note, r domain.DateRange) (*Digest, error)
}
