package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Note is a captured note, typed or handwritten. The enrichment pipeline
// reads its content and writes back the derived fields (caption, category,
// language mix); it never creates or deletes notes.
type Note struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`

	// Caption is a one-line description of a handwritten note.
	Caption string `json:"caption"`

	// InkImageKey is the blob key of the rendered ink image, empty for typed notes.
	InkImageKey string `json:"ink_image_key,omitempty"`

	// StrokeCount is the number of pen strokes in a handwritten note.
	StrokeCount int `json:"stroke_count"`

	CategoryID  *uuid.UUID  `json:"category_id,omitempty"`
	LanguageMix LanguageMix `json:"language_mix,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// LanguageMix maps a language code to the share of the note written in it.
type LanguageMix map[string]float64

// EnrichmentText concatenates title, body and caption into the text the
// classifier and embedder see. Empty parts are skipped so that a note with
// only a caption yields just the caption.
func (n *Note) EnrichmentText() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{n.Title, n.Body, n.Caption} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// HasText reports whether the note carries any text worth enriching.
func (n *Note) HasText() bool {
	return n.EnrichmentText() != ""
}

// HasCaption reports whether the note has already been captioned.
func (n *Note) HasCaption() bool {
	return strings.TrimSpace(n.Caption) != ""
}

// IsInk reports whether the note was handwritten.
func (n *Note) IsInk() bool {
	return n.InkImageKey != "" || n.StrokeCount > 0
}

// FallbackCaption is the deterministic caption used when no image caption
// can be produced.
func (n *Note) FallbackCaption() string {
	if n.StrokeCount <= 0 {
		return "Handwritten note"
	}
	if n.StrokeCount == 1 {
		return "Handwritten note (1 stroke)"
	}
	return fmt.Sprintf("Handwritten note (%d strokes)", n.StrokeCount)
}

// Validate checks the identifiers every note must carry.
func (n *Note) Validate() error {
	if n.ID == uuid.Nil {
		return fmt.Errorf("%w: note id", ErrInvalidID)
	}
	if n.OwnerID == uuid.Nil {
		return fmt.Errorf("%w: note owner id", ErrInvalidID)
	}
	return nil
}
