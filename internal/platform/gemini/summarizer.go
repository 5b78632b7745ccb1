package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/phrazzld/inkpipe/internal/domain"
	"github.com/phrazzld/inkpipe/internal/generation"
	"google.golang.org/genai"
)

// Summarizer implements generation.Summarizer.
type Summarizer struct {
	client *Client
	model  string
}

var _ generation.Summarizer = (*Summarizer)(nil)

// NewSummarizer binds a Summarizer to the configured summary model.
func NewSummarizer(c *Client) *Summarizer {
	return &Summarizer{client: c, model: c.config.SummaryModel}
}

// Summarize implements generation.Summarizer. An empty note list still
// produces a document.
func (s *Summarizer) Summarize(
	ctx context.Context,
	notes []*domain.Note,
	r domain.DateRange,
) (*generation.Digest, error) {
	data := summaryPrompt{
		Start: r.Start.Format(domain.DateLayout),
		End:   r.End.Format(domain.DateLayout),
		Notes: make([]summaryNote, 0, len(notes)),
	}
	for _, n := range notes {
		text := n.EnrichmentText()
		if text == "" {
			continue
		}
		data.Notes = append(data.Notes, summaryNote{
			Date: n.CreatedAt.UTC().Format(domain.DateLayout),
			Text: text,
		})
	}

	prompt, err := renderPrompt("summary.tmpl", data)
	if err != nil {
		return nil, err
	}

	text, tokens, err := s.client.generate(ctx, s.model, []*genai.Part{{Text: prompt}}, nil)
	if err != nil {
		return nil, err
	}
	doc := strings.TrimSpace(text)
	if doc == "" {
		return nil, fmt.Errorf("%w: empty digest", generation.ErrInvalidResponse)
	}
	return &generation.Digest{Document: doc, TokensUsed: tokens}, nil
}
