package gemini

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/phrazzld/inkpipe/internal/generation"
	"google.golang.org/genai"
)

// Classifier implements generation.Classifier.
type Classifier struct {
	client *Client
	model  string
}

var _ generation.Classifier = (*Classifier)(nil)

// NewClassifier binds a Classifier to the configured classify model.
func NewClassifier(c *Client) *Classifier {
	return &Classifier{client: c, model: c.config.ClassifyModel}
}

// Classify implements generation.Classifier.
func (c *Classifier) Classify(
	ctx context.Context,
	req generation.ClassificationRequest,
) (*generation.Classification, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, generation.ErrEmptyInput
	}

	prompt, err := renderPrompt("classify.tmpl", classifyPrompt{
		Text:     text,
		Existing: req.Existing,
		Recent:   req.Recent,
	})
	if err != nil {
		return nil, err
	}

	var out generation.Classification
	tokens, err := c.client.generateJSON(ctx, c.model, []*genai.Part{{Text: prompt}}, &out)
	if err != nil {
		return nil, err
	}
	if err := normalizeClassification(&out); err != nil {
		return nil, err
	}
	out.TokensUsed = tokens
	return &out, nil
}

func normalizeClassification(c *generation.Classification) error {
	if math.IsNaN(c.Confidence) || c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v out of range", generation.ErrInvalidResponse, c.Confidence)
	}
	c.ProposedCategory = strings.TrimSpace(c.ProposedCategory)
	c.NewCategoryReason = strings.TrimSpace(c.NewCategoryReason)
	for lang, share := range c.LanguageMix {
		if math.IsNaN(share) || share < 0 || share > 1 {
			return fmt.Errorf("%w: language share %q=%v out of range", generation.ErrInvalidResponse, lang, share)
		}
	}
	return nil
}
