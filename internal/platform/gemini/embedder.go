package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/phrazzld/inkpipe/internal/generation"
	"github.com/phrazzld/inkpipe/internal/platform/logger"
	"google.golang.org/genai"
)

// Embedder implements generation.Embedder.
type Embedder struct {
	client *Client
	model  string
}

var _ generation.Embedder = (*Embedder)(nil)

// NewEmbedder binds an Embedder to the configured embedding model.
func NewEmbedder(c *Client) *Embedder {
	return &Embedder{client: c, model: c.config.EmbedModel}
}

// Embed implements generation.Embedder. The embedding endpoint reports no
// usage, so TokensUsed is estimated from the input length.
func (e *Embedder) Embed(ctx context.Context, text string) (*generation.Embedding, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, generation.ErrEmptyInput
	}
	if err := e.client.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := e.client.models.EmbedContent(ctx, e.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: text}}}}, nil)
	if err != nil {
		logger.FromContextOrDefault(ctx, e.client.logger).WarnContext(ctx, "gemini embed failed",
			slog.String("model", e.model),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil ||
		len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("%w: no embedding values", generation.ErrInvalidResponse)
	}

	return &generation.Embedding{
		Vector:     resp.Embeddings[0].Values,
		Model:      e.model,
		TokensUsed: estimateTokens(text),
	}, nil
}

// estimateTokens approximates four characters per token.
func estimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}
