package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/inkpipe/internal/config"
	"github.com/phrazzld/inkpipe/internal/generation"
	"github.com/phrazzld/inkpipe/internal/platform/logger"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// modelAPI is the subset of *genai.Models the adapters use.
type modelAPI interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
	EmbedContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.EmbedContentConfig,
	) (*genai.EmbedContentResponse, error)
}

// Client is a rate-limited Gemini connection shared by the adapters.
type Client struct {
	models  modelAPI
	limiter *rate.Limiter
	config  config.LLMConfig
	logger  *slog.Logger
}

// NewClient connects to the Gemini API using cfg.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*Client, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}
	return newClient(client.Models, cfg, logger)
}

func newClient(models modelAPI, cfg config.LLMConfig, log *slog.Logger) (*Client, error) {
	if models == nil {
		return nil, fmt.Errorf("%w: models cannot be nil", generation.ErrInvalidConfig)
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("%w: requests per second must be positive", generation.ErrInvalidConfig)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Client{
		models:  models,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		config:  cfg,
		logger:  log.With(slog.String("component", "gemini")),
	}, nil
}

// wait blocks until the limiter admits one request or ctx ends.
func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", generation.ErrTransientFailure, err)
	}
	return nil
}

// generate sends parts as a single user turn and returns the concatenated
// text of the first candidate along with the reported token count.
func (c *Client) generate(
	ctx context.Context,
	model string,
	parts []*genai.Part,
	cfg *genai.GenerateContentConfig,
) (string, int, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	if err := c.wait(ctx); err != nil {
		return "", 0, err
	}

	resp, err := c.models.GenerateContent(ctx, model, []*genai.Content{{Role: "user", Parts: parts}}, cfg)
	if err != nil {
		log.WarnContext(ctx, "gemini call failed",
			slog.String("model", model),
			slog.String("error", err.Error()))
		return "", 0, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	text, err := responseText(resp)
	if err != nil {
		log.WarnContext(ctx, "unusable gemini response",
			slog.String("model", model),
			slog.String("error", err.Error()))
		return "", 0, err
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	log.DebugContext(ctx, "gemini call succeeded",
		slog.String("model", model),
		slog.Int("tokens", tokens),
		slog.Int("response_length", len(text)))
	return text, tokens, nil
}

// generateJSON is generate with a JSON response decoded into out.
func (c *Client) generateJSON(
	ctx context.Context,
	model string,
	parts []*genai.Part,
	out any,
) (int, error) {
	text, tokens, err := c.generate(ctx, model, parts, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return 0, err
	}
	if err := decodeJSON(text, out); err != nil {
		return tokens, err
	}
	return tokens, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", fmt.Errorf("%w: no candidates", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: response blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty candidate content", generation.ErrInvalidResponse)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}

// decodeJSON tolerates a markdown code fence around the payload, which
// models occasionally add even in JSON mode.
func decodeJSON(text string, out any) error {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	if text == "" {
		return fmt.Errorf("%w: empty response body", generation.ErrInvalidResponse)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return fmt.Errorf("%w: malformed JSON at offset %d: %v", generation.ErrInvalidResponse, syntaxErr.Offset, err)
		}
		return fmt.Errorf("%w: failed to parse JSON response: %v", generation.ErrInvalidResponse, err)
	}
	return nil
}
