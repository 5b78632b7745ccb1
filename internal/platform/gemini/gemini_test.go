package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/inkpipe/internal/config"
	"github.com/phrazzld/inkpipe/internal/domain"
	"github.com/phrazzld/inkpipe/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// fakeModels records requests and returns canned responses.
type fakeModels struct {
	generate func(model string, contents []*genai.Content) (*genai.GenerateContentResponse, error)
	embed    func(model string, contents []*genai.Content) (*genai.EmbedContentResponse, error)

	lastModel  string
	lastConfig *genai.GenerateContentConfig
	lastParts  []*genai.Part
}

func (f *fakeModels) GenerateContent(
	_ context.Context,
	model string,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.lastModel = model
	f.lastConfig = cfg
	if len(contents) > 0 {
		f.lastParts = contents[0].Parts
	}
	return f.generate(model, contents)
}

func (f *fakeModels) EmbedContent(
	_ context.Context,
	model string,
	contents []*genai.Content,
	_ *genai.EmbedContentConfig,
) (*genai.EmbedContentResponse, error) {
	f.lastModel = model
	return f.embed(model, contents)
}

func textResponse(text string, tokens int32) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []*genai.Part{{Text: text}}},
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{TotalTokenCount: tokens},
	}
}

func testConfig() config.LLMConfig {
	return config.LLMConfig{
		GeminiAPIKey:      "test-key",
		ClassifyModel:     "classify-model",
		EmbedModel:        "embed-model",
		CaptionModel:      "caption-model",
		SummaryModel:      "summary-model",
		RequestsPerSecond: 1000,
		Burst:             10,
	}
}

func newTestClient(t *testing.T, models *fakeModels) *Client {
	t.Helper()
	c, err := newClient(models, testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(context.Background(), config.LLMConfig{}, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = newClient(nil, testConfig(), nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	cfg := testConfig()
	cfg.RequestsPerSecond = 0
	_, err = newClient(&fakeModels{}, cfg, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	models := &fakeModels{generate: func(string, []*genai.Content) (*genai.GenerateContentResponse, error) {
		return textResponse("```json\n"+`{"proposed_category_name":"  Travel ","confidence":0.82,`+
			`"new_category_reason":"","language_mix":{"en":0.7,"pt":0.3}}`+"\n```", 311), nil
	}}
	c := NewClassifier(newTestClient(t, models))

	got, err := c.Classify(context.Background(), generation.ClassificationRequest{
		Text:     "Book the night train to Porto",
		Existing: []string{"Travel", "Work"},
		Recent:   []string{"Work"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Travel", got.ProposedCategory)
	assert.InDelta(t, 0.82, got.Confidence, 1e-9)
	assert.Equal(t, domain.LanguageMix{"en": 0.7, "pt": 0.3}, got.LanguageMix)
	assert.Equal(t, 311, got.TokensUsed)

	assert.Equal(t, "classify-model", models.lastModel)
	require.NotNil(t, models.lastConfig)
	assert.Equal(t, "application/json", models.lastConfig.ResponseMIMEType)
	require.Len(t, models.lastParts, 1)
	prompt := models.lastParts[0].Text
	assert.Contains(t, prompt, "- Travel")
	assert.Contains(t, prompt, "- Work")
	assert.Contains(t, prompt, "Book the night train to Porto")
}

func TestClassifyRejectsBadResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		err  error
		want error
	}{
		{"transport error", nil, errors.New("503 unavailable"), generation.ErrTransientFailure},
		{"malformed json", textResponse(`{"confidence":`, 1), nil, generation.ErrInvalidResponse},
		{"empty body", textResponse("  ", 1), nil, generation.ErrInvalidResponse},
		{"confidence out of range", textResponse(`{"confidence":1.5}`, 1), nil, generation.ErrInvalidResponse},
		{"negative language share", textResponse(`{"confidence":0.5,"language_mix":{"en":-1}}`, 1), nil,
			generation.ErrInvalidResponse},
		{"no candidates", &genai.GenerateContentResponse{}, nil, generation.ErrInvalidResponse},
		{"safety stop", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonSafety,
		}}}, nil, generation.ErrContentBlocked},
		{"prompt blocked", &genai.GenerateContentResponse{
			PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReason("SAFETY")},
		}, nil, generation.ErrContentBlocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			models := &fakeModels{generate: func(string, []*genai.Content) (*genai.GenerateContentResponse, error) {
				return tt.resp, tt.err
			}}
			_, err := NewClassifier(newTestClient(t, models)).Classify(context.Background(),
				generation.ClassificationRequest{Text: "hello"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClassifyEmptyText(t *testing.T) {
	t.Parallel()
	c := NewClassifier(newTestClient(t, &fakeModels{}))
	_, err := c.Classify(context.Background(), generation.ClassificationRequest{Text: " \n "})
	assert.ErrorIs(t, err, generation.ErrEmptyInput)
}

func TestEmbed(t *testing.T) {
	t.Parallel()

	models := &fakeModels{embed: func(_ string, contents []*genai.Content) (*genai.EmbedContentResponse, error) {
		require.Len(t, contents, 1)
		assert.Equal(t, "twelve chars", contents[0].Parts[0].Text)
		return &genai.EmbedContentResponse{
			Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.25, -0.5, 1}}},
		}, nil
	}}
	e := NewEmbedder(newTestClient(t, models))

	got, err := e.Embed(context.Background(), "  twelve chars ")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 1}, got.Vector)
	assert.Equal(t, "embed-model", got.Model)
	assert.Equal(t, 3, got.TokensUsed)
}

func TestEmbedErrors(t *testing.T) {
	t.Parallel()

	empty := &fakeModels{embed: func(string, []*genai.Content) (*genai.EmbedContentResponse, error) {
		return &genai.EmbedContentResponse{}, nil
	}}
	_, err := NewEmbedder(newTestClient(t, empty)).Embed(context.Background(), "text")
	assert.ErrorIs(t, err, generation.ErrInvalidResponse)

	failing := &fakeModels{embed: func(string, []*genai.Content) (*genai.EmbedContentResponse, error) {
		return nil, errors.New("deadline exceeded")
	}}
	_, err = NewEmbedder(newTestClient(t, failing)).Embed(context.Background(), "text")
	assert.ErrorIs(t, err, generation.ErrTransientFailure)

	_, err = NewEmbedder(newTestClient(t, failing)).Embed(context.Background(), "")
	assert.ErrorIs(t, err, generation.ErrEmptyInput)
}

func TestCaption(t *testing.T) {
	t.Parallel()

	models := &fakeModels{generate: func(string, []*genai.Content) (*genai.GenerateContentResponse, error) {
		return textResponse("\n\"A tram climbing a hill\"\nSecond line", 90), nil
	}}
	c := NewCaptioner(newTestClient(t, models))

	got, err := c.Caption(context.Background(), generation.Image{Data: []byte{0x89, 'P', 'N', 'G'}})
	require.NoError(t, err)
	assert.Equal(t, "A tram climbing a hill", got)

	assert.Equal(t, "caption-model", models.lastModel)
	require.Len(t, models.lastParts, 2)
	require.NotNil(t, models.lastParts[0].InlineData)
	assert.Equal(t, "image/png", models.lastParts[0].InlineData.MIMEType)
	assert.Contains(t, models.lastParts[1].Text, "handwritten note")

	_, err = c.Caption(context.Background(), generation.Image{})
	assert.ErrorIs(t, err, generation.ErrEmptyInput)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	models := &fakeModels{generate: func(string, []*genai.Content) (*genai.GenerateContentResponse, error) {
		return textResponse("# June, week one\n\n- trams\n", 512), nil
	}}
	s := NewSummarizer(newTestClient(t, models))

	r, err := domain.NewDateRange("2026-06-01", "2026-06-07")
	require.NoError(t, err)
	notes := []*domain.Note{
		{Title: "Lisbon", Body: "tram 28", CreatedAt: time.Date(2026, 6, 2, 8, 0, 0, 0, time.UTC)},
		{CreatedAt: time.Date(2026, 6, 3, 8, 0, 0, 0, time.UTC)},
	}

	digest, err := s.Summarize(context.Background(), notes, r)
	require.NoError(t, err)
	assert.Equal(t, "# June, week one\n\n- trams", digest.Document)
	assert.Equal(t, 512, digest.TokensUsed)

	prompt := models.lastParts[0].Text
	assert.Contains(t, prompt, "between 2026-06-01 and\n2026-06-07")
	assert.Contains(t, prompt, "## 2026-06-02")
	assert.Contains(t, prompt, "tram 28")
	assert.NotContains(t, prompt, "## 2026-06-03")
}

func TestSummarizeEmptyDigest(t *testing.T) {
	t.Parallel()

	models := &fakeModels{generate: func(string, []*genai.Content) (*genai.GenerateContentResponse, error) {
		return textResponse("   ", 3), nil
	}}
	r, err := domain.NewDateRange("2026-06-01", "2026-06-01")
	require.NoError(t, err)

	_, err = NewSummarizer(newTestClient(t, models)).Summarize(context.Background(), nil, r)
	assert.ErrorIs(t, err, generation.ErrInvalidResponse)
}

func TestRateLimiterHonoursContext(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.RequestsPerSecond = 0.001
	cfg.Burst = 1
	calls := 0
	models := &fakeModels{generate: func(string, []*genai.Content) (*genai.GenerateContentResponse, error) {
		calls++
		return textResponse("ok", 1), nil
	}}
	c, err := newClient(models, cfg, nil)
	require.NoError(t, err)

	_, _, err = c.generate(context.Background(), "m", []*genai.Part{{Text: "a"}}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = c.generate(ctx, "m", []*genai.Part{{Text: "b"}}, nil)
	assert.ErrorIs(t, err, generation.ErrTransientFailure)
	assert.Equal(t, 1, calls)
}

func TestPromptsParse(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"classify.tmpl", "caption.tmpl", "summary.tmpl"} {
		assert.NotNil(t, prompts.Lookup(name), name)
	}
	out, err := renderPrompt("classify.tmpl", classifyPrompt{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "(none)"))
}
