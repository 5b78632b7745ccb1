package gemini

import (
	"context"
	"strings"

	"github.com/phrazzld/inkpipe/internal/generation"
	"google.golang.org/genai"
)

// Captioner implements generation.Captioner with a vision model.
type Captioner struct {
	client *Client
	model  string
}

var _ generation.Captioner = (*Captioner)(nil)

// NewCaptioner binds a Captioner to the configured caption model.
func NewCaptioner(c *Client) *Captioner {
	return &Captioner{client: c, model: c.config.CaptionModel}
}

// Caption implements generation.Captioner. It returns the first non-empty
// line of the model output, which may be empty; the caller decides on a
// fallback.
func (c *Captioner) Caption(ctx context.Context, img generation.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", generation.ErrEmptyInput
	}
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}

	prompt, err := renderPrompt("caption.tmpl", captionPrompt{MaxWords: CaptionMaxWords})
	if err != nil {
		return "", err
	}

	text, _, err := c.client.generate(ctx, c.model, []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: mime, Data: img.Data}},
		{Text: prompt},
	}, nil)
	if err != nil {
		return "", err
	}
	return firstLine(text), nil
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.Trim(strings.TrimSpace(line), `"`)
		if line != "" {
			return line
		}
	}
	return ""
}
