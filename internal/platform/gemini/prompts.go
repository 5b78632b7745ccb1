package gemini

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/phrazzld/inkpipe/internal/generation"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// CaptionMaxWords bounds the caption length requested from the model.
const CaptionMaxWords = 20

type classifyPrompt struct {
	Text     string
	Existing []string
	Recent   []string
}

type captionPrompt struct {
	MaxWords int
}

type summaryNote struct {
	Date string
	Text string
}

type summaryPrompt struct {
	Start string
	End   string
	Notes []summaryNote
}

// renderPrompt executes the named template with data.
func renderPrompt(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("%w: failed to render %s: %v", generation.ErrInvalidConfig, name, err)
	}
	return buf.String(), nil
}
