package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/scansort/scansort/internal/batch"
	"github.com/scansort/scansort/internal/extract"
	"github.com/scansort/scansort/internal/providers"
	"github.com/scansort/scansort/internal/retry"
)

const titleSchema = `{
	"type": "object",
	"properties": {
		"title": {"type": "string"}
	},
	"required": ["title"],
	"additionalProperties": false
}`

var titleJSONSchema = providers.MustCompileSchema("title.json", titleSchema)

// Maximum characters of document text included in the titling prompt.
const maxTitleContextChars = 3000

// Titler asks the AI for a short descriptive document title. Titling is
// best-effort: failures fall back to a name derived from the category
// and the first source file.
type Titler struct {
	llm    providers.LLMClient
	policy retry.Policy
	logger *slog.Logger
}

// NewTitler creates a titler.
func NewTitler(llm providers.LLMClient, policy retry.Policy, logger *slog.Logger) *Titler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Titler{
		llm:    llm,
		policy: policy,
		logger: logger.With("component", "title"),
	}
}

// Suggest returns a title for the group. The lost-and-found group keeps
// its assigned title and never consults the AI.
func (t *Titler) Suggest(ctx context.Context, g batch.DocumentGroup, texts []extract.PageText, sourceName string) string {
	if g.Title != "" {
		return g.Title
	}
	fallback := FallbackTitle(g.Category, sourceName)

	out := retry.Do(ctx, t.policy, fallback, func(ctx context.Context) (string, error) {
		result, err := t.llm.Chat(ctx, t.buildRequest(g, texts))
		if err != nil {
			return "", err
		}
		return titleFromResponse(result)
	})

	if out.Fallback {
		t.logger.Warn("titling fell back to derived name",
			"category", g.Category, "fallback", fallback,
			"attempts", out.Attempts, "reason", out.Reason)
		return fallback
	}
	return out.Value
}

// FallbackTitle derives a title from the category and source file name.
func FallbackTitle(category, sourceName string) string {
	stem := strings.TrimSuffix(filepath.Base(sourceName), filepath.Ext(sourceName))
	if stem == "" || stem == "." {
		stem = "document"
	}
	return fmt.Sprintf("%s_%s", category, stem)
}

func (t *Titler) buildRequest(g batch.DocumentGroup, texts []extract.PageText) *providers.ChatRequest {
	var b strings.Builder
	for _, pt := range texts {
		if b.Len() >= maxTitleContextChars {
			break
		}
		b.WriteString(strings.TrimSpace(pt.Text))
		b.WriteString("\n")
	}
	excerpt := extract.Truncate(b.String(), maxTitleContextChars)

	prompt := fmt.Sprintf(
		"Suggest a short descriptive title (at most 8 words) for this %s document. "+
			"Use only the document's own content.\n\n%s",
		g.Category, excerpt)

	return &providers.ChatRequest{
		Messages: []providers.Message{
			providers.SystemMessage("You title scanned documents. Respond with JSON."),
			providers.UserMessage(prompt),
		},
		Temperature: 0.3,
		ResponseFormat: &providers.ResponseFormat{
			Name:   "document_title",
			Schema: json.RawMessage(titleSchema),
		},
	}
}

func titleFromResponse(result *providers.ChatResult) (string, error) {
	if !result.Success {
		return "", fmt.Errorf("%s: %s", result.ErrorType, result.ErrorMessage)
	}

	raw := result.ParsedJSON
	if raw == nil {
		parsed, err := providers.ParseStructuredJSON(result.Content)
		if err != nil {
			// Accept a short plain-text response as the title itself.
			line := firstLine(result.Content)
			if line == "" {
				return "", fmt.Errorf("empty title response")
			}
			return line, nil
		}
		raw = parsed
	}

	if err := providers.ValidateJSON(titleJSONSchema, raw); err == nil {
		var obj struct {
			Title string `json:"title"`
		}
		if uerr := json.Unmarshal(raw, &obj); uerr == nil && strings.TrimSpace(obj.Title) != "" {
			return strings.TrimSpace(obj.Title), nil
		}
	}

	var bare string
	if err := json.Unmarshal(raw, &bare); err == nil && strings.TrimSpace(bare) != "" {
		return strings.TrimSpace(bare), nil
	}
	return "", fmt.Errorf("unrecognized title response: %s", string(raw))
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.Trim(strings.TrimSpace(line), `"`)
		if line != "" {
			return line
		}
	}
	return ""
}
