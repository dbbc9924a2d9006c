// Package classify assigns a category to each page by asking the AI
// classification collaborator, with tolerant response handling and a
// deterministic "other" fallback.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/scansort/scansort/internal/batch"
	"github.com/scansort/scansort/internal/extract"
	"github.com/scansort/scansort/internal/providers"
	"github.com/scansort/scansort/internal/retry"
)

const classificationSchema = `{
	"type": "object",
	"properties": {
		"category": {"type": "string"}
	},
	"required": ["category"],
	"additionalProperties": false
}`

var schema = providers.MustCompileSchema("classification.json", classificationSchema)

const defaultMaxChars = 2000

// Classifier classifies pages into the configured category set.
type Classifier struct {
	llm        providers.LLMClient
	policy     retry.Policy
	categories []string
	maxChars   int
	logger     *slog.Logger
}

// New creates a classifier. maxChars caps how much page text is sent to
// the model; 0 uses the default.
func New(llm providers.LLMClient, policy retry.Policy, categories []string, maxChars int, logger *slog.Logger) *Classifier {
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		llm:        llm,
		policy:     policy,
		categories: categories,
		maxChars:   maxChars,
		logger:     logger.With("component", "classifier"),
	}
}

// ClassifyPage returns the category for one page. Pages without OCR text
// are assigned "other" without an AI call. AI failures degrade to
// "other" after the retry policy is exhausted; this method never fails.
func (c *Classifier) ClassifyPage(ctx context.Context, page extract.PageText) string {
	if strings.TrimSpace(page.Text) == "" {
		c.logger.Debug("empty page skips classification", "page", page.Number)
		return batch.CategoryOther
	}

	out := retry.Do(ctx, c.policy, batch.CategoryOther, func(ctx context.Context) (string, error) {
		result, err := c.llm.Chat(ctx, c.buildRequest(page))
		if err != nil {
			return "", err
		}

		raw, err := c.categoryFromResponse(result)
		if err != nil {
			return "", err
		}

		normalized, matched := Normalize(raw, c.categories)
		if !matched {
			c.logger.Debug("unmatched category falls back to other",
				"page", page.Number, "raw", raw)
		}
		return normalized, nil
	})

	if out.Fallback {
		c.logger.Warn("classification fell back to other",
			"page", page.Number, "attempts", out.Attempts, "reason", out.Reason)
	}
	return out.Value
}

func (c *Classifier) buildRequest(page extract.PageText) *providers.ChatRequest {
	text := extract.Truncate(page.Text, c.maxChars)

	prompt := fmt.Sprintf(
		"Classify this scanned document page into exactly one of these categories: %s.\n"+
			"If none fits, answer %q.\n\nPage text:\n%s",
		strings.Join(c.categories, ", "), batch.CategoryOther, text)

	return &providers.ChatRequest{
		Messages: []providers.Message{
			providers.SystemMessage("You are a document classification assistant. Respond with JSON."),
			providers.UserMessage(prompt),
		},
		Temperature: 0.1,
		ResponseFormat: &providers.ResponseFormat{
			Name:   "page_classification",
			Schema: json.RawMessage(classificationSchema),
		},
	}
}

// categoryFromResponse pulls a category string out of whatever shape the
// model returned: the requested {"category": ...} object, a bare JSON
// string, a one-element array, or plain text.
func (c *Classifier) categoryFromResponse(result *providers.ChatResult) (string, error) {
	if !result.Success {
		return "", fmt.Errorf("%s: %s", result.ErrorType, result.ErrorMessage)
	}

	raw := result.ParsedJSON
	if raw == nil {
		parsed, err := providers.ParseStructuredJSON(result.Content)
		if err != nil {
			// Last resort: treat the whole reply as the category name.
			line := strings.TrimSpace(result.Content)
			if line == "" {
				return "", fmt.Errorf("empty classification response")
			}
			return line, nil
		}
		raw = parsed
	}

	if err := providers.ValidateJSON(schema, raw); err == nil {
		var obj struct {
			Category string `json:"category"`
		}
		if uerr := json.Unmarshal(raw, &obj); uerr == nil && obj.Category != "" {
			return obj.Category, nil
		}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0], nil
	}

	return "", fmt.Errorf("unrecognized classification response shape: %s", string(raw))
}

// Normalize maps a raw model answer onto a configured category,
// tolerating case and pluralization differences. Unmatched input maps
// to "other".
func Normalize(raw string, categories []string) (string, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	cleaned = strings.Trim(cleaned, `"'.`)
	if cleaned == "" || cleaned == batch.CategoryOther {
		return batch.CategoryOther, cleaned == batch.CategoryOther
	}

	for _, cat := range categories {
		if cleaned == strings.ToLower(cat) {
			return cat, true
		}
	}

	for _, cat := range categories {
		if pluralEqual(cleaned, strings.ToLower(cat)) {
			return cat, true
		}
	}

	return batch.CategoryOther, false
}

// pluralEqual reports whether a and b differ only by an s/es suffix.
func pluralEqual(a, b string) bool {
	for _, suffix := range []string{"s", "es"} {
		if a+suffix == b || b+suffix == a {
			return true
		}
	}
	return false
}
