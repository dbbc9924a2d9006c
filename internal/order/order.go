// Package order asks the AI ordering collaborator for the correct
// reading order of a document group's pages. Ordering is best-effort: an
// invalid, partial, or failed response falls back to the original scan
// order, never to a batch failure.
package order

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/scansort/scansort/internal/batch"
	"github.com/scansort/scansort/internal/extract"
	"github.com/scansort/scansort/internal/providers"
	"github.com/scansort/scansort/internal/retry"
)

const orderingSchema = `{
	"type": "object",
	"properties": {
		"page_order": {
			"type": "array",
			"items": {"type": ["integer", "string"]}
		}
	},
	"required": ["page_order"],
	"additionalProperties": false
}`

var schema = providers.MustCompileSchema("ordering.json", orderingSchema)

// Resolver infers reading order for document groups.
type Resolver struct {
	llm    providers.LLMClient
	policy retry.Policy
	logger *slog.Logger
}

// New creates an order resolver.
func New(llm providers.LLMClient, policy retry.Policy, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		llm:    llm,
		policy: policy,
		logger: logger.With("component", "order"),
	}
}

// Resolve returns the group's pages in inferred reading order. The
// result is always a permutation of the group's original page set; any
// failure or invalid AI response yields the original order unchanged.
func (r *Resolver) Resolve(ctx context.Context, g batch.DocumentGroup, texts []extract.PageText) []int {
	original := append([]int(nil), g.Pages...)
	if len(original) <= 1 {
		return original
	}

	out := retry.Do(ctx, r.policy, original, func(ctx context.Context) ([]int, error) {
		result, err := r.llm.Chat(ctx, r.buildRequest(g, texts))
		if err != nil {
			return nil, err
		}

		ordered, err := parseOrder(result)
		if err != nil {
			return nil, err
		}
		if err := validatePermutation(ordered, original); err != nil {
			return nil, err
		}
		return ordered, nil
	})

	if out.Fallback {
		r.logger.Warn("ordering fell back to scan order",
			"category", g.Category, "pages", len(original),
			"attempts", out.Attempts, "reason", out.Reason)
		return original
	}
	return out.Value
}

func (r *Resolver) buildRequest(g batch.DocumentGroup, texts []extract.PageText) *providers.ChatRequest {
	prompt := fmt.Sprintf(
		"The following pages belong to one %s document but may have been "+
			"scanned out of order. Determine the correct reading order and "+
			"return every page number exactly once.\n\nPage numbers: %s\n\n%s",
		g.Category, joinInts(g.Pages), extract.Render(texts))

	return &providers.ChatRequest{
		Messages: []providers.Message{
			providers.SystemMessage("You determine the reading order of scanned document pages. Respond with JSON."),
			providers.UserMessage(prompt),
		},
		Temperature: 0.1,
		ResponseFormat: &providers.ResponseFormat{
			Name:   "page_ordering",
			Schema: json.RawMessage(orderingSchema),
		},
	}
}

var firstInt = regexp.MustCompile(`\d+`)

// parseOrder extracts a page-number list from the model response,
// tolerating integers, numeric strings, and forms like "Page 3".
func parseOrder(result *providers.ChatResult) ([]int, error) {
	if !result.Success {
		return nil, fmt.Errorf("%s: %s", result.ErrorType, result.ErrorMessage)
	}

	raw := result.ParsedJSON
	if raw == nil {
		parsed, err := providers.ParseStructuredJSON(result.Content)
		if err != nil {
			return nil, fmt.Errorf("unparseable ordering response: %w", err)
		}
		raw = parsed
	}

	var items []any
	if err := providers.ValidateJSON(schema, raw); err == nil {
		var obj struct {
			PageOrder []any `json:"page_order"`
		}
		if uerr := json.Unmarshal(raw, &obj); uerr == nil {
			items = obj.PageOrder
		}
	}
	if items == nil {
		// Tolerate a bare array response.
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("unrecognized ordering response shape: %s", string(raw))
		}
	}

	ordered := make([]int, 0, len(items))
	for _, item := range items {
		n, err := toPageNumber(item)
		if err != nil {
			return nil, err
		}
		ordered = append(ordered, n)
	}
	return ordered, nil
}

func toPageNumber(item any) (int, error) {
	switch v := item.(type) {
	case float64:
		return int(v), nil
	case string:
		match := firstInt.FindString(v)
		if match == "" {
			return 0, fmt.Errorf("no page number in %q", v)
		}
		n, err := strconv.Atoi(match)
		if err != nil {
			return 0, fmt.Errorf("bad page number in %q: %w", v, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported page number type %T", item)
	}
}

// validatePermutation requires the response to contain exactly the
// original page set, each page once.
func validatePermutation(ordered, original []int) error {
	if len(ordered) != len(original) {
		return fmt.Errorf("response has %d pages, group has %d", len(ordered), len(original))
	}

	want := make(map[int]struct{}, len(original))
	for _, n := range original {
		want[n] = struct{}{}
	}

	seen := make(map[int]struct{}, len(ordered))
	for _, n := range ordered {
		if _, ok := want[n]; !ok {
			return fmt.Errorf("page %d is not in the group", n)
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("page %d repeated in response", n)
		}
		seen[n] = struct{}{}
	}
	return nil
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
