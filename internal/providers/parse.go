package providers

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ParseStructuredJSON recovers a JSON document from model output. Models
// asked for JSON still wrap it in markdown fences or explanatory prose
// often enough that the raw content is only the first candidate tried.
// The first candidate that unmarshals wins; it is re-marshaled so callers
// always see canonical JSON.
func ParseStructuredJSON(content string) (json.RawMessage, error) {
	for _, candidate := range jsonCandidates(content) {
		var doc any
		if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
			continue
		}
		normalized, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize structured output: %w", err)
		}
		return normalized, nil
	}
	return nil, fmt.Errorf("no parseable JSON in model output")
}

var fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\n(.*?)\n?```")

// jsonCandidates yields substrings of content worth attempting to parse,
// most literal first: the content itself, the body of a fenced code
// block, and the widest brace- or bracket-delimited span.
func jsonCandidates(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	candidates := []string{content}
	if m := fencedBlock.FindStringSubmatch(content); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	for _, pair := range [...]string{"{}", "[]"} {
		start := strings.IndexByte(content, pair[0])
		end := strings.LastIndexByte(content, pair[1])
		if start >= 0 && end > start {
			candidates = append(candidates, content[start:end+1])
		}
	}
	return candidates
}

// MustCompileSchema compiles a JSON schema used to validate structured
// model responses. Panics on an invalid schema; schemas are package
// constants, not runtime input.
func MustCompileSchema(name, schema string) *jsonschema.Schema {
	compiled, err := jsonschema.CompileString(name, schema)
	if err != nil {
		panic(fmt.Sprintf("invalid schema %s: %v", name, err))
	}
	return compiled
}

// ValidateJSON checks a parsed model response against a schema.
func ValidateJSON(schema *jsonschema.Schema, raw json.RawMessage) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
