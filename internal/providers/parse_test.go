package providers

import (
	"encoding/json"
	"testing"
)

func TestParseStructuredJSON_PlainObject(t *testing.T) {
	got, err := ParseStructuredJSON(`{"category":"invoices"}`)
	if err != nil {
		t.Fatalf("ParseStructuredJSON() error = %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(got, &parsed); err != nil {
		t.Fatalf("failed to unmarshal parsed JSON: %v", err)
	}
	if parsed["category"] != "invoices" {
		t.Fatalf("expected category invoices, got %#v", parsed)
	}
}

func TestParseStructuredJSON_StripsCodeFence(t *testing.T) {
	content := "```json\n{\"page_order\":[3,1,2]}\n```"
	got, err := ParseStructuredJSON(content)
	if err != nil {
		t.Fatalf("ParseStructuredJSON() error = %v", err)
	}

	var parsed map[string][]int
	if err := json.Unmarshal(got, &parsed); err != nil {
		t.Fatalf("failed to unmarshal parsed JSON: %v", err)
	}
	if len(parsed["page_order"]) != 3 || parsed["page_order"][0] != 3 {
		t.Fatalf("expected page_order [3 1 2], got %#v", parsed)
	}
}

func TestParseStructuredJSON_SurroundingProse(t *testing.T) {
	content := `Sure! Here is the classification: {"category": "receipts"} Hope that helps.`
	got, err := ParseStructuredJSON(content)
	if err != nil {
		t.Fatalf("ParseStructuredJSON() error = %v", err)
	}

	var parsed map[string]string
	if err := json.Unmarshal(got, &parsed); err != nil {
		t.Fatalf("failed to unmarshal parsed JSON: %v", err)
	}
	if parsed["category"] != "receipts" {
		t.Fatalf("expected receipts, got %#v", parsed)
	}
}

func TestParseStructuredJSON_FenceInsideProse(t *testing.T) {
	content := "The order is:\n```json\n[2, 1]\n```\nLet me know if you need anything else."
	got, err := ParseStructuredJSON(content)
	if err != nil {
		t.Fatalf("ParseStructuredJSON() error = %v", err)
	}

	var parsed []int
	if err := json.Unmarshal(got, &parsed); err != nil {
		t.Fatalf("failed to unmarshal parsed JSON: %v", err)
	}
	if len(parsed) != 2 || parsed[0] != 2 {
		t.Fatalf("expected [2 1], got %#v", parsed)
	}
}

func TestParseStructuredJSON_Unparseable(t *testing.T) {
	for _, content := range []string{"", "not json at all", "```\n\n```"} {
		if _, err := ParseStructuredJSON(content); err == nil {
			t.Errorf("expected error for %q", content)
		}
	}
}

func TestValidateJSON(t *testing.T) {
	schema := MustCompileSchema("classification.json", `{
		"type": "object",
		"properties": {"category": {"type": "string"}},
		"required": ["category"]
	}`)

	if err := ValidateJSON(schema, json.RawMessage(`{"category":"other"}`)); err != nil {
		t.Fatalf("ValidateJSON() error = %v", err)
	}
	if err := ValidateJSON(schema, json.RawMessage(`{"wrong":"shape"}`)); err == nil {
		t.Fatal("expected validation failure for missing category")
	}
}
