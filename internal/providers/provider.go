// Package providers defines the external AI and OCR collaborators and
// their concrete clients. All pipeline stages talk to these interfaces;
// concrete clients are injected at construction time.
package providers

import (
	"context"
	"encoding/json"
	"time"
)

// LLMClient is the interface for chat/completion requests.
type LLMClient interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier (e.g., "openai").
	Name() string
}

// OCREngine extracts text from a rendered page image. Separate from LLM
// because it has different failure modes and result handling (plain text
// vs structured responses).
type OCREngine interface {
	// Name returns the engine identifier (e.g., "tesseract").
	Name() string

	// Recognize extracts text from a page image.
	Recognize(ctx context.Context, image []byte, pageNum int) (*OCRResult, error)
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// ResponseFormat requests structured JSON output from the model.
type ResponseFormat struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
}

// ChatRequest is a request to an LLM.
type ChatRequest struct {
	Messages []Message `json:"messages"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	// Generation parameters
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// Structured output
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ChatResult is the complete response from an LLM call.
type ChatResult struct {
	Content    string          `json:"content"`
	ParsedJSON json.RawMessage `json:"parsed_json,omitempty"` // set when ResponseFormat was requested

	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	Provider      string        `json:"provider"`
	ModelUsed     string        `json:"model_used"`
	ExecutionTime time.Duration `json:"execution_time"`

	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// OCRResult is the response from an OCR engine for one page.
type OCRResult struct {
	Text          string        `json:"text"`
	PageNum       int           `json:"page_num"`
	Success       bool          `json:"success"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	ExecutionTime time.Duration `json:"execution_time"`
}
