package providers

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockLLM is an LLMClient for testing.
type MockLLM struct {
	// Configurable behavior
	ShouldFail   bool
	FailFirst    int // fail the first N requests, then succeed
	ResponseText string

	// ResponseFn, when set, computes the response per request.
	ResponseFn func(req *ChatRequest) (string, error)

	// State
	requestCount atomic.Int64
}

// NewMockLLM creates a mock client with sensible defaults.
func NewMockLLM() *MockLLM {
	return &MockLLM{ResponseText: "mock response"}
}

// Name returns the client identifier.
func (c *MockLLM) Name() string {
	return MockClientName
}

// Requests returns how many chat requests have been made.
func (c *MockLLM) Requests() int {
	return int(c.requestCount.Load())
}

// Chat sends a mock chat request.
func (c *MockLLM) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	result := &ChatResult{
		Provider:  MockClientName,
		ModelUsed: req.Model,
	}

	fail := c.ShouldFail || count <= int64(c.FailFirst)
	if fail {
		result.Success = false
		result.ErrorType = "mock_failure"
		result.ErrorMessage = "mock client configured to fail"
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("mock client configured to fail")
	}

	content := c.ResponseText
	if c.ResponseFn != nil {
		var err error
		content, err = c.ResponseFn(req)
		if err != nil {
			result.Success = false
			result.ErrorType = "mock_failure"
			result.ErrorMessage = err.Error()
			result.ExecutionTime = time.Since(start)
			return result, err
		}
	}

	result.Content = content
	result.Success = true
	result.ExecutionTime = time.Since(start)

	if req.ResponseFormat != nil {
		parsed, err := ParseStructuredJSON(content)
		if err != nil {
			result.Success = false
			result.ErrorType = "parse_error"
			result.ErrorMessage = err.Error()
			return result, err
		}
		result.ParsedJSON = parsed
	}

	return result, nil
}

// MockOCR is an OCREngine for testing.
type MockOCR struct {
	// TextByPage maps page numbers to recognized text.
	TextByPage map[int]string

	// Err, when set, fails every call.
	Err error

	requestCount atomic.Int64
}

// Name returns the engine identifier.
func (e *MockOCR) Name() string {
	return "mock-ocr"
}

// Requests returns how many recognize calls have been made.
func (e *MockOCR) Requests() int {
	return int(e.requestCount.Load())
}

// Recognize returns the configured text for a page.
func (e *MockOCR) Recognize(ctx context.Context, image []byte, pageNum int) (*OCRResult, error) {
	e.requestCount.Add(1)

	if e.Err != nil {
		return &OCRResult{PageNum: pageNum, Success: false, ErrorMessage: e.Err.Error()}, e.Err
	}

	return &OCRResult{
		Text:    e.TextByPage[pageNum],
		PageNum: pageNum,
		Success: true,
	}, nil
}
