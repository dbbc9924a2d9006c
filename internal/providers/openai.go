package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-4o-mini"
)

// OpenAIConfig holds configuration for the OpenAI-compatible chat client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // override for OpenAI-compatible gateways
	Model   string
	Timeout time.Duration
}

// OpenAIClient implements LLMClient using the OpenAI chat completions API.
type OpenAIClient struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIClient creates a new OpenAI chat client.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIName
}

// Chat sends a chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.ResponseFormat != nil {
		var schema any
		if err := json.Unmarshal(req.ResponseFormat.Schema, &schema); err != nil {
			return nil, fmt.Errorf("openai: invalid response schema: %w", err)
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.ResponseFormat.Name,
					Schema: schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(callCtx, params)
	if err != nil {
		return &ChatResult{
			Provider:      OpenAIName,
			ModelUsed:     model,
			ExecutionTime: time.Since(start),
			Success:       false,
			ErrorType:     "request_error",
			ErrorMessage:  err.Error(),
		}, fmt.Errorf("openai chat request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return &ChatResult{
			Provider:      OpenAIName,
			ModelUsed:     model,
			ExecutionTime: time.Since(start),
			Success:       false,
			ErrorType:     "empty_response",
			ErrorMessage:  "no choices returned",
		}, fmt.Errorf("openai chat returned no choices")
	}

	result := &ChatResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
		Provider:         OpenAIName,
		ModelUsed:        model,
		ExecutionTime:    time.Since(start),
		Success:          true,
	}

	if req.ResponseFormat != nil {
		parsed, perr := ParseStructuredJSON(result.Content)
		if perr != nil {
			result.Success = false
			result.ErrorType = "parse_error"
			result.ErrorMessage = perr.Error()
			return result, fmt.Errorf("openai structured output: %w", perr)
		}
		result.ParsedJSON = parsed
	}

	return result, nil
}
