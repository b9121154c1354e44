package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// openaiModels maps friendly names to OpenAI model IDs.
var openaiModels = map[string]string{
	"gpt-4o":      "gpt-4o",
	"gpt-4o-mini": "gpt-4o-mini",
}

// OpenAIConfig holds OpenAI client settings.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string // Optional. Override for compatible APIs and tests.
}

// OpenAIProvider implements Provider using the OpenAI SDK.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(config),
		model:  resolveModel(cfg.Model, openaiModels),
	}, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:               p.model,
		Messages:            buildOpenAIMessages(req),
		MaxCompletionTokens: req.MaxTokens,
	}

	if !fixedSampling(p.model) {
		switch {
		case req.TopP > 0:
			chatReq.TopP = float32(req.TopP)
		case req.Temperature == 0:
			// The SDK drops a zero temperature as unset.
			chatReq.Temperature = math.SmallestNonzeroFloat32
		default:
			chatReq.Temperature = float32(req.Temperature)
		}
	}

	if req.Schema != nil {
		schemaBytes, err := json.Marshal(req.Schema.Definition)
		if err != nil {
			return nil, fmt.Errorf("marshal schema: %w", err)
		}

		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        req.Schema.Name,
				Description: req.Schema.Description,
				Schema:      json.RawMessage(schemaBytes),
				Strict:      true,
			},
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, mapOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, &ErrInvalidResponse{
			Err: fmt.Errorf("no choices in OpenAI response"),
		}
	}

	content := json.RawMessage(resp.Choices[0].Message.Content)

	stop := mapOpenAIStopReason(resp.Choices[0].FinishReason)
	if stop == "max_tokens" {
		return nil, &ErrMaxTokensExceeded{Content: content}
	}

	if req.Schema != nil {
		if err := ValidateJSON(req.Schema, content); err != nil {
			return nil, err
		}
	}

	return &Response{
		Content: content,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
		Model:      resp.Model,
		StopReason: stop,
	}, nil
}

func (p *OpenAIProvider) Name() ProviderName { return ProviderOpenAI }

func (p *OpenAIProvider) ModelID() string {
	return p.model
}

func buildOpenAIMessages(req Request) []openai.ChatCompletionMessage {
	var messages []openai.ChatCompletionMessage

	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	return messages
}

// fixedSampling reports whether model only accepts the default temperature
// and top_p. The prefixes follow the SDK's reasoning model validator, which
// rejects such requests before they are sent.
func fixedSampling(model string) bool {
	m := strings.ToLower(model)
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

func mapOpenAIStopReason(reason openai.FinishReason) string {
	if reason == openai.FinishReasonLength {
		return "max_tokens"
	}
	return "end"
}

func mapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return &ErrRateLimit{Err: err}
		}
		return &ErrProvider{Provider: ProviderOpenAI, StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ErrProvider{Provider: ProviderOpenAI, StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return &ErrProvider{Provider: ProviderOpenAI, Err: err}
}
