package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicModels maps friendly names to Anthropic model IDs.
var anthropicModels = map[string]string{
	"claude-sonnet": "claude-sonnet-4-20250514",
	"claude-haiku":  "claude-haiku-4-5-20251001",
}

// AnthropicConfig holds Anthropic client settings.
type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string // Optional. Override for proxies and tests.
}

// AnthropicProvider implements Provider using the Anthropic SDK.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProvider creates a new Anthropic provider. SDK-level retries
// are disabled; a failed call surfaces to the caller as-is.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := anthropic.NewClient(opts...)

	return &AnthropicProvider{
		client: &client,
		model:  resolveModel(cfg.Model, anthropicModels),
	}, nil
}

func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  buildAnthropicMessages(req.Messages),
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}

	if req.TopP > 0 {
		params.TopP = anthropic.Float(req.TopP)
	} else {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	if req.Schema != nil {
		params.OutputConfig = anthropic.OutputConfigParam{
			Format: anthropic.JSONOutputFormatParam{
				Schema: req.Schema.Definition,
			},
		}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, mapAnthropicError(err)
	}

	content, err := extractAnthropicContent(msg)
	if err != nil {
		return nil, err
	}

	stop := mapAnthropicStopReason(msg.StopReason)
	if stop == "max_tokens" {
		return nil, &ErrMaxTokensExceeded{Content: content}
	}

	if req.Schema != nil {
		if err := ValidateJSON(req.Schema, content); err != nil {
			return nil, err
		}
	}

	return &Response{
		Content:    content,
		Usage:      mapAnthropicUsage(msg.Usage),
		Model:      string(msg.Model),
		StopReason: stop,
	}, nil
}

func (p *AnthropicProvider) Name() ProviderName { return ProviderAnthropic }

func (p *AnthropicProvider) ModelID() string {
	return p.model
}

func buildAnthropicMessages(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, len(msgs))
	for i, m := range msgs {
		role := anthropic.MessageParamRoleUser
		if m.Role == RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}
		out[i] = anthropic.MessageParam{
			Role: role,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(m.Content),
			},
		}
	}
	return out
}

func extractAnthropicContent(msg *anthropic.Message) (json.RawMessage, error) {
	for _, block := range msg.Content {
		if block.Type == "text" {
			return json.RawMessage(block.Text), nil
		}
	}
	return nil, &ErrInvalidResponse{
		Err: fmt.Errorf("no text content in Anthropic response"),
	}
}

func mapAnthropicUsage(u anthropic.Usage) Usage {
	return Usage{
		InputTokens:  int(u.InputTokens),
		OutputTokens: int(u.OutputTokens),
		TotalTokens:  int(u.InputTokens + u.OutputTokens),
	}
}

func mapAnthropicStopReason(reason anthropic.StopReason) string {
	if reason == anthropic.StopReasonMaxTokens {
		return "max_tokens"
	}
	return "end"
}

func mapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return &ErrRateLimit{RetryAfter: retryAfter(apiErr.Response), Err: err}
		}
		return &ErrProvider{Provider: ProviderAnthropic, StatusCode: apiErr.StatusCode, Err: err}
	}
	return &ErrProvider{Provider: ProviderAnthropic, Err: err}
}

// retryAfter reads the Retry-After header (seconds) from a rate-limited response.
func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
