package support

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/abhisek/supportagent/internal/llm"
)

const refundAnswer = `{"final_answer":"Go to Settings > Billing > Request refund.","confidence":0.85,"category":"billing","followups":["How long does a refund take?"],"citations":["Refund policy"],"requires_human":false}`

// mockFactory hands out one MockProvider and records the configs it saw.
type mockFactory struct {
	mock    *llm.MockProvider
	configs []llm.ProviderConfig
}

func (f *mockFactory) build(cfg llm.ProviderConfig) (llm.Provider, error) {
	f.configs = append(f.configs, cfg)
	return f.mock, nil
}

func newTestGenerator(t *testing.T, env llm.Environment, responses ...llm.MockResponse) (*Generator, *mockFactory) {
	f := &mockFactory{mock: llm.NewMockProvider(responses...)}
	return NewGenerator(env, f.build, zaptest.NewLogger(t)), f
}

var anthropicEnv = llm.Environment{AnthropicAPIKey: "sk-ant"}

func TestGenerator_HappyPath(t *testing.T) {
	g, f := newTestGenerator(t, anthropicEnv, llm.MockResponse{
		Content: json.RawMessage(refundAnswer),
		Usage:   llm.Usage{InputTokens: 900, OutputTokens: 60, TotalTokens: 960},
	})

	res, err := g.Generate(context.Background(), "  How do I get a refund?  ")
	require.NoError(t, err)

	assert.Equal(t, CategoryBilling, res.Answer.Category)
	assert.False(t, res.Answer.RequiresHuman)
	assert.InDelta(t, 0.85, res.Answer.Confidence, 1e-9)
	assert.Equal(t, PromptVersion, res.PromptVersion)
	assert.Equal(t, "mock", res.Model)
	assert.Equal(t, 960, res.Usage.TotalTokens)
	assert.Equal(t, llm.ProviderAnthropic, res.Config.Provider)

	require.Equal(t, 1, f.mock.CallCount())
	req := f.mock.Calls[0]
	assert.Equal(t, SystemPrompt, req.System)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, llm.RoleUser, req.Messages[0].Role)
	assert.Equal(t, "How do I get a refund?", req.Messages[0].Content)
	assert.Same(t, AnswerSchema, req.Schema)
	assert.Equal(t, llm.DefaultMaxTokens, req.MaxTokens)
	assert.Equal(t, llm.DefaultTemperature, req.Temperature)
}

func TestGenerator_PassesResolvedSettings(t *testing.T) {
	maxTokens, topP := 512, 0.9
	env := llm.Environment{
		OpenAIAPIKey: "sk-openai",
		Model:        "gpt-4o-mini",
		MaxTokens:    &maxTokens,
		TopP:         &topP,
	}
	g, f := newTestGenerator(t, env, llm.MockResponse{Content: json.RawMessage(refundAnswer)})

	_, err := g.Generate(context.Background(), "refund?")
	require.NoError(t, err)

	require.Len(t, f.configs, 1)
	assert.Equal(t, llm.ProviderOpenAI, f.configs[0].Provider)
	assert.Equal(t, "gpt-4o-mini", f.configs[0].ModelID)

	req := f.mock.Calls[0]
	assert.Equal(t, 512, req.MaxTokens)
	assert.Equal(t, 0.9, req.TopP)
}

func TestGenerator_RejectsTemperatureWithTopP(t *testing.T) {
	temp, topP := 0.2, 0.9
	env := llm.Environment{
		AnthropicAPIKey: "sk-ant",
		Model:           "claude-haiku",
		Temperature:     &temp,
		TopP:            &topP,
	}
	g, f := newTestGenerator(t, env)

	_, err := g.Generate(context.Background(), "refund?")
	var cfgErr *llm.ErrConfig
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "AI_TOP_P", cfgErr.Setting)
	assert.Empty(t, f.configs, "no provider should be built for a rejected config")
}

func TestGenerator_EmptyQuery(t *testing.T) {
	g, f := newTestGenerator(t, anthropicEnv)

	_, err := g.Generate(context.Background(), " \n\t ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Empty(t, f.configs, "no provider should be built for an empty query")
}

func TestGenerator_NoCredentials(t *testing.T) {
	g, f := newTestGenerator(t, llm.Environment{})

	res, err := g.Generate(context.Background(), "How do I get a refund?")
	assert.Nil(t, res)

	var cfgErr *llm.ErrConfig
	require.True(t, errors.As(err, &cfgErr), "expected ErrConfig, got %v", err)
	assert.Equal(t, llm.ReasonNoProviderConfigured, cfgErr.Reason)
	assert.Empty(t, f.configs)
}

func TestGenerator_ProviderErrorNotRetried(t *testing.T) {
	authErr := &llm.ErrProvider{Provider: llm.ProviderAnthropic, StatusCode: 401, Err: errors.New("invalid x-api-key")}
	g, f := newTestGenerator(t, anthropicEnv,
		llm.MockResponse{Err: authErr},
		llm.MockResponse{Content: json.RawMessage(refundAnswer)},
	)

	_, err := g.Generate(context.Background(), "refund?")
	assert.ErrorIs(t, err, authErr)
	assert.Equal(t, 1, f.mock.CallCount())
}

func TestGenerator_RejectsInvalidOutput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"confidence out of bounds", `{"final_answer":"x","confidence":1.2,"category":"billing","followups":[],"citations":[],"requires_human":false}`},
		{"unknown category", `{"final_answer":"x","confidence":0.5,"category":"refunds","followups":[],"citations":[],"requires_human":false}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, f := newTestGenerator(t, anthropicEnv, llm.MockResponse{Content: json.RawMessage(tt.raw)})

			res, err := g.Generate(context.Background(), "refund?")
			assert.Nil(t, res)

			var invErr *llm.ErrInvalidResponse
			assert.True(t, errors.As(err, &invErr), "expected ErrInvalidResponse, got %v", err)
			assert.Equal(t, 1, f.mock.CallCount())
		})
	}
}

func TestGenerator_FactoryError(t *testing.T) {
	boom := errors.New("boom")
	g := NewGenerator(anthropicEnv, func(llm.ProviderConfig) (llm.Provider, error) {
		return nil, boom
	}, nil)

	_, err := g.Generate(context.Background(), "refund?")
	assert.ErrorIs(t, err, boom)
}

func TestGenerator_Resolve(t *testing.T) {
	g, _ := newTestGenerator(t, llm.Environment{OpenAIAPIKey: "sk-openai"})
	cfg, err := g.Resolve()
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderOpenAI, cfg.Provider)
}
