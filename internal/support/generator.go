package support

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/supportagent/internal/llm"
)

// ErrEmptyQuery is returned when the user message is blank after trimming.
var ErrEmptyQuery = errors.New("query is empty")

// ProviderFactory builds the provider for a resolved configuration.
type ProviderFactory func(cfg llm.ProviderConfig) (llm.Provider, error)

// Result is a validated answer plus the settings that produced it.
type Result struct {
	Answer        *SupportAnswer
	Config        llm.ProviderConfig
	Model         string
	Usage         llm.Usage
	PromptVersion string
}

// Generator turns one user message into one validated SupportAnswer.
// It holds no per-request state and is safe for concurrent use.
type Generator struct {
	env         llm.Environment
	newProvider ProviderFactory
	logger      *zap.Logger
}

// NewGenerator creates a Generator over an environment snapshot.
func NewGenerator(env llm.Environment, newProvider ProviderFactory, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{env: env, newProvider: newProvider, logger: logger}
}

// Resolve reports the provider configuration the next Generate would use.
func (g *Generator) Resolve() (llm.ProviderConfig, error) {
	return llm.Resolve(g.env)
}

// Generate resolves the provider, sends the prompt with AnswerSchema, and
// returns the validated answer. Exactly one upstream call is made; failures
// are returned as-is and never retried.
func (g *Generator) Generate(ctx context.Context, userMessage string) (*Result, error) {
	prompt := BuildPrompt(userMessage)
	if prompt.User == "" {
		return nil, ErrEmptyQuery
	}

	cfg, err := llm.Resolve(g.env)
	if err != nil {
		return nil, fmt.Errorf("resolve provider: %w", err)
	}

	provider, err := g.newProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("build %s provider: %w", cfg.Provider, err)
	}

	resp, err := provider.Generate(ctx, llm.Request{
		System: prompt.System,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: prompt.User},
		},
		Schema:      AnswerSchema,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	})
	if err != nil {
		return nil, fmt.Errorf("generate support answer: %w", err)
	}

	answer, err := ParseAnswer(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parse support answer: %w", err)
	}

	g.logger.Debug("support answer generated",
		zap.String("request_id", llm.RequestIDFrom(ctx)),
		zap.String("category", string(answer.Category)),
		zap.Float64("confidence", answer.Confidence),
		zap.Bool("requires_human", answer.RequiresHuman),
	)

	model := resp.Model
	if model == "" {
		model = provider.ModelID()
	}

	return &Result{
		Answer:        answer,
		Config:        cfg,
		Model:         model,
		Usage:         resp.Usage,
		PromptVersion: PromptVersion,
	}, nil
}
