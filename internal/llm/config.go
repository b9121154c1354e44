package llm

import (
	"strings"
)

// ProviderName tags which hosted API serves a request.
type ProviderName string

const (
	ProviderAnthropic ProviderName = "anthropic"
	ProviderOpenAI    ProviderName = "openai"
	ProviderMock      ProviderName = "mock"
)

// Generation defaults applied when the environment does not override them.
const (
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.7
)

// Default model per provider. Friendly aliases are expanded by resolveModel.
const (
	defaultAnthropicModel = "claude-sonnet"
	defaultOpenAIModel    = "gpt-4o"
)

// Model families used to infer the provider from an explicit AI_MODEL.
// claude* is anthropic. gpt* and chatgpt* are openai chat models.
// The o1, o3 and o4 reasoning series match only as a whole id or an id
// followed by "-", so "o1-preview" and "o3" are openai but "o30x" is not.
var (
	anthropicPrefixes = []string{"claude"}
	openaiPrefixes    = []string{"gpt", "chatgpt"}
	reasoningFamilies = []string{"o1", "o3", "o4"}
)

// Environment is an immutable snapshot of the settings the resolver reads.
// It is built once at startup and passed in explicitly; nothing in this
// package reads process environment.
type Environment struct {
	AnthropicAPIKey  string
	AnthropicBaseURL string
	OpenAIAPIKey     string
	OpenAIBaseURL    string

	// Model is the optional explicit model id (AI_MODEL).
	Model string

	// Overrides for generation settings. Nil keeps the default.
	MaxTokens   *int
	Temperature *float64
	TopP        *float64
}

// HasCredential reports whether an API key is configured for p.
func (e Environment) HasCredential(p ProviderName) bool {
	switch p {
	case ProviderAnthropic:
		return e.AnthropicAPIKey != ""
	case ProviderOpenAI:
		return e.OpenAIAPIKey != ""
	}
	return false
}

// ProviderConfig is the resolved provider, model, and generation settings
// for one request.
type ProviderConfig struct {
	Provider    ProviderName
	ModelID     string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Resolve picks the provider and model for env.
//
// Policy, in order: no credentials is an error; an explicit model id with a
// known prefix selects its provider; otherwise anthropic wins when its key
// is present, else openai. The selected provider's credential must exist.
func Resolve(env Environment) (ProviderConfig, error) {
	if !env.HasCredential(ProviderAnthropic) && !env.HasCredential(ProviderOpenAI) {
		return ProviderConfig{}, &ErrConfig{Reason: ReasonNoProviderConfigured}
	}

	model := strings.TrimSpace(env.Model)
	provider, inferred := InferProvider(model)
	if !inferred {
		provider = ProviderOpenAI
		if env.HasCredential(ProviderAnthropic) {
			provider = ProviderAnthropic
		}
	}

	if !env.HasCredential(provider) {
		return ProviderConfig{}, &ErrConfig{
			Reason:   ReasonMissingCredential,
			Provider: provider,
			Model:    model,
		}
	}

	if model == "" {
		model = defaultModel(provider)
	}

	cfg := ProviderConfig{
		Provider:    provider,
		ModelID:     resolveModel(model, modelAliases(provider)),
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}

	if env.MaxTokens != nil {
		if *env.MaxTokens <= 0 {
			return ProviderConfig{}, &ErrConfig{Reason: ReasonInvalidSetting, Setting: "AI_MAX_TOKENS"}
		}
		cfg.MaxTokens = *env.MaxTokens
	}
	if env.Temperature != nil {
		if *env.Temperature < 0 || *env.Temperature > 1 {
			return ProviderConfig{}, &ErrConfig{Reason: ReasonInvalidSetting, Setting: "AI_TEMPERATURE"}
		}
		cfg.Temperature = *env.Temperature
	}
	if env.TopP != nil {
		if *env.TopP <= 0 || *env.TopP > 1 {
			return ProviderConfig{}, &ErrConfig{Reason: ReasonInvalidSetting, Setting: "AI_TOP_P"}
		}
		// Providers sample with one knob or the other; newer Claude
		// models reject requests carrying both.
		if env.Temperature != nil {
			return ProviderConfig{}, &ErrConfig{
				Reason:  ReasonInvalidSetting,
				Setting: "AI_TOP_P",
				Detail:  "cannot be combined with AI_TEMPERATURE",
			}
		}
		cfg.TopP = *env.TopP
	}

	return cfg, nil
}

// InferProvider maps a model id to its provider by lexical prefix.
// The second result is false when no known prefix matches.
func InferProvider(model string) (ProviderName, bool) {
	m := strings.ToLower(model)
	for _, p := range anthropicPrefixes {
		if strings.HasPrefix(m, p) {
			return ProviderAnthropic, true
		}
	}
	for _, p := range openaiPrefixes {
		if strings.HasPrefix(m, p) {
			return ProviderOpenAI, true
		}
	}
	if isReasoningModel(m) {
		return ProviderOpenAI, true
	}
	return "", false
}

// isReasoningModel reports whether model belongs to the openai o-series.
func isReasoningModel(model string) bool {
	m := strings.ToLower(model)
	for _, f := range reasoningFamilies {
		if m == f || strings.HasPrefix(m, f+"-") {
			return true
		}
	}
	return false
}

func defaultModel(p ProviderName) string {
	if p == ProviderOpenAI {
		return defaultOpenAIModel
	}
	return defaultAnthropicModel
}

func modelAliases(p ProviderName) map[string]string {
	if p == ProviderOpenAI {
		return openaiModels
	}
	return anthropicModels
}

// resolveModel maps a friendly model name to a provider model ID.
// Unknown names pass through so direct model IDs work.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	return name
}
