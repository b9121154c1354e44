package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/supportagent/internal/store"
)

// NewProvider builds the Provider selected by cfg.Provider, using the
// credentials and base URLs from env, wrapped with logging.
func NewProvider(cfg ProviderConfig, env Environment, logger *zap.Logger, eventRepo store.EventRepo) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(AnthropicConfig{
			APIKey:  env.AnthropicAPIKey,
			Model:   cfg.ModelID,
			BaseURL: env.AnthropicBaseURL,
		})
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(OpenAIConfig{
			APIKey:  env.OpenAIAPIKey,
			Model:   cfg.ModelID,
			BaseURL: env.OpenAIBaseURL,
		})
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	return WithLogging(base, logger, eventRepo), nil
}
