package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/abhisek/supportagent/internal/llm"
)

// Settings is the process configuration. It is loaded once at startup and
// read-only afterwards.
type Settings struct {
	// Environment is informational (development, production, test).
	Environment string `mapstructure:"node_env"`
	Port        string `mapstructure:"port"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`

	// DBPath enables the model call event log when set.
	DBPath string `mapstructure:"support_db"`

	AnthropicAPIKey  string `mapstructure:"anthropic_api_key"`
	AnthropicBaseURL string `mapstructure:"anthropic_base_url"`
	OpenAIAPIKey     string `mapstructure:"openai_api_key"`
	OpenAIBaseURL    string `mapstructure:"openai_base_url"`
	AIModel          string `mapstructure:"ai_model"`

	AIMaxTokens   *int     `mapstructure:"-"`
	AITemperature *float64 `mapstructure:"-"`
	AITopP        *float64 `mapstructure:"-"`
}

var keys = []string{
	"node_env", "port", "log_level", "log_format", "support_db",
	"anthropic_api_key", "anthropic_base_url",
	"openai_api_key", "openai_base_url",
	"ai_model", "ai_max_tokens", "ai_temperature", "ai_top_p",
}

// Load reads settings from an optional .env file, an optional config file,
// and the process environment. Environment variables win.
func Load(configFile string) (*Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("node_env", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")

	for _, k := range keys {
		if err := v.BindEnv(k, strings.ToUpper(k)); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := parseOverrides(v, &s); err != nil {
		return nil, err
	}
	applyDefaults(&s)

	return &s, nil
}

func parseOverrides(v *viper.Viper, s *Settings) error {
	if raw := strings.TrimSpace(v.GetString("ai_max_tokens")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("AI_MAX_TOKENS: %w", err)
		}
		s.AIMaxTokens = &n
	}
	if raw := strings.TrimSpace(v.GetString("ai_temperature")); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("AI_TEMPERATURE: %w", err)
		}
		s.AITemperature = &f
	}
	if raw := strings.TrimSpace(v.GetString("ai_top_p")); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("AI_TOP_P: %w", err)
		}
		s.AITopP = &f
	}
	return nil
}

func applyDefaults(s *Settings) {
	if s.LogFormat == "" {
		s.LogFormat = "console"
		if s.IsProduction() {
			s.LogFormat = "json"
		}
	}
}

// IsProduction reports whether NODE_ENV is production.
func (s *Settings) IsProduction() bool {
	return strings.EqualFold(s.Environment, "production")
}

// LLMEnvironment returns the snapshot handed to the model resolver.
func (s *Settings) LLMEnvironment() llm.Environment {
	return llm.Environment{
		AnthropicAPIKey:  s.AnthropicAPIKey,
		AnthropicBaseURL: s.AnthropicBaseURL,
		OpenAIAPIKey:     s.OpenAIAPIKey,
		OpenAIBaseURL:    s.OpenAIBaseURL,
		Model:            s.AIModel,
		MaxTokens:        s.AIMaxTokens,
		Temperature:      s.AITemperature,
		TopP:             s.AITopP,
	}
}

// ListenAddr returns the HTTP listen address for Port.
func (s *Settings) ListenAddr() string {
	if strings.Contains(s.Port, ":") {
		return s.Port
	}
	return ":" + s.Port
}
