package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/supportagent/internal/llm"
)

// clearEnv blanks every key Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"NODE_ENV", "PORT", "LOG_LEVEL", "LOG_FORMAT", "SUPPORT_DB",
		"ANTHROPIC_API_KEY", "ANTHROPIC_BASE_URL", "OPENAI_API_KEY", "OPENAI_BASE_URL",
		"AI_MODEL", "AI_MAX_TOKENS", "AI_TEMPERATURE", "AI_TOP_P",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", s.Environment)
	assert.Equal(t, "8080", s.Port)
	assert.Equal(t, ":8080", s.ListenAddr())
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, "console", s.LogFormat)
	assert.Empty(t, s.DBPath)
	assert.Nil(t, s.AIMaxTokens)
	assert.Nil(t, s.AITemperature)
	assert.Nil(t, s.AITopP)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("NODE_ENV", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("OPENAI_API_KEY", "sk-openai-test")
	t.Setenv("AI_MODEL", "gpt-4o-mini")
	t.Setenv("AI_MAX_TOKENS", "1024")
	t.Setenv("AI_TEMPERATURE", "0.2")
	t.Setenv("AI_TOP_P", "0.9")

	s, err := Load("")
	require.NoError(t, err)

	assert.True(t, s.IsProduction())
	assert.Equal(t, "json", s.LogFormat)
	assert.Equal(t, ":9090", s.ListenAddr())

	env := s.LLMEnvironment()
	assert.Equal(t, "sk-ant-test", env.AnthropicAPIKey)
	assert.Equal(t, "sk-openai-test", env.OpenAIAPIKey)
	assert.Equal(t, "gpt-4o-mini", env.Model)
	require.NotNil(t, env.MaxTokens)
	assert.Equal(t, 1024, *env.MaxTokens)
	require.NotNil(t, env.Temperature)
	assert.InDelta(t, 0.2, *env.Temperature, 1e-9)
	require.NotNil(t, env.TopP)
	assert.InDelta(t, 0.9, *env.TopP, 1e-9)

	cfg, err := llm.Resolve(env)
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderOpenAI, cfg.Provider)
	assert.Equal(t, 1024, cfg.MaxTokens)
}

func TestLoad_InvalidNumericOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_MAX_TOKENS", "lots")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AI_MAX_TOKENS")
}

func TestLoad_ConfigFileWithEnvOverride(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"7000\"\nlog_level: debug\nai_model: claude-haiku\n"), 0o600))
	t.Setenv("LOG_LEVEL", "warn")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", s.Port)
	assert.Equal(t, "warn", s.LogLevel)
	assert.Equal(t, "claude-haiku", s.AIModel)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestListenAddr_HostPort(t *testing.T) {
	s := &Settings{Port: "127.0.0.1:8081"}
	assert.Equal(t, "127.0.0.1:8081", s.ListenAddr())
}
