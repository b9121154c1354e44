package llm

import (
	"encoding/json"
	"fmt"
	"time"
)

// ConfigReason classifies an ErrConfig.
type ConfigReason string

const (
	ReasonNoProviderConfigured ConfigReason = "NoProviderConfigured"
	ReasonMissingCredential    ConfigReason = "MissingCredential"
	ReasonInvalidSetting       ConfigReason = "InvalidSetting"
)

// ErrConfig indicates the environment cannot produce a usable provider.
type ErrConfig struct {
	Reason   ConfigReason
	Provider ProviderName
	Model    string
	Setting  string
	Detail   string
}

func (e *ErrConfig) Error() string {
	switch e.Reason {
	case ReasonNoProviderConfigured:
		return "no AI provider configured: set ANTHROPIC_API_KEY or OPENAI_API_KEY"
	case ReasonMissingCredential:
		return fmt.Sprintf("model %q requires the %s provider, but its API key is not set", e.Model, e.Provider)
	case ReasonInvalidSetting:
		if e.Detail != "" {
			return fmt.Sprintf("invalid value for %s: %s", e.Setting, e.Detail)
		}
		return fmt.Sprintf("invalid value for %s", e.Setting)
	}
	return fmt.Sprintf("AI configuration error: %s", e.Reason)
}

// ErrProvider is an opaque upstream failure: auth, network, server error.
// StatusCode is zero when no HTTP response was received.
type ErrProvider struct {
	Provider   ProviderName
	StatusCode int
	Err        error
}

func (e *ErrProvider) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s provider error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
}

func (e *ErrProvider) Unwrap() error { return e.Err }

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates the model returned content that does not
// conform to the requested schema.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid model response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded indicates the response was truncated because it
// hit the MaxTokens limit.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "model response truncated: max tokens exceeded"
}
