package llm

import (
	"context"
	"encoding/json"
)

// Provider is the single abstraction over hosted model APIs.
// Implementations request native structured output when a Schema is set
// and return content that has already been validated against it.
type Provider interface {
	// Generate sends one system+user exchange and returns the model output.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider tag ("anthropic", "openai", "mock").
	Name() ProviderName

	// ModelID returns the concrete model identifier requests are sent to.
	ModelID() string
}

// Request describes what to send to the model.
type Request struct {
	// System is the system prompt.
	System string

	// Messages holds the turns sent after the system prompt. Support
	// queries are single-turn, so this is normally one user message.
	Messages []Message

	// Schema is the JSON Schema the response must conform to.
	// When nil, the response Content is the raw model text.
	Schema *Schema

	MaxTokens   int
	Temperature float64

	// TopP is nucleus sampling; zero leaves the provider default. When set,
	// it is sent in place of Temperature.
	TopP float64
}

// Message is a single turn in a Request.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the model.
type Schema struct {
	// Name identifies the schema (OpenAI response format name, cache key).
	// Kebab-case, e.g. "support-answer".
	Name string

	Description string

	// Definition is the JSON Schema document as a map.
	Definition map[string]any
}

// Response holds the model output.
type Response struct {
	// Content is the validated JSON object when a Schema was requested,
	// otherwise the raw text.
	Content json.RawMessage

	Usage Usage

	// Model is the model that actually served the request.
	Model string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
