package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func fakeOpenAI(t *testing.T, handler http.HandlerFunc) (*OpenAIProvider, *atomic.Int32) {
	t.Helper()
	return fakeOpenAIModel(t, "gpt-4o-mini", handler)
}

func fakeOpenAIModel(t *testing.T, model string, handler http.HandlerFunc) (*OpenAIProvider, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	p, err := NewOpenAIProvider(OpenAIConfig{
		APIKey:  "test-key",
		Model:   model,
		BaseURL: server.URL + "/v1",
	})
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}
	return p, &calls
}

func openAICompletion(content, finish string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1234567890,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": finish,
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     40,
			"completion_tokens": 25,
			"total_tokens":      65,
		},
	}
}

func openAIError(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"type": kind, "message": msg},
	})
}

func TestOpenAIProvider_HappyPath(t *testing.T) {
	var body map[string]any
	p, _ := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAICompletion(`{"name":"Alice","score":0.4,"tier":"free"}`, "stop"))
	})

	resp, err := p.Generate(context.Background(), Request{
		System:      "You are a support agent.",
		Messages:    []Message{{Role: RoleUser, Content: "How do I reset my password?"}},
		Schema:      testSchema(),
		MaxTokens:   256,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Usage.InputTokens != 40 || resp.Usage.OutputTokens != 25 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
	if resp.StopReason != "end" {
		t.Fatalf("expected stop reason 'end', got %q", resp.StopReason)
	}

	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(msgs))
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "system" {
		t.Fatalf("expected system message first, got %v", msgs[0])
	}
	format, _ := body["response_format"].(map[string]any)
	if format["type"] != "json_schema" {
		t.Fatalf("expected json_schema response format, got %v", body["response_format"])
	}
	if _, ok := body["top_p"]; ok {
		t.Fatal("top_p should be omitted when unset")
	}
	if temp, _ := body["temperature"].(float64); temp < 0.69 || temp > 0.71 {
		t.Fatalf("expected temperature 0.7, got %v", body["temperature"])
	}
}

func TestOpenAIProvider_ReasoningModelOmitsSampling(t *testing.T) {
	for _, model := range []string{"o3-mini", "o1", "o4-mini", "gpt-5-mini"} {
		t.Run(model, func(t *testing.T) {
			var body map[string]any
			p, calls := fakeOpenAIModel(t, model, func(w http.ResponseWriter, r *http.Request) {
				json.NewDecoder(r.Body).Decode(&body)
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(openAICompletion(`{"name":"Alice","score":0.4,"tier":"free"}`, "stop"))
			})

			_, err := p.Generate(context.Background(), Request{
				Messages:    []Message{{Role: RoleUser, Content: "test"}},
				Schema:      testSchema(),
				MaxTokens:   4096,
				Temperature: 0.7,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if calls.Load() != 1 {
				t.Fatalf("expected 1 upstream call, got %d", calls.Load())
			}
			if _, ok := body["temperature"]; ok {
				t.Fatalf("temperature should be omitted for %s, got %v", model, body["temperature"])
			}
			if _, ok := body["top_p"]; ok {
				t.Fatalf("top_p should be omitted for %s", model)
			}
			if body["max_completion_tokens"] != float64(4096) {
				t.Fatalf("expected max_completion_tokens 4096, got %v", body["max_completion_tokens"])
			}
		})
	}
}

func TestOpenAIProvider_ZeroTemperatureIsSent(t *testing.T) {
	var body map[string]any
	p, _ := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAICompletion(`{"name":"Alice","score":0.4,"tier":"free"}`, "stop"))
	})

	_, err := p.Generate(context.Background(), Request{
		Messages:    []Message{{Role: RoleUser, Content: "test"}},
		Schema:      testSchema(),
		MaxTokens:   100,
		Temperature: 0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	temp, ok := body["temperature"].(float64)
	if !ok {
		t.Fatalf("temperature should be sent when zero, body: %v", body)
	}
	if temp > 1e-6 {
		t.Fatalf("expected near-zero temperature, got %v", temp)
	}
}

func TestOpenAIProvider_TopPReplacesTemperature(t *testing.T) {
	var body map[string]any
	p, _ := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAICompletion(`{"name":"Alice","score":0.4,"tier":"free"}`, "stop"))
	})

	_, err := p.Generate(context.Background(), Request{
		Messages:    []Message{{Role: RoleUser, Content: "test"}},
		Schema:      testSchema(),
		MaxTokens:   100,
		Temperature: 0.7,
		TopP:        0.5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if top, _ := body["top_p"].(float64); top != 0.5 {
		t.Fatalf("expected top_p 0.5, got %v", body["top_p"])
	}
	if _, ok := body["temperature"]; ok {
		t.Fatalf("temperature should be omitted when top_p is set, got %v", body["temperature"])
	}
}

func TestOpenAIProvider_SchemaViolation(t *testing.T) {
	p, _ := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAICompletion(`not json`, "stop"))
	})

	_, err := p.Generate(context.Background(), Request{
		Messages:  []Message{{Role: RoleUser, Content: "test"}},
		Schema:    testSchema(),
		MaxTokens: 100,
	})
	var invErr *ErrInvalidResponse
	if !errors.As(err, &invErr) {
		t.Fatalf("expected ErrInvalidResponse, got: %T (%v)", err, err)
	}
}

func TestOpenAIProvider_Truncated(t *testing.T) {
	p, _ := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAICompletion(`{"name":"Al`, "length"))
	})

	_, err := p.Generate(context.Background(), Request{
		Messages:  []Message{{Role: RoleUser, Content: "test"}},
		MaxTokens: 10,
	})
	var mt *ErrMaxTokensExceeded
	if !errors.As(err, &mt) {
		t.Fatalf("expected ErrMaxTokensExceeded, got: %T (%v)", err, err)
	}
}

func TestOpenAIProvider_RateLimit(t *testing.T) {
	p, calls := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		openAIError(w, http.StatusTooManyRequests, "tokens", "Rate limit exceeded")
	})

	_, err := p.Generate(context.Background(), Request{
		Messages:  []Message{{Role: RoleUser, Content: "test"}},
		MaxTokens: 100,
	})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got: %T (%v)", err, err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", n)
	}
}

func TestOpenAIProvider_AuthFailure(t *testing.T) {
	p, calls := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		openAIError(w, http.StatusUnauthorized, "invalid_request_error", "Incorrect API key provided")
	})

	_, err := p.Generate(context.Background(), Request{
		Messages:  []Message{{Role: RoleUser, Content: "test"}},
		MaxTokens: 100,
	})
	var pe *ErrProvider
	if !errors.As(err, &pe) {
		t.Fatalf("expected ErrProvider, got: %T (%v)", err, err)
	}
	if pe.StatusCode != http.StatusUnauthorized || pe.Provider != ProviderOpenAI {
		t.Fatalf("unexpected provider error: %+v", pe)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", n)
	}
}

func TestOpenAIProvider_Identity(t *testing.T) {
	p := &OpenAIProvider{model: "gpt-4o-mini"}
	if p.ModelID() != "gpt-4o-mini" {
		t.Fatalf("expected 'gpt-4o-mini', got %q", p.ModelID())
	}
	if p.Name() != ProviderOpenAI {
		t.Fatalf("expected openai, got %q", p.Name())
	}
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(OpenAIConfig{Model: "gpt-4o"}); err == nil {
		t.Fatal("expected error without API key")
	}
}
