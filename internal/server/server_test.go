package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/abhisek/supportagent/internal/llm"
	"github.com/abhisek/supportagent/internal/support"
)

const refundAnswer = `{"final_answer":"You can request a refund within 30 days from Settings > Billing.","confidence":0.85,"category":"billing","followups":["How long does a refund take?"],"citations":["Refund policy"],"requires_human":false}`

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// upstream is a fake Anthropic Messages API.
type upstream struct {
	server *httptest.Server
	calls  atomic.Int32
}

func newUpstream(t *testing.T, status int, body any) *upstream {
	t.Helper()
	u := &upstream{}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(u.server.Close)
	return u
}

func anthropicText(text string) map[string]any {
	return map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"model":       "claude-sonnet-4-20250514",
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 900, "output_tokens": 60},
	}
}

func anthropicErr(kind, msg string) map[string]any {
	return map[string]any{
		"type":  "error",
		"error": map[string]any{"type": kind, "message": msg},
	}
}

func newTestApp(t *testing.T, env llm.Environment) *fiber.App {
	t.Helper()
	logger := zaptest.NewLogger(t)
	gen := support.NewGenerator(env, func(cfg llm.ProviderConfig) (llm.Provider, error) {
		return llm.NewProvider(cfg, env, logger, nil)
	}, logger)
	return New(Options{
		Generator: gen,
		Logger:    logger,
		Now:       func() time.Time { return fixedNow },
	})
}

func postChat(t *testing.T, app *fiber.App, body string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func decodeEnvelope(t *testing.T, raw []byte) ErrorEnvelope {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return env
}

func TestChat_RefundQuestion(t *testing.T) {
	up := newUpstream(t, http.StatusOK, anthropicText(refundAnswer))
	app := newTestApp(t, llm.Environment{AnthropicAPIKey: "sk-ant", AnthropicBaseURL: up.server.URL})

	resp, raw := postChat(t, app, `{"query":"How do I get a refund?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var answer support.SupportAnswer
	require.NoError(t, json.Unmarshal(raw, &answer))
	assert.Equal(t, support.CategoryBilling, answer.Category)
	assert.False(t, answer.RequiresHuman)
	assert.GreaterOrEqual(t, answer.Confidence, 0.0)
	assert.LessOrEqual(t, answer.Confidence, 1.0)

	assert.NotEmpty(t, resp.Header.Get(HeaderRequestID))
	assert.Equal(t, support.PromptVersion, resp.Header.Get(HeaderPromptVersion))
	assert.Equal(t, "claude-sonnet-4-20250514", resp.Header.Get(HeaderModel))
	assert.EqualValues(t, 1, up.calls.Load())
}

func TestChat_MessagesBody(t *testing.T) {
	up := newUpstream(t, http.StatusOK, anthropicText(refundAnswer))
	app := newTestApp(t, llm.Environment{AnthropicAPIKey: "sk-ant", AnthropicBaseURL: up.server.URL})

	body := `{"messages":[
		{"id":"1","role":"user","content":"hello","timestamp":"2026-03-01T11:59:00Z"},
		{"id":"2","role":"assistant","content":"Hi! How can I help?","timestamp":"2026-03-01T11:59:01Z"},
		{"id":"3","role":"user","content":"How do I get a refund?","timestamp":"2026-03-01T11:59:30Z"}
	]}`
	resp, raw := postChat(t, app, body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.EqualValues(t, 1, up.calls.Load())
}

func TestChat_NoCredentials(t *testing.T) {
	app := newTestApp(t, llm.Environment{})

	resp, raw := postChat(t, app, `{"query":"How do I get a refund?"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env := decodeEnvelope(t, raw)
	assert.Equal(t, CodeValidation, env.Code)
	assert.Contains(t, env.Message, "ANTHROPIC_API_KEY")
	assert.Equal(t, resp.Header.Get(HeaderRequestID), env.RequestID)
	assert.True(t, env.Timestamp.Equal(fixedNow))
}

func TestChat_UpstreamAuthFailure(t *testing.T) {
	up := newUpstream(t, http.StatusUnauthorized, anthropicErr("authentication_error", "invalid x-api-key"))
	app := newTestApp(t, llm.Environment{AnthropicAPIKey: "sk-bad", AnthropicBaseURL: up.server.URL})

	resp, raw := postChat(t, app, `{"query":"How do I get a refund?"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	env := decodeEnvelope(t, raw)
	assert.Equal(t, CodeAI, env.Code)
	assert.NotContains(t, env.Message, "x-api-key", "upstream error text must not leak")
	assert.EqualValues(t, 1, up.calls.Load(), "auth failures are not retried")
}

func TestChat_UpstreamRateLimit(t *testing.T) {
	up := newUpstream(t, http.StatusTooManyRequests, anthropicErr("rate_limit_error", "slow down"))
	app := newTestApp(t, llm.Environment{AnthropicAPIKey: "sk-ant", AnthropicBaseURL: up.server.URL})

	resp, raw := postChat(t, app, `{"query":"refund?"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, CodeRateLimit, decodeEnvelope(t, raw).Code)
	assert.EqualValues(t, 1, up.calls.Load())
}

func TestChat_InvalidModelOutput(t *testing.T) {
	bad := `{"final_answer":"x","confidence":3,"category":"billing","followups":[],"citations":[],"requires_human":false}`
	up := newUpstream(t, http.StatusOK, anthropicText(bad))
	app := newTestApp(t, llm.Environment{AnthropicAPIKey: "sk-ant", AnthropicBaseURL: up.server.URL})

	resp, raw := postChat(t, app, `{"query":"refund?"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, CodeValidation, decodeEnvelope(t, raw).Code)
}

func TestChat_BadRequests(t *testing.T) {
	app := newTestApp(t, llm.Environment{AnthropicAPIKey: "sk-ant"})

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"query":`},
		{"empty query", `{"query":"   "}`},
		{"no fields", `{}`},
		{"messages without user turn", `{"messages":[{"role":"assistant","content":"hi"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := postChat(t, app, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, CodeValidation, decodeEnvelope(t, raw).Code)
		})
	}
}

func TestChat_UnversionedAlias(t *testing.T) {
	app := newTestApp(t, llm.Environment{})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"query":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t, llm.Environment{})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, CodeValidation, decodeEnvelope(t, raw).Code)
}

type panicGenerator struct{}

func (panicGenerator) Generate(context.Context, string) (*support.Result, error) { panic("boom") }
func (panicGenerator) Resolve() (llm.ProviderConfig, error)                     { return llm.ProviderConfig{}, nil }

func TestChat_PanicBecomesInternalError(t *testing.T) {
	app := New(Options{Generator: panicGenerator{}, Logger: zaptest.NewLogger(t)})

	resp, raw := postChat(t, app, `{"query":"refund?"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	env := decodeEnvelope(t, raw)
	assert.Equal(t, CodeInternal, env.Code)
	assert.NotEmpty(t, env.RequestID)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, llm.Environment{})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReady(t *testing.T) {
	failing := CheckFunc{CheckName: "store", Fn: func(context.Context) error { return errors.New("closed") }}
	passing := CheckFunc{CheckName: "provider", Fn: func(context.Context) error { return nil }}

	app := New(Options{Generator: panicGenerator{}, Checkers: []Checker{passing}})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	app = New(Options{Generator: panicGenerator{}, Checkers: []Checker{passing, failing}})
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "store: closed", body["details"])
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, llm.Environment{})
	postChat(t, app, `{"query":"refund?"}`)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `support_chat_requests_total{code="VALIDATION_ERROR"}`)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorCode
	}{
		{"config", &llm.ErrConfig{Reason: llm.ReasonNoProviderConfigured}, 400, CodeValidation},
		{"wrapped config", errors.Join(errors.New("ctx"), &llm.ErrConfig{Reason: llm.ReasonMissingCredential}), 400, CodeValidation},
		{"empty query", support.ErrEmptyQuery, 400, CodeValidation},
		{"invalid output", &llm.ErrInvalidResponse{Err: errors.New("bad")}, 502, CodeValidation},
		{"rate limit", &llm.ErrRateLimit{Err: errors.New("429")}, 429, CodeRateLimit},
		{"provider", &llm.ErrProvider{Provider: llm.ProviderOpenAI, Err: errors.New("eof")}, 502, CodeAI},
		{"truncated", &llm.ErrMaxTokensExceeded{}, 502, CodeAI},
		{"deadline", context.DeadlineExceeded, 504, CodeAI},
		{"internal", &internalError{msg: "encode", err: errors.New("x")}, 500, CodeInternal},
		{"unknown", errors.New("mystery"), 500, CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, msg := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, msg)
		})
	}
}

func TestReady_NoProvider(t *testing.T) {
	app := newTestApp(t, llm.Environment{})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
