package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestMockProvider_ReturnsCannedResponses(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockResponse{Content: json.RawMessage(`{"b":2}`)},
	)

	resp1, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "first"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp1.Content) != `{"a":1}` {
		t.Fatalf("expected {\"a\":1}, got %s", resp1.Content)
	}
	if resp1.Usage.InputTokens != 10 {
		t.Fatalf("expected 10 input tokens, got %d", resp1.Usage.InputTokens)
	}

	resp2, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "second"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp2.Content) != `{"b":2}` {
		t.Fatalf("expected {\"b\":2}, got %s", resp2.Content)
	}
}

func TestMockProvider_EmptyQueueReturnsProviderError(t *testing.T) {
	mock := NewMockProvider()
	_, err := mock.Generate(context.Background(), Request{})
	var pe *ErrProvider
	if !errors.As(err, &pe) {
		t.Fatalf("expected ErrProvider, got: %T", err)
	}
	if pe.Provider != ProviderMock {
		t.Fatalf("expected mock provider, got %q", pe.Provider)
	}
}

func TestMockProvider_ValidatesAgainstSchema(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{"name":"x","score":2}`)})
	_, err := mock.Generate(context.Background(), Request{Schema: testSchema()})
	var invErr *ErrInvalidResponse
	if !errors.As(err, &invErr) {
		t.Fatalf("expected ErrInvalidResponse, got: %v", err)
	}
}

func TestMockProvider_RecordsCalls(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	mock.AddResponse(MockResponse{Content: json.RawMessage(`{}`)})

	req := Request{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}
	_, _ = mock.Generate(context.Background(), req)
	_, _ = mock.Generate(context.Background(), req)

	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.CallCount())
	}
	if mock.Calls[0].System != "sys" {
		t.Fatalf("expected system 'sys', got %q", mock.Calls[0].System)
	}
}

func TestMockProvider_ReturnsConfiguredError(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrRateLimit{}})

	_, err := mock.Generate(context.Background(), Request{})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got: %T", err)
	}
}

func TestMockProvider_Identity(t *testing.T) {
	mock := NewMockProvider()
	if mock.ModelID() != "mock" || mock.Name() != ProviderMock {
		t.Fatalf("unexpected identity %q/%q", mock.Name(), mock.ModelID())
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if id := RequestIDFrom(ctx); id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}

	ctx = WithRequestID(ctx, "req-123")
	if id := RequestIDFrom(ctx); id != "req-123" {
		t.Fatalf("expected 'req-123', got %q", id)
	}
}

func TestErrProvider_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&ErrProvider{Provider: ProviderOpenAI, Err: cause})
	if !errors.Is(err, cause) {
		t.Fatal("expected ErrProvider to unwrap to its cause")
	}
}
