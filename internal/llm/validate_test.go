package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func testSchema() *Schema {
	return &Schema{
		Name:        "test-object",
		Description: "A test object",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":  map[string]any{"type": "string"},
				"score": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
				"tier":  map[string]any{"type": "string", "enum": []any{"free", "pro", "team"}},
			},
			"required":             []any{"name", "score"},
			"additionalProperties": false,
		},
	}
}

func TestValidateJSON_ValidJSON(t *testing.T) {
	raw := json.RawMessage(`{"name":"Alice","score":0.85,"tier":"pro"}`)
	err := ValidateJSON(testSchema(), raw)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidateJSON_ValidWithoutOptional(t *testing.T) {
	raw := json.RawMessage(`{"name":"Bob","score":0}`)
	err := ValidateJSON(testSchema(), raw)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidateJSON_MissingRequired(t *testing.T) {
	raw := json.RawMessage(`{"name":"Charlie"}`)
	err := ValidateJSON(testSchema(), raw)
	if err == nil {
		t.Fatal("expected error for missing required field")
	}
	var invErr *ErrInvalidResponse
	if !errors.As(err, &invErr) {
		t.Fatalf("expected ErrInvalidResponse, got: %T", err)
	}
}

func TestValidateJSON_WrongType(t *testing.T) {
	raw := json.RawMessage(`{"name":"Dave","score":"high"}`)
	err := ValidateJSON(testSchema(), raw)
	if err == nil {
		t.Fatal("expected error for wrong type")
	}
	var invErr *ErrInvalidResponse
	if !errors.As(err, &invErr) {
		t.Fatalf("expected ErrInvalidResponse, got: %T", err)
	}
}

func TestValidateJSON_InvalidEnum(t *testing.T) {
	raw := json.RawMessage(`{"name":"Eve","score":0.5,"tier":"enterprise"}`)
	err := ValidateJSON(testSchema(), raw)
	if err == nil {
		t.Fatal("expected error for invalid enum value")
	}
	var invErr *ErrInvalidResponse
	if !errors.As(err, &invErr) {
		t.Fatalf("expected ErrInvalidResponse, got: %T", err)
	}
}

func TestValidateJSON_MalformedJSON(t *testing.T) {
	raw := json.RawMessage(`{not json}`)
	err := ValidateJSON(testSchema(), raw)
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	var invErr *ErrInvalidResponse
	if !errors.As(err, &invErr) {
		t.Fatalf("expected ErrInvalidResponse, got: %T", err)
	}
}

func TestValidateJSON_EmptyResponse(t *testing.T) {
	raw := json.RawMessage(``)
	err := ValidateJSON(testSchema(), raw)
	if err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestValidateJSON_NilSchema(t *testing.T) {
	raw := json.RawMessage(`{"anything":"goes"}`)
	err := ValidateJSON(nil, raw)
	if err != nil {
		t.Fatalf("expected no error with nil schema, got: %v", err)
	}
}

func TestValidateJSON_NestedObjects(t *testing.T) {
	schema := &Schema{
		Name:        "test-nested",
		Description: "Nested test",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"customer": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{"type": "string"},
					},
					"required": []any{"name"},
				},
				"tickets": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "integer"},
				},
			},
			"required": []any{"customer", "tickets"},
		},
	}

	valid := json.RawMessage(`{"customer":{"name":"Alice"},"tickets":[90,85,92]}`)
	if err := ValidateJSON(schema, valid); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	invalid := json.RawMessage(`{"customer":{"name":"Alice"},"tickets":["not","ints"]}`)
	if err := ValidateJSON(schema, invalid); err == nil {
		t.Fatal("expected error for wrong array item type")
	}
}

func TestValidateJSON_NumberOutOfRange(t *testing.T) {
	for _, raw := range []string{
		`{"name":"Frank","score":1.01}`,
		`{"name":"Frank","score":-0.1}`,
	} {
		err := ValidateJSON(testSchema(), json.RawMessage(raw))
		var invErr *ErrInvalidResponse
		if !errors.As(err, &invErr) {
			t.Fatalf("%s: expected ErrInvalidResponse, got: %v", raw, err)
		}
		if string(invErr.Content) != raw {
			t.Fatalf("expected raw content to be kept, got %q", invErr.Content)
		}
	}
}

func TestValidateJSON_UnknownField(t *testing.T) {
	raw := json.RawMessage(`{"name":"Grace","score":0.4,"extra":true}`)
	var invErr *ErrInvalidResponse
	if err := ValidateJSON(testSchema(), raw); !errors.As(err, &invErr) {
		t.Fatalf("expected ErrInvalidResponse, got: %v", err)
	}
}
