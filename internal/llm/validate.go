package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaCache caches compiled JSON schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// ValidateJSON validates raw JSON against schema. It returns nil when schema
// is nil or validation passes, and *ErrInvalidResponse otherwise.
func ValidateJSON(schema *Schema, raw json.RawMessage) error {
	if schema == nil {
		return nil
	}

	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &ErrInvalidResponse{
			Content: raw,
			Err:     fmt.Errorf("invalid JSON: %w", err),
		}
	}

	compiled, err := getCompiledSchema(schema)
	if err != nil {
		return &ErrInvalidResponse{
			Content: raw,
			Err:     fmt.Errorf("compile schema %q: %w", schema.Name, err),
		}
	}

	if err := compiled.Validate(parsed); err != nil {
		return &ErrInvalidResponse{
			Content: raw,
			Err:     fmt.Errorf("schema validation failed: %w", err),
		}
	}

	return nil
}

// getCompiledSchema returns a cached compiled schema or compiles and caches it.
func getCompiledSchema(schema *Schema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants a decoded JSON value, not Go-typed literals
	// (e.g. []string), so round-trip the definition through JSON.
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	defParsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(defBytes))
	if err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	schemaURL := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(schemaURL, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}

	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}
