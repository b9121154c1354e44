package support

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/abhisek/supportagent/internal/llm"
)

// Category classifies the topic of a support query.
type Category string

const (
	CategoryBilling        Category = "billing"
	CategoryTechnical      Category = "technical"
	CategoryAccount        Category = "account"
	CategoryFeatureRequest Category = "feature_request"
	CategoryGeneral        Category = "general"
	CategoryEscalation     Category = "escalation"
)

// Categories is the fixed taxonomy, in prompt order.
var Categories = []Category{
	CategoryBilling,
	CategoryTechnical,
	CategoryAccount,
	CategoryFeatureRequest,
	CategoryGeneral,
	CategoryEscalation,
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// SupportAnswer is the structured answer returned for one query.
type SupportAnswer struct {
	FinalAnswer   string   `json:"final_answer"`
	Confidence    float64  `json:"confidence"`
	Category      Category `json:"category"`
	Followups     []string `json:"followups"`
	Citations     []string `json:"citations"`
	RequiresHuman bool     `json:"requires_human"`
}

// AnswerSchema is sent to the model as the required output shape and used
// to validate what comes back.
var AnswerSchema = &llm.Schema{
	Name:        "support-answer",
	Description: "Structured answer to a customer support question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"final_answer": map[string]any{
				"type":        "string",
				"description": "The complete answer shown to the customer",
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0.0,
				"maximum":     1.0,
				"description": "Self-assessed confidence in the answer (0.0 to 1.0)",
			},
			"category": map[string]any{
				"type":        "string",
				"enum":        categoryEnum(),
				"description": "Topic of the customer's question",
			},
			"followups": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Suggested follow-up questions, most useful first",
			},
			"citations": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Sources or policies the answer relies on",
			},
			"requires_human": map[string]any{
				"type":        "boolean",
				"description": "True when a human agent must take over",
			},
		},
		"required": []any{
			"final_answer", "confidence", "category",
			"followups", "citations", "requires_human",
		},
		"additionalProperties": false,
	},
}

func categoryEnum() []any {
	out := make([]any, len(Categories))
	for i, c := range Categories {
		out[i] = string(c)
	}
	return out
}

// Validate checks field constraints on an answer built in Go rather than
// decoded from model output.
func (a *SupportAnswer) Validate() error {
	if a == nil {
		return fmt.Errorf("answer is nil")
	}
	if math.IsNaN(a.Confidence) || a.Confidence < 0 || a.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0, 1]", a.Confidence)
	}
	if !a.Category.Valid() {
		return fmt.Errorf("unknown category %q", a.Category)
	}
	if a.Followups == nil {
		return fmt.Errorf("followups is required")
	}
	if a.Citations == nil {
		return fmt.Errorf("citations is required")
	}
	seen := make(map[string]struct{}, len(a.Citations))
	for _, c := range a.Citations {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("duplicate citation %q", c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

// ParseAnswer validates raw model output against AnswerSchema and decodes
// it. Any violation returns *llm.ErrInvalidResponse; there is no partial
// result.
func ParseAnswer(raw json.RawMessage) (*SupportAnswer, error) {
	if err := llm.ValidateJSON(AnswerSchema, raw); err != nil {
		return nil, err
	}

	var answer SupportAnswer
	if err := json.Unmarshal(raw, &answer); err != nil {
		return nil, &llm.ErrInvalidResponse{Content: raw, Err: fmt.Errorf("decode answer: %w", err)}
	}
	if err := answer.Validate(); err != nil {
		return nil, &llm.ErrInvalidResponse{Content: raw, Err: err}
	}
	return &answer, nil
}
