package support

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/supportagent/internal/llm"
)

func validAnswer() *SupportAnswer {
	return &SupportAnswer{
		FinalAnswer:   "You can request a refund from Settings > Billing.",
		Confidence:    0.85,
		Category:      CategoryBilling,
		Followups:     []string{"How long does a refund take?"},
		Citations:     []string{"Refund policy"},
		RequiresHuman: false,
	}
}

func TestSupportAnswer_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *SupportAnswer)
		wantErr bool
	}{
		{"valid", func(a *SupportAnswer) {}, false},
		{"confidence zero", func(a *SupportAnswer) { a.Confidence = 0 }, false},
		{"confidence one", func(a *SupportAnswer) { a.Confidence = 1 }, false},
		{"empty lists", func(a *SupportAnswer) { a.Followups = []string{}; a.Citations = []string{} }, false},
		{"confidence above one", func(a *SupportAnswer) { a.Confidence = 1.01 }, true},
		{"confidence negative", func(a *SupportAnswer) { a.Confidence = -0.2 }, true},
		{"confidence NaN", func(a *SupportAnswer) { a.Confidence = math.NaN() }, true},
		{"unknown category", func(a *SupportAnswer) { a.Category = "shipping" }, true},
		{"nil followups", func(a *SupportAnswer) { a.Followups = nil }, true},
		{"nil citations", func(a *SupportAnswer) { a.Citations = nil }, true},
		{"duplicate citations", func(a *SupportAnswer) { a.Citations = []string{"FAQ", "FAQ"} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAnswer()
			tt.mutate(a)
			err := a.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSupportAnswer_ValidateNil(t *testing.T) {
	var a *SupportAnswer
	assert.Error(t, a.Validate())
}

func TestCategory_Valid(t *testing.T) {
	assert.Len(t, Categories, 6)
	for _, c := range Categories {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, Category("Billing").Valid())
	assert.False(t, Category("").Valid())
}

func TestParseAnswer_Valid(t *testing.T) {
	raw, err := json.Marshal(validAnswer())
	require.NoError(t, err)

	got, err := ParseAnswer(raw)
	require.NoError(t, err)
	assert.Equal(t, validAnswer(), got)
}

func TestParseAnswer_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `Sure! Here is your answer.`},
		{"confidence out of range", `{"final_answer":"x","confidence":1.5,"category":"billing","followups":[],"citations":[],"requires_human":false}`},
		{"category outside enum", `{"final_answer":"x","confidence":0.5,"category":"shipping","followups":[],"citations":[],"requires_human":false}`},
		{"missing field", `{"final_answer":"x","confidence":0.5,"category":"billing","followups":[],"requires_human":false}`},
		{"wrong type", `{"final_answer":"x","confidence":"high","category":"billing","followups":[],"citations":[],"requires_human":false}`},
		{"extra field", `{"final_answer":"x","confidence":0.5,"category":"billing","followups":[],"citations":[],"requires_human":false,"mood":"happy"}`},
		{"duplicate citations", `{"final_answer":"x","confidence":0.5,"category":"billing","followups":[],"citations":["a","a"],"requires_human":false}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnswer(json.RawMessage(tt.raw))
			assert.Nil(t, got)

			var invErr *llm.ErrInvalidResponse
			require.True(t, errors.As(err, &invErr), "expected ErrInvalidResponse, got %v", err)
			assert.Equal(t, tt.raw, string(invErr.Content))
		})
	}
}

func TestAnswerSchema_Shape(t *testing.T) {
	def := AnswerSchema.Definition
	assert.Equal(t, false, def["additionalProperties"])

	props, ok := def["properties"].(map[string]any)
	require.True(t, ok)
	required, ok := def["required"].([]any)
	require.True(t, ok)
	assert.Len(t, required, len(props), "every property must be required")

	category := props["category"].(map[string]any)
	assert.Len(t, category["enum"], len(Categories))
}
