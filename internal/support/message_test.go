package support

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAssistantMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	answer := validAnswer()

	msg := NewAssistantMessage(answer, now)

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, MessageRoleAssistant, msg.Role)
	assert.Equal(t, answer.FinalAnswer, msg.Content)
	assert.Equal(t, time.UTC, msg.Timestamp.Location())
	assert.True(t, msg.Timestamp.Equal(now))
	assert.Same(t, answer, msg.StructuredData)

	other := NewAssistantMessage(answer, now)
	assert.NotEqual(t, msg.ID, other.ID)
}

func TestChatMessage_JSON(t *testing.T) {
	msg := ChatMessage{ID: "1", Role: MessageRoleUser, Content: "hi", Timestamp: time.Unix(0, 0).UTC()}
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "structured_data")

	withAnswer := NewAssistantMessage(validAnswer(), time.Unix(0, 0))
	raw, err = json.Marshal(withAnswer)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"structured_data":{"final_answer"`)
}

func TestLastUserContent(t *testing.T) {
	msgs := []ChatMessage{
		{Role: MessageRoleUser, Content: "first"},
		{Role: MessageRoleAssistant, Content: "answer"},
		{Role: MessageRoleUser, Content: "second"},
		{Role: MessageRoleAssistant, Content: "answer 2"},
	}
	assert.Equal(t, "second", LastUserContent(msgs))
	assert.Equal(t, "", LastUserContent(nil))
	assert.Equal(t, "", LastUserContent([]ChatMessage{{Role: MessageRoleSystem, Content: "x"}}))
}
