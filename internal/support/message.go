package support

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole is the sender of a ChatMessage.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// ChatMessage is one turn as the chat UI sees it. Messages are independent;
// nothing links a message to earlier ones.
type ChatMessage struct {
	ID             string         `json:"id"`
	Role           MessageRole    `json:"role"`
	Content        string         `json:"content"`
	Timestamp      time.Time      `json:"timestamp"`
	StructuredData *SupportAnswer `json:"structured_data,omitempty"`
}

// NewAssistantMessage wraps an answer as an assistant turn.
func NewAssistantMessage(answer *SupportAnswer, now time.Time) ChatMessage {
	return ChatMessage{
		ID:             uuid.NewString(),
		Role:           MessageRoleAssistant,
		Content:        answer.FinalAnswer,
		Timestamp:      now.UTC(),
		StructuredData: answer,
	}
}

// LastUserContent returns the content of the last user message, or "" when
// there is none. Earlier turns are not used.
func LastUserContent(msgs []ChatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == MessageRoleUser {
			return msgs[i].Content
		}
	}
	return ""
}
