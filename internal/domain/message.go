package domain

import "time"

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry of a widget conversation log. It is never mutated
// once appended.
type Message struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// Turn returns the wire form of the message, without its timestamp
func (m Message) Turn() ChatTurn {
	return ChatTurn{Role: m.Role, Content: m.Content}
}

// ChatTurn is a message as the chat backend sees it
type ChatTurn struct {
	Role    MessageRole `json:"role" validate:"required,oneof=user assistant"`
	Content string      `json:"content" validate:"required,max=4000"`
}
