package drip

import "time"

// Role identifies the author of a conversation message.
type Role string

// Conversation roles recognized by providers.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a conversation history. Assistant messages may
// carry thinking content alongside the visible text.
type Message struct {
	Role      Role
	Content   string
	Thinking  string
	Timestamp time.Time
}
