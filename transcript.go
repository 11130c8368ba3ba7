package drip

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Transcript is a recorded conversation.
type Transcript struct {
	ID        string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTranscript creates an empty transcript with a fresh ID.
func NewTranscript() Transcript {
	now := time.Now()
	return Transcript{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a message and bumps UpdatedAt.
func (t *Transcript) Append(msg Message) {
	t.Messages = append(t.Messages, msg)
	t.UpdatedAt = time.Now()
}

// Validate checks structural invariants. It is used when loading a
// transcript from disk to reject corrupt or hand-edited files.
func (t Transcript) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("transcript has no ID")
	}
	for i, msg := range t.Messages {
		switch msg.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("message %d: unknown role %q", i, msg.Role)
		}
		if msg.Role != RoleAssistant && msg.Content == "" {
			return fmt.Errorf("message %d: empty %s message", i, msg.Role)
		}
		if msg.Role == RoleAssistant && msg.Content == "" && msg.Thinking == "" {
			return fmt.Errorf("message %d: assistant message has no content", i)
		}
	}
	return nil
}
