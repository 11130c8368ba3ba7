// Package json persists transcripts as versioned JSON files.
package json

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/driplabs/drip"
)

// envelope is the v1 wire format for a persisted transcript.
type envelope struct {
	Version   int          `json:"version"`
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Messages  []messageDTO `json:"messages"`
}

// messageDTO is the JSON representation of a Message.
type messageDTO struct {
	Role      string    `json:"role"`
	Content   string    `json:"content,omitempty"`
	Thinking  string    `json:"thinking,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MarshalTranscript serializes a Transcript in v1 envelope format.
func MarshalTranscript(t drip.Transcript) ([]byte, error) {
	env := envelope{
		Version:   1,
		ID:        t.ID,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Messages:  make([]messageDTO, len(t.Messages)),
	}
	for i, msg := range t.Messages {
		env.Messages[i] = messageDTO{
			Role:      string(msg.Role),
			Content:   msg.Content,
			Thinking:  msg.Thinking,
			Timestamp: msg.Timestamp,
		}
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalTranscript deserializes a Transcript from v1 envelope format.
func UnmarshalTranscript(data []byte) (drip.Transcript, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return drip.Transcript{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return drip.Transcript{}, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}

	t := drip.Transcript{
		ID:        env.ID,
		CreatedAt: env.CreatedAt,
		UpdatedAt: env.UpdatedAt,
		Messages:  make([]drip.Message, len(env.Messages)),
	}
	for i, dto := range env.Messages {
		t.Messages[i] = drip.Message{
			Role:      drip.Role(dto.Role),
			Content:   dto.Content,
			Thinking:  dto.Thinking,
			Timestamp: dto.Timestamp,
		}
	}
	if err := t.Validate(); err != nil {
		return drip.Transcript{}, fmt.Errorf("validate: %w", err)
	}
	return t, nil
}

// Save writes a Transcript to a JSON file, creating parent directories
// as needed. The write goes through a temp file and rename so a crash
// never leaves a half-written transcript.
func Save(path string, t drip.Transcript) error {
	data, err := MarshalTranscript(t)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads a Transcript from a JSON file.
func Load(path string) (drip.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return drip.Transcript{}, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalTranscript(data)
}
