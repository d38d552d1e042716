package memory

import (
	"encoding/json"
	"errors"
	"os"
)

// Role is the provider-facing role of a projected message.
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Message is the projected view of a turn as seen by one speaker.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Project renders turns from the point of view of forSpeaker. Speaker identity
// is dropped: forSpeaker's turns become RoleAssistant and all others RoleUser.
// Adjacent messages with the same role are not merged.
func Project(turns []Turn, forSpeaker string) []Message {
	out := make([]Message, 0, len(turns))
	for _, t := range turns {
		role := RoleUser
		if t.Speaker == forSpeaker {
			role = RoleAssistant
		}
		out = append(out, Message{Role: role, Content: t.Content})
	}
	return out
}

// LoadConversation reads a projected conversation snapshot. A missing file
// yields a nil slice and no error.
func LoadConversation(path string) ([]Message, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var msgs []Message
	if err := json.Unmarshal(b, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SaveConversation writes a projected conversation snapshot as indented JSON.
func SaveConversation(path string, msgs []Message) error {
	b, err := json.MarshalIndent(msgs, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
