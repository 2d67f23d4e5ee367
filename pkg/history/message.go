package history

import (
	"encoding/json"
	"fmt"
)

// Role identifies who authored a message
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleBot
}

// Message is a single conversation line
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// User builds a user message
func User(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// Bot builds a bot message
func Bot(text string) Message {
	return Message{Role: RoleBot, Text: text}
}

// Clone returns a copy of msgs that shares no backing array with it.
// A nil input yields an empty, non-nil slice.
func Clone(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Encode serializes messages in insertion order
func Encode(msgs []Message) ([]byte, error) {
	if msgs == nil {
		msgs = []Message{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}
	return data, nil
}

// record is the stored shape. Older histories name the role "type".
type record struct {
	Role Role   `json:"role"`
	Type Role   `json:"type"`
	Text string `json:"text"`
}

// Decode parses serialized history. Records with an unknown role or empty
// text are dropped and counted in skipped; malformed JSON is an error.
func Decode(data []byte) (msgs []Message, skipped int, err error) {
	var raw []record
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("failed to decode history: %w", err)
	}

	msgs = make([]Message, 0, len(raw))
	for _, r := range raw {
		role := r.Role
		if role == "" {
			role = r.Type
		}
		if !role.Valid() || r.Text == "" {
			skipped++
			continue
		}
		msgs = append(msgs, Message{Role: role, Text: r.Text})
	}
	return msgs, skipped, nil
}
