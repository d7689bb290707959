package model

import "strings"

// Role identifies who authored a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ChatTurn is a single message in a conversation history.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserText joins the content of every user-authored turn in history,
// followed by message. Assistant turns are excluded so that names and
// services the bot mentions are never attributed to the visitor.
func UserText(message string, history []ChatTurn) string {
	parts := make([]string, 0, len(history)+1)
	for _, t := range history {
		if t.Role == RoleUser && strings.TrimSpace(t.Content) != "" {
			parts = append(parts, t.Content)
		}
	}
	if strings.TrimSpace(message) != "" {
		parts = append(parts, message)
	}
	return strings.Join(parts, "\n")
}

// UserMessagesNewestFirst returns message followed by the user turns of
// history in reverse chronological order.
func UserMessagesNewestFirst(message string, history []ChatTurn) []string {
	out := make([]string, 0, len(history)+1)
	if strings.TrimSpace(message) != "" {
		out = append(out, message)
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser && strings.TrimSpace(history[i].Content) != "" {
			out = append(out, history[i].Content)
		}
	}
	return out
}
