package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MessageMetadata records which backend produced an assistant message, how
// many tokens the exchange consumed, or why generation failed. Only these
// three fields survive the store boundary.
type MessageMetadata struct {
	Model  string `json:"model,omitempty"`
	Tokens int    `json:"tokens,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Message is one turn in a conversation. Messages are immutable once
// created. Metadata stays nil when absent so it serializes as null, not {}.
type Message struct {
	ID        string           `json:"id"`
	SessionID string           `json:"sessionId"`
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Metadata  *MessageMetadata `json:"metadata"`
}

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}
