package entities

import "strings"

// Message is a single turn of an exported conversation.
type Message struct {
	Role      string `json:"role" validate:"required"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Conversation is the transient input of one pipeline run. It is never stored.
type Conversation struct {
	ID       string    `json:"id"`
	Title    string    `json:"title,omitempty"`
	Platform string    `json:"platform" validate:"required"`
	Messages []Message `json:"messages" validate:"required,min=1,dive"`
}

// RoleTag renders the role the way formatted transcripts label each line.
func (m Message) RoleTag() string {
	return strings.ToUpper(strings.TrimSpace(m.Role))
}
