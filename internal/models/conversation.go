package models

import (
	"time"
)

// Conversation is a derived view over the message store: one entry per
// contact party, annotated for the conversation list UI. Parties with no
// messages yet appear with an empty preview and zero unread.
type Conversation struct {
	Identifier     string     `json:"identifier"`
	DisplayName    string     `json:"display_name"`
	LastContent    *string    `json:"last_content,omitempty"`
	LastType       *string    `json:"last_type,omitempty"`
	LastSender     *string    `json:"last_sender,omitempty"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	UnreadCount    int        `json:"unread_count"`
}
