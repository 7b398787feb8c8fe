package models

import (
	"time"
)

// Group is an owner-scoped broadcast list of contact parties.
type Group struct {
	ID          int       `json:"id" db:"id"`
	OwnerID     int       `json:"owner_id" db:"owner_id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type GroupWithStats struct {
	Group
	MemberCount int `json:"member_count"`
	UnreadTotal int `json:"unread_total"`
}

// GroupMember annotates a member party with its per-member unread count
// from the business account's perspective.
type GroupMember struct {
	GroupID     int       `json:"group_id" db:"group_id"`
	Identifier  string    `json:"identifier" db:"party_identifier"`
	DisplayName string    `json:"display_name"`
	UnreadCount int       `json:"unread_count"`
	JoinedAt    time.Time `json:"joined_at" db:"joined_at"`
}
