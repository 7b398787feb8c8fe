package models

import (
	"time"
)

const (
	PartyKindContact = "contact"
	PartyKindAccount = "account"
)

// Party is either endpoint of a conversation: an external contact addressed
// by phone number, or the internal business account.
type Party struct {
	Identifier     string    `json:"identifier" db:"identifier"`
	Kind           string    `json:"kind" db:"kind"`
	CustomName     *string   `json:"custom_name,omitempty" db:"custom_name"`
	ProviderName   *string   `json:"provider_name,omitempty" db:"provider_name"`
	LastActivityAt time.Time `json:"last_activity_at" db:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// DisplayName resolves the visible name: custom override first, then the
// name the provider reported, then the identifier itself. Never stored.
func (p *Party) DisplayName() string {
	if p.CustomName != nil && *p.CustomName != "" {
		return *p.CustomName
	}
	if p.ProviderName != nil && *p.ProviderName != "" {
		return *p.ProviderName
	}
	return p.Identifier
}
