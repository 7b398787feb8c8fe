package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestDisplayNamePrecedence(t *testing.T) {
	party := Party{
		Identifier:   "+15551234567",
		CustomName:   strPtr("Alice (VIP)"),
		ProviderName: strPtr("Alice"),
	}
	assert.Equal(t, "Alice (VIP)", party.DisplayName())

	party.CustomName = nil
	assert.Equal(t, "Alice", party.DisplayName())

	party.ProviderName = nil
	assert.Equal(t, "+15551234567", party.DisplayName())
}

func TestDisplayNameSkipsEmptyStrings(t *testing.T) {
	party := Party{
		Identifier:   "+15551234567",
		CustomName:   strPtr(""),
		ProviderName: strPtr("Alice"),
	}
	assert.Equal(t, "Alice", party.DisplayName())
}
