package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ChatDesk/server/internal/models"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		want  string
		valid bool
	}{
		{"already canonical", "+15551234567", "+15551234567", true},
		{"missing plus", "15551234567", "+15551234567", true},
		{"formatted", "+1 (555) 123-4567", "+15551234567", true},
		{"dots and spaces", "55 11 91234.5678", "+5511912345678", true},
		{"fifteen digits", "+123456789012345", "+123456789012345", true},
		{"too short", "+555123", "", false},
		{"too long", "+1234567890123456", "", false},
		{"leading zero", "+05551234567", "", false},
		{"letters only", "not-a-phone", "", false},
		{"empty", "", "", false},
		{"plus in the middle", "+1555+1234567", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePhone(tc.raw)
			if !tc.valid {
				assert.ErrorIs(t, err, models.ErrInvalidIdentifier)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizePhoneIdempotent(t *testing.T) {
	first, err := NormalizePhone("+1 (555) 123-4567")
	assert.NoError(t, err)

	second, err := NormalizePhone(first)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "15551234567", Digits("+1 (555) 123-4567"))
	assert.Equal(t, "", Digits("abc"))
}

func TestPhoneSuffix(t *testing.T) {
	assert.Equal(t, "5551234567", PhoneSuffix("+15551234567"))
	assert.Equal(t, "5551234567", PhoneSuffix("5551234567"))
	assert.Equal(t, "123", PhoneSuffix("123"))
}
