package utils

import (
	"regexp"
	"strings"

	"ChatDesk/server/internal/models"
)

var nonPhoneChars = regexp.MustCompile(`[^0-9+]`)

// NormalizePhone reduces a free-form phone string to canonical international
// form: a leading + followed by 10 to 15 digits. Anything else fails with
// ErrInvalidIdentifier.
func NormalizePhone(raw string) (string, error) {
	cleaned := nonPhoneChars.ReplaceAllString(raw, "")
	if cleaned == "" {
		return "", models.ErrInvalidIdentifier
	}

	digits := strings.TrimPrefix(cleaned, "+")
	if strings.Contains(digits, "+") {
		return "", models.ErrInvalidIdentifier
	}
	if len(digits) < 10 || len(digits) > 15 {
		return "", models.ErrInvalidIdentifier
	}
	if strings.HasPrefix(digits, "0") {
		return "", models.ErrInvalidIdentifier
	}

	return "+" + digits, nil
}

// Digits strips everything but digits from a phone-like string.
func Digits(raw string) string {
	return nonPhoneChars.ReplaceAllString(strings.ReplaceAll(raw, "+", ""), "")
}

// PhoneSuffix returns the last 10 digits of a phone-like string, used for
// suffix matching of imported numbers against stored identifiers.
func PhoneSuffix(raw string) string {
	digits := Digits(raw)
	if len(digits) <= 10 {
		return digits
	}
	return digits[len(digits)-10:]
}
