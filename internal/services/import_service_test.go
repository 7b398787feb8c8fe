package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRowsSpecScenario(t *testing.T) {
	rows := []ImportRow{
		{Phone: "15551234567", Name: "Alice"},
		{Phone: "0159999", Name: "Bad"},
		{Phone: "15551234567", Name: "Alice-dup"},
	}

	valid, invalid := ValidateRows(rows)

	assert.Len(t, valid, 1)
	assert.Equal(t, "15551234567", valid[0].Phone)
	assert.Equal(t, "Alice", valid[0].Name)

	assert.Len(t, invalid, 1)
	assert.Equal(t, "0159999", invalid[0].Value)
	assert.Equal(t, "starts with 0", invalid[0].Reason)
}

func TestValidateRowsTooShort(t *testing.T) {
	_, invalid := ValidateRows([]ImportRow{{Phone: "555123", Name: "Short"}})

	assert.Len(t, invalid, 1)
	assert.Equal(t, "less than 10 digits", invalid[0].Reason)
}

func TestValidateRowsCleansFormatting(t *testing.T) {
	valid, invalid := ValidateRows([]ImportRow{{Phone: "+1 (555) 123-4567", Name: "Alice"}})

	assert.Empty(t, invalid)
	assert.Len(t, valid, 1)
	assert.Equal(t, "15551234567", valid[0].Phone)
}

func TestValidateRowsDedupIgnoresFormatting(t *testing.T) {
	valid, _ := ValidateRows([]ImportRow{
		{Phone: "15551234567", Name: "Alice"},
		{Phone: "+1 555 123 4567", Name: "Same number"},
	})

	assert.Len(t, valid, 1)
	assert.Equal(t, "Alice", valid[0].Name)
}

func TestValidateRowsEmptyBatch(t *testing.T) {
	valid, invalid := ValidateRows(nil)
	assert.Empty(t, valid)
	assert.Empty(t, invalid)
}
