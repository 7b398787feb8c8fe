package services

import (
	"context"
	"log"
	"strings"

	"ChatDesk/server/internal/db"
	"ChatDesk/server/internal/utils"
)

// ImportRow is one normalized (phone, name) pair handed over by the
// spreadsheet parser. The core never sees file formats.
type ImportRow struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

type RejectedRow struct {
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

type ImportReport struct {
	Total   int           `json:"total"`
	Created []string      `json:"created"`
	Matched []string      `json:"matched"`
	Invalid []RejectedRow `json:"invalid"`
}

type ImportService interface {
	ImportContacts(ctx context.Context, rows []ImportRow) (*ImportReport, error)
}

type importService struct{}

func NewImportService() *importService {
	return &importService{}
}

// ValidateRows checks and deduplicates a batch. A phone must clean to at
// least 10 digits and must not start with 0. Later duplicates of an already
// accepted number are dropped silently, matching per-batch dedup semantics.
func ValidateRows(rows []ImportRow) (valid []ImportRow, invalid []RejectedRow) {
	seen := make(map[string]struct{})

	for _, row := range rows {
		digits := utils.Digits(row.Phone)
		switch {
		case strings.HasPrefix(digits, "0"):
			invalid = append(invalid, RejectedRow{Value: row.Phone, Reason: "starts with 0"})
			continue
		case len(digits) < 10:
			invalid = append(invalid, RejectedRow{Value: row.Phone, Reason: "less than 10 digits"})
			continue
		}

		if _, dup := seen[digits]; dup {
			continue
		}
		seen[digits] = struct{}{}
		valid = append(valid, ImportRow{Phone: digits, Name: row.Name})
	}

	return valid, invalid
}

// ImportContacts validates the batch, matches rows against existing parties
// by exact identifier or 10-digit suffix, and creates the rest inside one
// transaction. Either every new party commits or none does; the report is
// only returned for a fully-applied batch.
func (is *importService) ImportContacts(ctx context.Context, rows []ImportRow) (*ImportReport, error) {
	valid, invalid := ValidateRows(rows)
	report := &ImportReport{Total: len(valid), Invalid: invalid}

	if len(valid) == 0 {
		return report, nil
	}

	existing, err := is.matchExisting(ctx, valid)
	if err != nil {
		return nil, err
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Error starting import transaction: %v", err)
		return nil, err
	}
	defer tx.Rollback(ctx)

	for _, row := range valid {
		if matched, ok := existing[row.Phone]; ok {
			report.Matched = append(report.Matched, matched)
			continue
		}

		identifier := "+" + row.Phone
		var name *string
		if row.Name != "" {
			name = &row.Name
		}

		_, err := tx.Exec(ctx, `
            INSERT INTO parties (identifier, kind, provider_name, last_activity_at, created_at)
            VALUES ($1, 'contact', $2, NOW(), NOW())
            ON CONFLICT (identifier) DO NOTHING
        `, identifier, name)
		if err != nil {
			log.Printf("Error creating imported party %s: %v", identifier, err)
			return nil, err
		}
		report.Created = append(report.Created, identifier)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("Error committing import batch: %v", err)
		return nil, err
	}

	log.Printf("Imported contacts: %d created, %d matched, %d invalid",
		len(report.Created), len(report.Matched), len(report.Invalid))
	return report, nil
}

// matchExisting maps each row's cleaned digits to an existing identifier,
// comparing exact form first and the 10-digit suffix otherwise.
func (is *importService) matchExisting(ctx context.Context, rows []ImportRow) (map[string]string, error) {
	sqlStr := `SELECT identifier FROM parties WHERE kind = 'contact'`

	log.Printf("Executing SQL: %s", sqlStr)

	dbRows, err := db.Pool.Query(ctx, sqlStr)
	if err != nil {
		log.Printf("Error loading existing contacts: %v", err)
		return nil, err
	}
	defer dbRows.Close()

	bySuffix := make(map[string]string)
	byDigits := make(map[string]string)
	for dbRows.Next() {
		var identifier string
		if err := dbRows.Scan(&identifier); err != nil {
			log.Printf("Error scanning identifier: %v", err)
			continue
		}
		byDigits[utils.Digits(identifier)] = identifier
		bySuffix[utils.PhoneSuffix(identifier)] = identifier
	}
	if err := dbRows.Err(); err != nil {
		return nil, err
	}

	matched := make(map[string]string)
	for _, row := range rows {
		if identifier, ok := byDigits[row.Phone]; ok {
			matched[row.Phone] = identifier
			continue
		}
		if identifier, ok := bySuffix[utils.PhoneSuffix(row.Phone)]; ok {
			matched[row.Phone] = identifier
		}
	}

	return matched, nil
}
