package services

import (
	"context"
	"log"
	"time"

	"ChatDesk/server/internal/db"
	"ChatDesk/server/internal/models"
	"ChatDesk/server/internal/utils"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
)

type PartyService interface {
	ResolvePhoneParty(ctx context.Context, raw string, nameHint string) (*models.Party, bool, error)
	GetParty(ctx context.Context, identifier string) (*models.Party, error)
	ListContacts(ctx context.Context) ([]models.Party, error)
	RenameParty(ctx context.Context, identifier, customName string) error
}

type partyService struct{}

func NewPartyService() *partyService {
	return &partyService{}
}

// ResolvePhoneParty normalizes raw to canonical form and upserts the party.
// The second return value reports whether the party was created by this call.
// The insert itself is conflict-safe, so concurrent first contact from the
// same number never creates two rows.
func (ps *partyService) ResolvePhoneParty(ctx context.Context, raw string, nameHint string) (*models.Party, bool, error) {
	identifier, err := utils.NormalizePhone(raw)
	if err != nil {
		return nil, false, err
	}

	var hint *string
	if nameHint != "" {
		hint = &nameHint
	}

	// xmax = 0 only for rows inserted by this statement.
	sqlStr := `
        INSERT INTO parties (identifier, kind, provider_name, last_activity_at, created_at)
        VALUES ($1, 'contact', $2, NOW(), NOW())
        ON CONFLICT (identifier) DO UPDATE
            SET provider_name = COALESCE(EXCLUDED.provider_name, parties.provider_name),
                last_activity_at = NOW()
        RETURNING identifier, kind, custom_name, provider_name, last_activity_at, created_at,
                  (xmax = 0) AS created
    `

	log.Printf("Executing SQL: %s, Args: [%s %v]", sqlStr, identifier, nameHint)

	var party models.Party
	var created bool
	err = db.Pool.QueryRow(ctx, sqlStr, identifier, hint).Scan(
		&party.Identifier, &party.Kind, &party.CustomName, &party.ProviderName,
		&party.LastActivityAt, &party.CreatedAt, &created)
	if err != nil {
		log.Printf("Error resolving party %s: %v", identifier, err)
		return nil, false, err
	}

	if created {
		log.Printf("Party %s created on first contact", identifier)
	}
	return &party, created, nil
}

func (ps *partyService) GetParty(ctx context.Context, identifier string) (*models.Party, error) {
	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("identifier", "kind", "custom_name", "provider_name", "last_activity_at", "created_at").
		From("parties").
		Where(squirrel.Eq{"identifier": identifier})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return nil, err
	}

	log.Printf("Executing SQL: %s, Args: %v", sqlStr, args)

	var party models.Party
	err = db.Pool.QueryRow(ctx, sqlStr, args...).Scan(
		&party.Identifier, &party.Kind, &party.CustomName, &party.ProviderName,
		&party.LastActivityAt, &party.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, models.ErrNotFound
		}
		log.Printf("Error fetching party %s: %v", identifier, err)
		return nil, err
	}

	return &party, nil
}

func (ps *partyService) ListContacts(ctx context.Context) ([]models.Party, error) {
	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("identifier", "kind", "custom_name", "provider_name", "last_activity_at", "created_at").
		From("parties").
		Where(squirrel.Eq{"kind": models.PartyKindContact}).
		OrderBy("last_activity_at DESC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return nil, err
	}

	log.Printf("Executing SQL: %s, Args: %v", sqlStr, args)

	rows, err := db.Pool.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error listing contacts: %v", err)
		return nil, err
	}
	defer rows.Close()

	var contacts []models.Party
	for rows.Next() {
		var party models.Party
		err := rows.Scan(&party.Identifier, &party.Kind, &party.CustomName,
			&party.ProviderName, &party.LastActivityAt, &party.CreatedAt)
		if err != nil {
			log.Printf("Error scanning contact row: %v", err)
			continue
		}
		contacts = append(contacts, party)
	}
	if err := rows.Err(); err != nil {
		log.Printf("Error iterating contacts: %v", err)
		return nil, err
	}

	return contacts, nil
}

func (ps *partyService) RenameParty(ctx context.Context, identifier, customName string) error {
	var value *string
	if customName != "" {
		value = &customName
	}

	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Update("parties").
		Set("custom_name", value).
		Where(squirrel.Eq{"identifier": identifier})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return err
	}

	log.Printf("Executing SQL: %s, Args: %v", sqlStr, args)

	result, err := db.Pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error renaming party %s: %v", identifier, err)
		return err
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	log.Printf("Party %s renamed to %q", identifier, customName)
	return nil
}

// touchPartyActivity bumps last_activity_at to ts for contact parties only.
// Freshness cache for conversation ordering, not authoritative state.
func touchPartyActivity(ctx context.Context, tx pgx.Tx, identifier string, ts time.Time) error {
	_, err := tx.Exec(ctx, `
        UPDATE parties SET last_activity_at = GREATEST(last_activity_at, $2)
        WHERE identifier = $1 AND kind = 'contact'
    `, identifier, ts)
	return err
}
