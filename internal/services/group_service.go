package services

import (
	"context"
	"log"

	"ChatDesk/server/internal/db"
	"ChatDesk/server/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
)

type GroupService interface {
	CreateGroup(ctx context.Context, ownerID int, name string, description *string) (*models.Group, error)
	RenameGroup(ctx context.Context, groupID, callerID int, name string, description *string) error
	DeleteGroup(ctx context.Context, groupID, callerID int) error
	AddMembers(ctx context.Context, groupID, callerID int, identifiers []string) error
	RemoveMember(ctx context.Context, groupID, callerID int, identifier string) error
	ListGroupsForOwner(ctx context.Context, ownerID int, businessParty string) ([]models.GroupWithStats, error)
	GetGroupMembers(ctx context.Context, groupID, callerID int, businessParty string) ([]models.GroupMember, error)
	GroupUnreadTotal(ctx context.Context, groupID int, businessParty string) (int, error)
	GetMemberIdentifiers(ctx context.Context, groupID, callerID int) ([]string, error)
}

type groupService struct{}

func NewGroupService() *groupService {
	return &groupService{}
}

// requireOwner resolves the group and fails with ErrForbidden unless callerID
// owns it. Every group mutation and read goes through this check.
func (gs *groupService) requireOwner(ctx context.Context, groupID, callerID int) error {
	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("owner_id").
		From("groups").
		Where(squirrel.Eq{"id": groupID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return err
	}

	var ownerID int
	err = db.Pool.QueryRow(ctx, sqlStr, args...).Scan(&ownerID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.ErrNotFound
		}
		log.Printf("Error fetching owner of group %d: %v", groupID, err)
		return err
	}

	if ownerID != callerID {
		log.Printf("User %d is not the owner of group %d", callerID, groupID)
		return models.ErrForbidden
	}
	return nil
}

func (gs *groupService) CreateGroup(ctx context.Context, ownerID int, name string, description *string) (*models.Group, error) {
	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Insert("groups").
		Columns("owner_id", "name", "description").
		Values(ownerID, name, description).
		Suffix("RETURNING id, owner_id, name, description, created_at, updated_at")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return nil, err
	}

	log.Printf("Executing SQL: %s, Args: %v", sqlStr, args)

	var group models.Group
	err = db.Pool.QueryRow(ctx, sqlStr, args...).Scan(
		&group.ID, &group.OwnerID, &group.Name, &group.Description,
		&group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		log.Printf("Error creating group %q for user %d: %v", name, ownerID, err)
		return nil, err
	}

	log.Printf("Group %d (%q) created by user %d", group.ID, name, ownerID)
	return &group, nil
}

func (gs *groupService) RenameGroup(ctx context.Context, groupID, callerID int, name string, description *string) error {
	if err := gs.requireOwner(ctx, groupID, callerID); err != nil {
		return err
	}

	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Update("groups").
		Set("name", name).
		Set("description", description).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": groupID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return err
	}

	log.Printf("Executing SQL: %s, Args: %v", sqlStr, args)

	_, err = db.Pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error updating group %d: %v", groupID, err)
		return err
	}

	log.Printf("Group %d renamed to %q", groupID, name)
	return nil
}

func (gs *groupService) DeleteGroup(ctx context.Context, groupID, callerID int) error {
	if err := gs.requireOwner(ctx, groupID, callerID); err != nil {
		return err
	}

	// Membership rows go with the group via ON DELETE CASCADE.
	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Delete("groups").
		Where(squirrel.Eq{"id": groupID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return err
	}

	log.Printf("Executing SQL: %s, Args: %v", sqlStr, args)

	_, err = db.Pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error deleting group %d: %v", groupID, err)
		return err
	}

	log.Printf("Group %d deleted by user %d", groupID, callerID)
	return nil
}

func (gs *groupService) AddMembers(ctx context.Context, groupID, callerID int, identifiers []string) error {
	if err := gs.requireOwner(ctx, groupID, callerID); err != nil {
		return err
	}

	builder := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Insert("group_members").
		Columns("group_id", "party_identifier")
	for _, identifier := range identifiers {
		builder = builder.Values(groupID, identifier)
	}
	builder = builder.Suffix("ON CONFLICT (group_id, party_identifier) DO NOTHING")

	sqlStr, args, err := builder.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return err
	}

	log.Printf("Executing SQL: %s, Args: %v", sqlStr, args)

	_, err = db.Pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error adding members to group %d: %v", groupID, err)
		return err
	}

	if _, err := db.Pool.Exec(ctx, "UPDATE groups SET updated_at = NOW() WHERE id = $1", groupID); err != nil {
		log.Printf("Error bumping updated_at for group %d: %v", groupID, err)
	}

	log.Printf("Added %d members to group %d", len(identifiers), groupID)
	return nil
}

func (gs *groupService) RemoveMember(ctx context.Context, groupID, callerID int, identifier string) error {
	if err := gs.requireOwner(ctx, groupID, callerID); err != nil {
		return err
	}

	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Delete("group_members").
		Where(squirrel.And{
			squirrel.Eq{"group_id": groupID},
			squirrel.Eq{"party_identifier": identifier},
		})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return err
	}

	log.Printf("Executing SQL: %s, Args: %v", sqlStr, args)

	result, err := db.Pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error removing member %s from group %d: %v", identifier, groupID, err)
		return err
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	if _, err := db.Pool.Exec(ctx, "UPDATE groups SET updated_at = NOW() WHERE id = $1", groupID); err != nil {
		log.Printf("Error bumping updated_at for group %d: %v", groupID, err)
	}

	log.Printf("Member %s removed from group %d", identifier, groupID)
	return nil
}

// ListGroupsForOwner returns the caller's groups with member counts and
// aggregate unread, newest-updated first. The unread aggregation reuses the
// canonical predicate against the business account party.
func (gs *groupService) ListGroupsForOwner(ctx context.Context, ownerID int, businessParty string) ([]models.GroupWithStats, error) {
	sqlStr := `
        SELECT g.id, g.owner_id, g.name, g.description, g.created_at, g.updated_at,
               COUNT(gm.party_identifier) AS member_count,
               COALESCE(SUM(u.unread), 0) AS unread_total
        FROM groups g
        LEFT JOIN group_members gm ON gm.group_id = g.id
        LEFT JOIN (` + unreadAggSQL(2) + `) u ON u.sender = gm.party_identifier
        WHERE g.owner_id = $1
        GROUP BY g.id
        ORDER BY g.updated_at DESC
    `

	log.Printf("Executing SQL: %s, Args: [%d %s]", sqlStr, ownerID, businessParty)

	rows, err := db.Pool.Query(ctx, sqlStr, ownerID, businessParty)
	if err != nil {
		log.Printf("Error listing groups for user %d: %v", ownerID, err)
		return nil, err
	}
	defer rows.Close()

	var groups []models.GroupWithStats
	for rows.Next() {
		var group models.GroupWithStats
		err := rows.Scan(&group.ID, &group.OwnerID, &group.Name, &group.Description,
			&group.CreatedAt, &group.UpdatedAt, &group.MemberCount, &group.UnreadTotal)
		if err != nil {
			log.Printf("Error scanning group row: %v", err)
			continue
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		log.Printf("Error iterating groups: %v", err)
		return nil, err
	}

	return groups, nil
}

// GetGroupMembers enumerates members with per-member unread counts, ordered
// by custom name then provider name ascending, unnamed members last.
func (gs *groupService) GetGroupMembers(ctx context.Context, groupID, callerID int, businessParty string) ([]models.GroupMember, error) {
	if err := gs.requireOwner(ctx, groupID, callerID); err != nil {
		return nil, err
	}

	sqlStr := `
        SELECT gm.group_id, gm.party_identifier, gm.joined_at,
               COALESCE(NULLIF(p.custom_name, ''), NULLIF(p.provider_name, ''), p.identifier) AS display_name,
               COALESCE(u.unread, 0) AS unread_count
        FROM group_members gm
        JOIN parties p ON p.identifier = gm.party_identifier
        LEFT JOIN (` + unreadAggSQL(2) + `) u ON u.sender = gm.party_identifier
        WHERE gm.group_id = $1
        ORDER BY COALESCE(NULLIF(p.custom_name, ''), NULLIF(p.provider_name, '')) ASC NULLS LAST
    `

	log.Printf("Executing SQL: %s, Args: [%d %s]", sqlStr, groupID, businessParty)

	rows, err := db.Pool.Query(ctx, sqlStr, groupID, businessParty)
	if err != nil {
		log.Printf("Error getting members of group %d: %v", groupID, err)
		return nil, err
	}
	defer rows.Close()

	var members []models.GroupMember
	for rows.Next() {
		var member models.GroupMember
		err := rows.Scan(&member.GroupID, &member.Identifier, &member.JoinedAt,
			&member.DisplayName, &member.UnreadCount)
		if err != nil {
			log.Printf("Error scanning group member row: %v", err)
			continue
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		log.Printf("Error iterating group members: %v", err)
		return nil, err
	}

	return members, nil
}

// GroupUnreadTotal sums the canonical unread count over the group's members.
func (gs *groupService) GroupUnreadTotal(ctx context.Context, groupID int, businessParty string) (int, error) {
	sqlStr := "SELECT COUNT(*) FROM messages WHERE " + unreadWhereSQL(1) +
		" AND sender IN (SELECT party_identifier FROM group_members WHERE group_id = $2)"

	log.Printf("Executing SQL: %s, Args: [%s %d]", sqlStr, businessParty, groupID)

	var total int
	err := db.Pool.QueryRow(ctx, sqlStr, businessParty, groupID).Scan(&total)
	if err != nil {
		log.Printf("Error getting unread total for group %d: %v", groupID, err)
		return 0, err
	}

	return total, nil
}

func (gs *groupService) GetMemberIdentifiers(ctx context.Context, groupID, callerID int) ([]string, error) {
	if err := gs.requireOwner(ctx, groupID, callerID); err != nil {
		return nil, err
	}

	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("party_identifier").
		From("group_members").
		Where(squirrel.Eq{"group_id": groupID}).
		OrderBy("joined_at ASC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return nil, err
	}

	log.Printf("Executing SQL: %s, Args: %v", sqlStr, args)

	rows, err := db.Pool.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error getting member identifiers for group %d: %v", groupID, err)
		return nil, err
	}
	defer rows.Close()

	var identifiers []string
	for rows.Next() {
		var identifier string
		if err := rows.Scan(&identifier); err != nil {
			log.Printf("Error scanning member identifier: %v", err)
			continue
		}
		identifiers = append(identifiers, identifier)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return identifiers, nil
}
