package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"ChatDesk/server/internal/db"
	"ChatDesk/server/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgtype"
)

type ChatService interface {
	AppendMessage(ctx context.Context, msg *models.Message) error
	GetConversation(ctx context.Context, owner, counterparty string) ([]models.Message, error)
	MarkRead(ctx context.Context, owner, counterparty string) (int, error)
	UnreadCount(ctx context.Context, owner, counterparty string) (int, error)
	UnreadTotals(ctx context.Context, owner string) (map[string]int, error)
	GetConversationsForOwner(ctx context.Context, owner string) ([]models.Conversation, error)
}

type chatService struct{}

func NewChatService() *chatService {
	return &chatService{}
}

const uniqueViolation = "23505"

// unreadWhereSQL renders the one canonical unread predicate. Every unread
// number in the system, per conversation, per list, per group, filters on
// this exact fragment; argNum is the placeholder bound to the receiving
// party.
func unreadWhereSQL(argNum int) string {
	return fmt.Sprintf("receiver = $%d AND is_read = FALSE", argNum)
}

// unreadAggSQL is the grouped-by-sender aggregate over the same predicate,
// for embedding as a subquery.
func unreadAggSQL(argNum int) string {
	return "SELECT sender, COUNT(*) AS unread FROM messages WHERE " +
		unreadWhereSQL(argNum) + " GROUP BY sender"
}

// AppendMessage stores msg and bumps the sending contact's activity in the
// same transaction. A replayed id fails with ErrDuplicateMessage and leaves
// the store unchanged, which makes at-least-once webhook delivery safe.
func (cs *chatService) AppendMessage(ctx context.Context, msg *models.Message) error {
	if msg.Sender == msg.Receiver {
		return models.ErrInvalidIdentifier
	}
	if !models.KnownMessageType(msg.Type) {
		return models.ErrInvalidIdentifier
	}

	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Insert("messages").
		Columns("id", "sender", "receiver", "content", "type",
			"media_mime", "media_id", "media_caption", "media_filename", "media_url",
			"created_at").
		Values(msg.ID, msg.Sender, msg.Receiver, msg.Content, msg.Type,
			mediaColumn(msg, func(m *models.MediaRef) string { return m.MimeType }),
			mediaColumn(msg, func(m *models.MediaRef) string { return m.MediaID }),
			mediaColumn(msg, func(m *models.MediaRef) string { return m.Caption }),
			mediaColumn(msg, func(m *models.MediaRef) string { return m.Filename }),
			mediaColumn(msg, func(m *models.MediaRef) string { return m.URL }),
			msg.CreatedAt)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return err
	}

	log.Printf("Executing SQL: %s, Args: %v", sqlStr, args)

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Error starting transaction: %v", err)
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, sqlStr, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			log.Printf("Message %s already stored, skipping", msg.ID)
			return models.ErrDuplicateMessage
		}
		log.Printf("Error appending message %s: %v", msg.ID, err)
		return err
	}

	if err := touchPartyActivity(ctx, tx, msg.Sender, msg.CreatedAt); err != nil {
		log.Printf("Error bumping activity for %s: %v", msg.Sender, err)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("Error committing message %s: %v", msg.ID, err)
		return err
	}

	log.Printf("Message %s appended: %s -> %s (%s)", msg.ID, msg.Sender, msg.Receiver, msg.Type)
	return nil
}

func mediaColumn(msg *models.Message, pick func(*models.MediaRef) string) *string {
	if msg.Media == nil {
		return nil
	}
	value := pick(msg.Media)
	if value == "" {
		return nil
	}
	return &value
}

// GetConversation returns every message between owner and counterparty in
// ascending (created_at, id) order. IsSentByMe is computed relative to owner
// at scan time, never read from storage.
func (cs *chatService) GetConversation(ctx context.Context, owner, counterparty string) ([]models.Message, error) {
	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("id", "sender", "receiver", "content", "type",
			"media_mime", "media_id", "media_caption", "media_filename", "media_url",
			"created_at", "is_read", "read_at").
		From("messages").
		Where(squirrel.Or{
			squirrel.And{squirrel.Eq{"sender": owner}, squirrel.Eq{"receiver": counterparty}},
			squirrel.And{squirrel.Eq{"sender": counterparty}, squirrel.Eq{"receiver": owner}},
		}).
		OrderBy("created_at ASC", "id ASC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return nil, err
	}

	log.Printf("Executing SQL: %s, Args: %v", sqlStr, args)

	rows, err := db.Pool.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error getting conversation %s <-> %s: %v", owner, counterparty, err)
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var mime, mediaID, caption, filename, mediaURL *string
		var readAt pgtype.Timestamptz

		err := rows.Scan(&msg.ID, &msg.Sender, &msg.Receiver, &msg.Content, &msg.Type,
			&mime, &mediaID, &caption, &filename, &mediaURL,
			&msg.CreatedAt, &msg.IsRead, &readAt)
		if err != nil {
			log.Printf("Error scanning message row: %v", err)
			return nil, err
		}

		if readAt.Status == pgtype.Present {
			t := readAt.Time
			msg.ReadAt = &t
		}
		if msg.HasMedia() && mediaID != nil {
			msg.Media = &models.MediaRef{
				MimeType: deref(mime),
				MediaID:  deref(mediaID),
				Caption:  deref(caption),
				Filename: deref(filename),
				URL:      deref(mediaURL),
			}
		}
		msg.IsSentByMe = msg.Sender == owner
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		log.Printf("Error after iterating messages: %v", err)
		return nil, err
	}

	log.Printf("Fetched %d messages for %s <-> %s", len(messages), owner, counterparty)
	return messages, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// MarkRead flips every currently-unread message from counterparty to owner.
// The predicate-based UPDATE makes concurrent and repeated calls safe; the
// second call simply affects zero rows.
func (cs *chatService) MarkRead(ctx context.Context, owner, counterparty string) (int, error) {
	sqlStr := "UPDATE messages SET is_read = TRUE, read_at = NOW() WHERE " +
		unreadWhereSQL(1) + " AND sender = $2"

	log.Printf("Executing SQL: %s, Args: [%s %s]", sqlStr, owner, counterparty)

	result, err := db.Pool.Exec(ctx, sqlStr, owner, counterparty)
	if err != nil {
		log.Printf("Error marking messages read for %s from %s: %v", owner, counterparty, err)
		return 0, err
	}

	affected := int(result.RowsAffected())
	log.Printf("Marked %d messages read for %s from %s", affected, owner, counterparty)
	return affected, nil
}

func (cs *chatService) UnreadCount(ctx context.Context, owner, counterparty string) (int, error) {
	sqlStr := "SELECT COUNT(*) FROM messages WHERE " +
		unreadWhereSQL(1) + " AND sender = $2"

	log.Printf("Executing SQL: %s, Args: [%s %s]", sqlStr, owner, counterparty)

	var count int
	err := db.Pool.QueryRow(ctx, sqlStr, owner, counterparty).Scan(&count)
	if err != nil {
		log.Printf("Error getting unread count for %s from %s: %v", owner, counterparty, err)
		return 0, err
	}

	return count, nil
}

// UnreadTotals groups unread counts per sender using the same predicate as
// UnreadCount, so the list view and the detail view can never disagree.
func (cs *chatService) UnreadTotals(ctx context.Context, owner string) (map[string]int, error) {
	sqlStr := unreadAggSQL(1)

	log.Printf("Executing SQL: %s, Args: [%s]", sqlStr, owner)

	rows, err := db.Pool.Query(ctx, sqlStr, owner)
	if err != nil {
		log.Printf("Error getting unread totals for %s: %v", owner, err)
		return nil, err
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var sender string
		var count int
		if err := rows.Scan(&sender, &count); err != nil {
			log.Printf("Error scanning unread total row: %v", err)
			continue
		}
		totals[sender] = count
	}
	if err := rows.Err(); err != nil {
		log.Printf("Error iterating unread totals: %v", err)
		return nil, err
	}

	return totals, nil
}

// GetConversationsForOwner builds the conversation list: every contact party
// with its display name, last-message preview and unread count. Recomputed on
// every read, nothing cached.
func (cs *chatService) GetConversationsForOwner(ctx context.Context, owner string) ([]models.Conversation, error) {
	sqlStr := `
        SELECT p.identifier,
               COALESCE(NULLIF(p.custom_name, ''), NULLIF(p.provider_name, ''), p.identifier) AS display_name,
               p.last_activity_at,
               lm.content, lm.type, lm.sender, lm.created_at,
               COALESCE(u.unread, 0) AS unread_count
        FROM parties p
        LEFT JOIN LATERAL (
            SELECT content, type, sender, created_at
            FROM messages m
            WHERE (m.sender = p.identifier AND m.receiver = $1)
               OR (m.sender = $1 AND m.receiver = p.identifier)
            ORDER BY m.created_at DESC, m.id DESC
            LIMIT 1
        ) lm ON TRUE
        LEFT JOIN (` + unreadAggSQL(1) + `) u ON u.sender = p.identifier
        WHERE p.kind = 'contact'
    `

	log.Printf("Executing SQL: %s, Args: [%s]", sqlStr, owner)

	rows, err := db.Pool.Query(ctx, sqlStr, owner)
	if err != nil {
		log.Printf("Error getting conversations for %s: %v", owner, err)
		return nil, err
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		var lastAt pgtype.Timestamptz

		err := rows.Scan(&conv.Identifier, &conv.DisplayName, &conv.LastActivityAt,
			&conv.LastContent, &conv.LastType, &conv.LastSender, &lastAt,
			&conv.UnreadCount)
		if err != nil {
			log.Printf("Error scanning conversation row: %v", err)
			continue
		}
		if lastAt.Status == pgtype.Present {
			t := lastAt.Time
			conv.LastMessageAt = &t
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		log.Printf("Error iterating conversations: %v", err)
		return nil, err
	}

	sortConversations(conversations)

	log.Printf("Built conversation list for %s: %d entries", owner, len(conversations))
	return conversations, nil
}

// sortConversations orders the list for the UI: conversations with unread
// messages first, then by most recent message time, falling back to the
// party's last activity for empty conversations.
func sortConversations(conversations []models.Conversation) {
	sort.SliceStable(conversations, func(i, j int) bool {
		a, b := conversations[i], conversations[j]
		aUnread := a.UnreadCount > 0
		bUnread := b.UnreadCount > 0
		if aUnread != bUnread {
			return aUnread
		}
		return sortTime(a).After(sortTime(b))
	})
}

func sortTime(c models.Conversation) time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.LastActivityAt
}
