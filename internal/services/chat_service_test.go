package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ChatDesk/server/internal/models"
)

func conv(id string, unread int, lastMessage *time.Time, lastActivity time.Time) models.Conversation {
	return models.Conversation{
		Identifier:     id,
		UnreadCount:    unread,
		LastMessageAt:  lastMessage,
		LastActivityAt: lastActivity,
	}
}

func TestSortConversationsUnreadTierFirst(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	older := base.Add(-2 * time.Hour)
	newer := base.Add(-1 * time.Minute)

	conversations := []models.Conversation{
		conv("+1000000_read_recent", 0, &newer, newer),
		conv("+2000000_unread_old", 3, &older, older),
	}

	sortConversations(conversations)

	// A conversation with unread messages outranks a more recent all-read one.
	assert.Equal(t, "+2000000_unread_old", conversations[0].Identifier)
	assert.Equal(t, "+1000000_read_recent", conversations[1].Identifier)
}

func TestSortConversationsRecencyWithinTier(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	first := base.Add(-3 * time.Hour)
	second := base.Add(-2 * time.Hour)
	third := base.Add(-1 * time.Hour)

	conversations := []models.Conversation{
		conv("+1", 1, &first, first),
		conv("+2", 2, &third, third),
		conv("+3", 5, &second, second),
	}

	sortConversations(conversations)

	assert.Equal(t, "+2", conversations[0].Identifier)
	assert.Equal(t, "+3", conversations[1].Identifier)
	assert.Equal(t, "+1", conversations[2].Identifier)
}

func TestSortConversationsEmptyUsesLastActivity(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	messageAt := base.Add(-2 * time.Hour)

	conversations := []models.Conversation{
		conv("+with_messages", 0, &messageAt, messageAt),
		conv("+empty_but_fresh", 0, nil, base),
	}

	sortConversations(conversations)

	assert.Equal(t, "+empty_but_fresh", conversations[0].Identifier)
	assert.Equal(t, "+with_messages", conversations[1].Identifier)
}

func TestSortConversationsStableForTies(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	conversations := []models.Conversation{
		conv("+a", 0, &base, base),
		conv("+b", 0, &base, base),
	}

	sortConversations(conversations)

	assert.Equal(t, "+a", conversations[0].Identifier)
	assert.Equal(t, "+b", conversations[1].Identifier)
}

func TestUnreadWhereSQL(t *testing.T) {
	assert.Equal(t, "receiver = $1 AND is_read = FALSE", unreadWhereSQL(1))
	assert.Equal(t, "receiver = $2 AND is_read = FALSE", unreadWhereSQL(2))
}

func TestUnreadAggSQLEmbedsCanonicalPredicate(t *testing.T) {
	agg := unreadAggSQL(1)
	assert.Contains(t, agg, unreadWhereSQL(1))
	assert.Contains(t, agg, "GROUP BY sender")
}
