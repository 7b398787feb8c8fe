package media

import (
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ChatDesk/server/internal/config"
)

func TestObjectKeyDeterministic(t *testing.T) {
	first := ObjectKey("+15551234567", "media-abc", "image/jpeg")
	second := ObjectKey("+15551234567", "media-abc", "image/jpeg")

	assert.Equal(t, first, second)
	assert.Equal(t, "15551234567/media-abc.jpg", first)
}

func TestObjectKeyExtensionFromMime(t *testing.T) {
	assert.True(t, strings.HasSuffix(ObjectKey("+1", "m1", "application/pdf"), ".pdf"))
	assert.True(t, strings.HasSuffix(ObjectKey("+1", "m1", "audio/ogg"), ".ogg"))
	assert.True(t, strings.HasSuffix(ObjectKey("+1", "m1", "application/x-unknown"), ".bin"))
}

func testStore(now time.Time) *Store {
	s := NewStore(config.Media{
		Endpoint: "https://storage.example.com",
		Bucket:   "chat-media",
		SignKey:  "test-sign-key",
		URLTTL:   15 * time.Minute,
	})
	s.now = func() time.Time { return now }
	return s
}

func TestSignedURLRoundTrip(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := testStore(now)

	signed := s.SignedURL("15551234567/media-abc.jpg")

	parsed, err := url.Parse(signed)
	assert.NoError(t, err)

	expires, err := strconv.ParseInt(parsed.Query().Get("expires"), 10, 64)
	assert.NoError(t, err)
	assert.Equal(t, now.Add(15*time.Minute).Unix(), expires)

	signature := parsed.Query().Get("signature")
	assert.True(t, s.VerifySignedURL("15551234567/media-abc.jpg", expires, signature))
}

func TestSignedURLExpires(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := testStore(now)

	signed := s.SignedURL("k/v.jpg")
	parsed, _ := url.Parse(signed)
	expires, _ := strconv.ParseInt(parsed.Query().Get("expires"), 10, 64)
	signature := parsed.Query().Get("signature")

	s.now = func() time.Time { return now.Add(16 * time.Minute) }
	assert.False(t, s.VerifySignedURL("k/v.jpg", expires, signature))
}

func TestSignedURLRejectsTampering(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := testStore(now)

	signed := s.SignedURL("k/v.jpg")
	parsed, _ := url.Parse(signed)
	expires, _ := strconv.ParseInt(parsed.Query().Get("expires"), 10, 64)
	signature := parsed.Query().Get("signature")

	assert.False(t, s.VerifySignedURL("other/object.jpg", expires, signature))
	assert.False(t, s.VerifySignedURL("k/v.jpg", expires+3600, signature))
}
