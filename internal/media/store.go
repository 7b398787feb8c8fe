package media

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"ChatDesk/server/internal/config"
	"ChatDesk/server/internal/models"
)

var extByMime = map[string]string{
	"image/jpeg":         ".jpg",
	"image/png":          ".png",
	"image/webp":         ".webp",
	"video/mp4":          ".mp4",
	"audio/ogg":          ".ogg",
	"audio/mpeg":         ".mp3",
	"application/pdf":    ".pdf",
	"text/plain":         ".txt",
	"application/msword": ".doc",
}

// Store uploads message media to object storage and hands out time-bounded
// retrieval URLs. Message bytes never live in the database.
type Store struct {
	cfg  config.Media
	http *http.Client
	now  func() time.Time
}

func NewStore(cfg config.Media) *Store {
	return &Store{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
		now:  time.Now,
	}
}

// ObjectKey derives a stable storage key from the sender and media id, so a
// re-fetch of the same media id lands on the same object instead of a new one.
func ObjectKey(sender, mediaID, mimeType string) string {
	ext, ok := extByMime[mimeType]
	if !ok {
		ext = ".bin"
	}
	return strings.TrimPrefix(sender, "+") + "/" + mediaID + ext
}

// Put uploads the object. Overwriting the same key with the same bytes is
// harmless, which is what makes duplicate webhook deliveries safe here too.
func (s *Store) Put(ctx context.Context, key, mimeType string, data []byte) error {
	endpoint := fmt.Sprintf("%s/%s/%s", s.cfg.Endpoint, s.cfg.Bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "failed to build storage request")
	}
	req.Header.Set("Content-Type", mimeType)

	resp, err := s.http.Do(req)
	if err != nil {
		log.Printf("Error uploading media object %s: %v", key, err)
		return errors.Wrap(models.ErrStorageFailure, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("Storage rejected object %s with status %d", key, resp.StatusCode)
		return errors.Wrapf(models.ErrStorageFailure, "status %d", resp.StatusCode)
	}

	log.Printf("Stored media object %s (%d bytes)", key, len(data))
	return nil
}

// SignedURL returns a retrieval URL valid until now + the configured TTL.
// The signature covers key and expiry, so neither can be swapped out.
func (s *Store) SignedURL(key string) string {
	expires := s.now().Add(s.cfg.URLTTL).Unix()

	mac := hmac.New(sha256.New, []byte(s.cfg.SignKey))
	fmt.Fprintf(mac, "%s:%d", key, expires)
	signature := hex.EncodeToString(mac.Sum(nil))

	values := url.Values{}
	values.Set("expires", strconv.FormatInt(expires, 10))
	values.Set("signature", signature)

	return fmt.Sprintf("%s/%s/%s?%s", s.cfg.Endpoint, s.cfg.Bucket, key, values.Encode())
}

// VerifySignedURL checks the signature and expiry produced by SignedURL.
func (s *Store) VerifySignedURL(key string, expires int64, signature string) bool {
	if s.now().Unix() > expires {
		return false
	}

	mac := hmac.New(sha256.New, []byte(s.cfg.SignKey))
	fmt.Fprintf(mac, "%s:%d", key, expires)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
