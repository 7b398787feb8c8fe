package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"ChatDesk/server/internal/media"
	"ChatDesk/server/internal/models"
	"ChatDesk/server/internal/pool"
)

// VerifyWebhook answers the provider's subscription handshake: echo the
// challenge iff the shared verify token matches.
func VerifyWebhook(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode != "subscribe" || token != cfg.Provider.VerifyToken {
		log.Printf("Webhook verification failed: mode=%s", mode)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(challenge))
}

type inboundMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption"`
	Filename string `json:"filename"`
}

type inboundMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Image    *inboundMedia `json:"image"`
	Document *inboundMedia `json:"document"`
	Audio    *inboundMedia `json:"audio"`
	Video    *inboundMedia `json:"video"`
	Sticker  *inboundMedia `json:"sticker"`
}

type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ReceiveWebhook ingests inbound message events. Delivery is at-least-once:
// a replayed message id is absorbed as success so the provider stops
// retrying.
func ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Printf("Error decoding webhook payload: %v", err)
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			names := make(map[string]string)
			for _, contact := range change.Value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}
			for _, inbound := range change.Value.Messages {
				if err := ingestInbound(ctx, inbound, names[inbound.From]); err != nil {
					log.Printf("Error ingesting message %s: %v", inbound.ID, err)
				}
			}
		}
	}

	// 200 regardless of per-message outcome, so the provider does not
	// re-deliver the whole batch for one bad row.
	w.WriteHeader(http.StatusOK)
}

func ingestInbound(ctx context.Context, inbound inboundMessage, profileName string) error {
	party, created, err := partyService.ResolvePhoneParty(ctx, inbound.From, profileName)
	if err != nil {
		return err
	}
	if created {
		pool.GlobalPool.BroadcastEvent("contact_created", map[string]string{
			"identifier": party.Identifier,
		})
	}

	msg := &models.Message{
		ID:        inbound.ID,
		Sender:    party.Identifier,
		Receiver:  cfg.BusinessPartyID,
		Type:      inbound.Type,
		CreatedAt: parseProviderTimestamp(inbound.Timestamp),
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	switch inbound.Type {
	case models.MessageTypeText:
		if inbound.Text != nil {
			msg.Content = inbound.Text.Body
		}
	case models.MessageTypeImage, models.MessageTypeDocument, models.MessageTypeAudio,
		models.MessageTypeVideo, models.MessageTypeSticker:
		ref := pickInboundMedia(inbound)
		if ref == nil {
			return models.ErrInvalidIdentifier
		}
		msg.Content = ref.Caption
		msg.Media = ingestMedia(ctx, party.Identifier, ref)
	default:
		log.Printf("Unsupported inbound message type %q for %s", inbound.Type, inbound.ID)
		return nil
	}

	err = chatService.AppendMessage(ctx, msg)
	if errors.Is(err, models.ErrDuplicateMessage) {
		// Replay of an already-stored id, nothing to do.
		return nil
	}
	if err != nil {
		return err
	}

	pool.GlobalPool.BroadcastEvent("conversation_changed", map[string]string{
		"counterparty": party.Identifier,
	})
	return nil
}

func pickInboundMedia(inbound inboundMessage) *inboundMedia {
	switch inbound.Type {
	case models.MessageTypeImage:
		return inbound.Image
	case models.MessageTypeDocument:
		return inbound.Document
	case models.MessageTypeAudio:
		return inbound.Audio
	case models.MessageTypeVideo:
		return inbound.Video
	case models.MessageTypeSticker:
		return inbound.Sticker
	}
	return nil
}

// ingestMedia mirrors provider media into our object storage. A storage or
// provider failure degrades to a MediaRef without a URL; the message row is
// still recorded.
func ingestMedia(ctx context.Context, sender string, ref *inboundMedia) *models.MediaRef {
	result := &models.MediaRef{
		MimeType: ref.MimeType,
		MediaID:  ref.ID,
		Caption:  ref.Caption,
		Filename: ref.Filename,
	}

	downloadURL, mimeType, err := providerClient.LookupMedia(ctx, ref.ID)
	if err != nil {
		log.Printf("Media lookup failed for %s, storing without URL: %v", ref.ID, err)
		return result
	}
	if mimeType != "" {
		result.MimeType = mimeType
	}

	data, err := providerClient.DownloadMedia(ctx, downloadURL)
	if err != nil {
		log.Printf("Media download failed for %s, storing without URL: %v", ref.ID, err)
		return result
	}

	key := media.ObjectKey(sender, ref.ID, result.MimeType)
	if err := mediaStore.Put(ctx, key, result.MimeType, data); err != nil {
		log.Printf("Media upload failed for %s, storing without URL: %v", ref.ID, err)
		return result
	}

	result.URL = mediaStore.SignedURL(key)
	return result
}

func parseProviderTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Now()
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Now()
	}
	return time.Unix(seconds, 0)
}
