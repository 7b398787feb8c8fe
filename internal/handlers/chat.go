package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ChatDesk/server/internal/models"
	"ChatDesk/server/internal/pool"
	"ChatDesk/server/internal/provider"
	"ChatDesk/server/internal/utils"
)

// GetConversations returns the conversation list for the business inbox:
// every contact with preview, display name and unread count.
func GetConversations(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}

	conversations, err := chatService.GetConversationsForOwner(r.Context(), cfg.BusinessPartyID)
	if err != nil {
		log.Printf("Error getting conversations: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, conversations)
}

// GetConversation returns the full message history with one contact,
// ascending, with is_sent_by_me computed relative to the business account.
func GetConversation(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}

	phone, err := utils.NormalizePhone(chi.URLParam(r, "phone"))
	if err != nil {
		http.Error(w, "Invalid phone number", http.StatusBadRequest)
		return
	}

	party, err := partyService.GetParty(r.Context(), phone)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
		log.Printf("Error getting party %s: %v", phone, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	messages, err := chatService.GetConversation(r.Context(), cfg.BusinessPartyID, phone)
	if err != nil {
		log.Printf("Error getting conversation with %s: %v", phone, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"counterparty": phone,
		"display_name": party.DisplayName(),
		"messages":     messages,
	})
}

// MarkConversationRead flips all unread messages from the contact and
// returns how many were affected. Calling it again is a no-op.
func MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}

	phone, err := utils.NormalizePhone(chi.URLParam(r, "phone"))
	if err != nil {
		http.Error(w, "Invalid phone number", http.StatusBadRequest)
		return
	}

	affected, err := chatService.MarkRead(r.Context(), cfg.BusinessPartyID, phone)
	if err != nil {
		log.Printf("Error marking conversation %s read: %v", phone, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if affected > 0 {
		pool.GlobalPool.BroadcastEvent("conversation_changed", map[string]string{
			"counterparty": phone,
		})
	}

	writeJSON(w, http.StatusOK, map[string]int{"marked_read": affected})
}

type sendTemplateInput struct {
	Name       string         `json:"name" validate:"required"`
	Language   string         `json:"language"`
	HeaderText string         `json:"header_text"`
	BodyText   string         `json:"body_text" validate:"required"`
	FooterText string         `json:"footer_text"`
	HeaderVars map[int]string `json:"header_vars"`
	BodyVars   map[int]string `json:"body_vars"`
	FooterVars map[int]string `json:"footer_vars"`
}

type sendMediaInput struct {
	Link     string `json:"link" validate:"required,url"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption"`
	Filename string `json:"filename"`
}

type sendMessageInput struct {
	Type     string             `json:"type" validate:"required"`
	Text     string             `json:"text"`
	Template *sendTemplateInput `json:"template"`
	Media    *sendMediaInput    `json:"media"`
}

// SendMessage delivers an outbound message through the provider and, only
// after the provider accepts it, records the message row. A rejected send
// leaves no local state behind.
func SendMessage(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}

	rawPhone := chi.URLParam(r, "phone")
	phone, err := utils.NormalizePhone(rawPhone)
	if err != nil {
		http.Error(w, "Invalid phone number", http.StatusBadRequest)
		return
	}

	var input sendMessageInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(input); err != nil {
		log.Printf("Invalid send request: %v", err)
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if !models.KnownMessageType(input.Type) {
		http.Error(w, "Unknown message type", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	party, _, err := partyService.ResolvePhoneParty(ctx, phone, "")
	if err != nil {
		log.Printf("Error resolving recipient %s: %v", phone, err)
		http.Error(w, "Invalid phone number", http.StatusBadRequest)
		return
	}

	msg := &models.Message{
		Sender:    cfg.BusinessPartyID,
		Receiver:  party.Identifier,
		Type:      input.Type,
		CreatedAt: time.Now(),
	}

	var providerID string
	switch input.Type {
	case models.MessageTypeText:
		if input.Text == "" {
			http.Error(w, "Text body is required", http.StatusBadRequest)
			return
		}
		msg.Content = input.Text
		providerID, err = providerClient.SendText(ctx, party.Identifier, input.Text)

	case models.MessageTypeTemplate:
		if input.Template == nil {
			http.Error(w, "Template payload is required", http.StatusBadRequest)
			return
		}
		vars := provider.TemplateVars{
			Header: input.Template.HeaderVars,
			Body:   input.Template.BodyVars,
			Footer: input.Template.FooterVars,
		}
		rendered, renderErr := provider.RenderTemplate(input.Template.Name,
			input.Template.HeaderText, input.Template.BodyText, input.Template.FooterText, vars)
		if renderErr != nil {
			log.Printf("Template render failed: %v", renderErr)
			http.Error(w, "Template variables incomplete", http.StatusBadRequest)
			return
		}
		language := input.Template.Language
		if language == "" {
			language = "en"
		}
		msg.Template = rendered
		msg.Content = provider.FlattenContent(rendered)
		providerID, err = providerClient.SendTemplate(ctx, party.Identifier, rendered.Name, language, vars)

	default:
		if input.Media == nil {
			http.Error(w, "Media payload is required", http.StatusBadRequest)
			return
		}
		msg.Content = input.Media.Caption
		msg.Media = &models.MediaRef{
			MimeType: input.Media.MimeType,
			Caption:  input.Media.Caption,
			Filename: input.Media.Filename,
			URL:      input.Media.Link,
		}
		providerID, err = providerClient.SendMedia(ctx, party.Identifier, input.Type,
			input.Media.Link, input.Media.Caption)
	}

	if err != nil {
		log.Printf("Send to %s failed: %v", party.Identifier, err)
		http.Error(w, "Send failed", http.StatusBadGateway)
		return
	}

	msg.ID = providerID
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Media != nil && msg.Media.MediaID == "" {
		msg.Media.MediaID = msg.ID
	}

	if err := chatService.AppendMessage(ctx, msg); err != nil && !errors.Is(err, models.ErrDuplicateMessage) {
		log.Printf("Error storing sent message %s: %v", msg.ID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	pool.GlobalPool.BroadcastEvent("conversation_changed", map[string]string{
		"counterparty": party.Identifier,
	})

	writeJSON(w, http.StatusCreated, msg)
}
