package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ChatDesk/server/internal/models"
	"ChatDesk/server/internal/pool"
	"ChatDesk/server/internal/provider"
	"ChatDesk/server/internal/utils"
)

func groupIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	groupID, err := strconv.Atoi(chi.URLParam(r, "group_id"))
	if err != nil || groupID <= 0 {
		http.Error(w, "Invalid group ID", http.StatusBadRequest)
		return 0, false
	}
	return groupID, true
}

func groupErrorStatus(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, "Group not found", http.StatusNotFound)
	case errors.Is(err, models.ErrForbidden):
		http.Error(w, "Only the group owner may do that", http.StatusForbidden)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func ListGroups(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	groups, err := groupService.ListGroupsForOwner(r.Context(), userID, cfg.BusinessPartyID)
	if err != nil {
		log.Printf("Error listing groups for user %d: %v", userID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, groups)
}

func CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		Name        string  `json:"name" validate:"required,min=1"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	group, err := groupService.CreateGroup(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		log.Printf("Error creating group for user %d: %v", userID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, group)
}

func UpdateGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	var req struct {
		Name        string  `json:"name" validate:"required,min=1"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := groupService.RenameGroup(r.Context(), groupID, userID, req.Name, req.Description); err != nil {
		log.Printf("Error updating group %d: %v", groupID, err)
		groupErrorStatus(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func DeleteGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	if err := groupService.DeleteGroup(r.Context(), groupID, userID); err != nil {
		log.Printf("Error deleting group %d: %v", groupID, err)
		groupErrorStatus(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func GetGroupMembers(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	members, err := groupService.GetGroupMembers(r.Context(), groupID, userID, cfg.BusinessPartyID)
	if err != nil {
		log.Printf("Error getting members of group %d: %v", groupID, err)
		groupErrorStatus(w, err)
		return
	}

	total, err := groupService.GroupUnreadTotal(r.Context(), groupID, cfg.BusinessPartyID)
	if err != nil {
		log.Printf("Error getting unread total for group %d: %v", groupID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"members":      members,
		"unread_total": total,
	})
}

func AddGroupMembers(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	var req struct {
		Phones []string `json:"phones" validate:"required,min=1"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	identifiers := make([]string, 0, len(req.Phones))
	for _, raw := range req.Phones {
		phone, err := utils.NormalizePhone(raw)
		if err != nil {
			http.Error(w, "Invalid phone number: "+raw, http.StatusBadRequest)
			return
		}
		identifiers = append(identifiers, phone)
	}

	if err := groupService.AddMembers(r.Context(), groupID, userID, identifiers); err != nil {
		log.Printf("Error adding members to group %d: %v", groupID, err)
		groupErrorStatus(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"added": len(identifiers)})
}

func RemoveGroupMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	phone, err := utils.NormalizePhone(chi.URLParam(r, "phone"))
	if err != nil {
		http.Error(w, "Invalid phone number", http.StatusBadRequest)
		return
	}

	if err := groupService.RemoveMember(r.Context(), groupID, userID, phone); err != nil {
		log.Printf("Error removing member %s from group %d: %v", phone, groupID, err)
		groupErrorStatus(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type broadcastResult struct {
	Identifier string `json:"identifier"`
	Sent       bool   `json:"sent"`
	Error      string `json:"error,omitempty"`
}

// BroadcastToGroup sends one text or template message to every member.
// Each member is an independent provider call; the report lists which
// deliveries failed, and only accepted sends get a message row.
func BroadcastToGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	var input sendMessageInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if input.Type != models.MessageTypeText && input.Type != models.MessageTypeTemplate {
		http.Error(w, "Broadcast supports text and template messages", http.StatusBadRequest)
		return
	}
	if input.Type == models.MessageTypeText && input.Text == "" {
		http.Error(w, "Text body is required", http.StatusBadRequest)
		return
	}
	if input.Type == models.MessageTypeTemplate && input.Template == nil {
		http.Error(w, "Template payload is required", http.StatusBadRequest)
		return
	}

	members, err := groupService.GetMemberIdentifiers(r.Context(), groupID, userID)
	if err != nil {
		log.Printf("Error getting members of group %d: %v", groupID, err)
		groupErrorStatus(w, err)
		return
	}

	ctx := r.Context()
	results := make([]broadcastResult, 0, len(members))
	for _, member := range members {
		msg := &models.Message{
			Sender:    cfg.BusinessPartyID,
			Receiver:  member,
			Type:      input.Type,
			CreatedAt: time.Now(),
		}

		var providerID string
		var sendErr error
		if input.Type == models.MessageTypeText {
			msg.Content = input.Text
			providerID, sendErr = providerClient.SendText(ctx, member, input.Text)
		} else {
			vars := provider.TemplateVars{
				Header: input.Template.HeaderVars,
				Body:   input.Template.BodyVars,
				Footer: input.Template.FooterVars,
			}
			rendered, renderErr := provider.RenderTemplate(input.Template.Name,
				input.Template.HeaderText, input.Template.BodyText, input.Template.FooterText, vars)
			if renderErr != nil {
				http.Error(w, "Template variables incomplete", http.StatusBadRequest)
				return
			}
			language := input.Template.Language
			if language == "" {
				language = "en"
			}
			msg.Template = rendered
			msg.Content = provider.FlattenContent(rendered)
			providerID, sendErr = providerClient.SendTemplate(ctx, member, rendered.Name, language, vars)
		}

		if sendErr != nil {
			log.Printf("Broadcast send to %s failed: %v", member, sendErr)
			results = append(results, broadcastResult{Identifier: member, Sent: false, Error: "send failed"})
			continue
		}

		msg.ID = providerID
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		if err := chatService.AppendMessage(ctx, msg); err != nil && !errors.Is(err, models.ErrDuplicateMessage) {
			log.Printf("Error storing broadcast message %s: %v", msg.ID, err)
			results = append(results, broadcastResult{Identifier: member, Sent: false, Error: "store failed"})
			continue
		}

		results = append(results, broadcastResult{Identifier: member, Sent: true})
		pool.GlobalPool.BroadcastEvent("conversation_changed", map[string]string{
			"counterparty": member,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"group_id": groupID,
		"results":  results,
	})
}
