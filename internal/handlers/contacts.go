package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ChatDesk/server/internal/models"
	"ChatDesk/server/internal/pool"
	"ChatDesk/server/internal/services"
	"ChatDesk/server/internal/utils"
)

func ListContacts(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}

	contacts, err := partyService.ListContacts(r.Context())
	if err != nil {
		log.Printf("Error listing contacts: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, contacts)
}

// CreateContact is the explicit chat-creation action: resolve the phone into
// a party so an empty conversation shows up in the list.
func CreateContact(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}

	var req struct {
		Phone string `json:"phone" validate:"required"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	party, created, err := partyService.ResolvePhoneParty(r.Context(), req.Phone, req.Name)
	if err != nil {
		if errors.Is(err, models.ErrInvalidIdentifier) {
			http.Error(w, "Invalid phone number", http.StatusBadRequest)
			return
		}
		log.Printf("Error creating contact %s: %v", req.Phone, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		pool.GlobalPool.BroadcastEvent("contact_created", map[string]string{
			"identifier": party.Identifier,
		})
	}

	writeJSON(w, status, map[string]interface{}{
		"contact": party,
		"created": created,
	})
}

// RenameContact sets or clears the custom display-name override.
func RenameContact(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}

	phone, err := utils.NormalizePhone(chi.URLParam(r, "phone"))
	if err != nil {
		http.Error(w, "Invalid phone number", http.StatusBadRequest)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := partyService.RenameParty(r.Context(), phone, req.Name); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "Contact not found", http.StatusNotFound)
			return
		}
		log.Printf("Error renaming contact %s: %v", phone, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	pool.GlobalPool.BroadcastEvent("contact_renamed", map[string]string{
		"identifier": phone,
		"name":       req.Name,
	})

	w.WriteHeader(http.StatusNoContent)
}

// ImportContacts takes pre-parsed (phone, name) rows and applies the batch
// atomically. The report says exactly which rows were created, matched to an
// existing contact, or rejected and why.
func ImportContacts(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}

	var req struct {
		Rows []services.ImportRow `json:"rows" validate:"required,min=1"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	report, err := importService.ImportContacts(r.Context(), req.Rows)
	if err != nil {
		log.Printf("Error importing contacts: %v", err)
		http.Error(w, "Import failed", http.StatusInternalServerError)
		return
	}

	if len(report.Created) > 0 {
		pool.GlobalPool.BroadcastEvent("contacts_imported", map[string]int{
			"created": len(report.Created),
		})
	}

	writeJSON(w, http.StatusOK, report)
}
