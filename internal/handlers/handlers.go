package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	"ChatDesk/server/internal/config"
	"ChatDesk/server/internal/media"
	"ChatDesk/server/internal/provider"
	"ChatDesk/server/internal/services"
)

var (
	cfg            *config.Config
	userService    *services.UserService
	partyService   services.PartyService
	chatService    services.ChatService
	groupService   services.GroupService
	importService  services.ImportService
	providerClient *provider.Client
	mediaStore     *media.Store
	validate       *validator.Validate
)

// Setup wires the handler package once at startup. The business party
// identifier and provider credentials come from cfg and are passed down
// explicitly from here on.
func Setup(c *config.Config) {
	cfg = c
	userService = services.NewUserService()
	partyService = services.NewPartyService()
	chatService = services.NewChatService()
	groupService = services.NewGroupService()
	importService = services.NewImportService()
	providerClient = provider.NewClient(c.Provider)
	mediaStore = media.NewStore(c.Media)
	validate = validator.New()
}

func currentUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.Context().Value("user_id")
	if raw == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return 0, false
	}
	userID, ok := raw.(int)
	if !ok {
		http.Error(w, "Invalid user ID in context", http.StatusInternalServerError)
		return 0, false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
