package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"

	"ChatDesk/server/internal/appMiddleware"
	"ChatDesk/server/internal/config"
	"ChatDesk/server/internal/db"
	"ChatDesk/server/internal/handlers"
	"ChatDesk/server/internal/pool"
)

func main() {
	cfg := config.Load()

	db.InitDB(cfg.DatabaseURL)
	db.SeedBusinessParty(context.Background(), cfg.BusinessPartyID)
	pool.InitPresence(cfg.RedisURL)

	appMiddleware.SetJWTSecret(cfg.JWTSecret)
	handlers.Setup(cfg)

	r := chi.NewRouter()

	r.Use(appMiddleware.CorsMiddleware)

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/register", handlers.Register)
	r.Post("/login", handlers.Login)

	r.Get("/webhook", handlers.VerifyWebhook)
	r.Post("/webhook", handlers.ReceiveWebhook)

	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.AuthMiddleware)
		r.Get("/api/profile", handlers.GetProfile)
		r.Get("/api/operators/online", handlers.ListOnlineOperators)

		r.Get("/api/contacts", handlers.ListContacts)
		r.Post("/api/contacts", handlers.CreateContact)
		r.Post("/api/contacts/import", handlers.ImportContacts)
		r.Put("/api/contacts/{phone}/name", handlers.RenameContact)

		r.Get("/api/chats", handlers.GetConversations)
		r.Get("/api/chats/{phone}", handlers.GetConversation)
		r.Post("/api/chats/{phone}/read", handlers.MarkConversationRead)
		r.Post("/api/chats/{phone}/messages", handlers.SendMessage)

		r.Get("/api/groups", handlers.ListGroups)
		r.Post("/api/groups", handlers.CreateGroup)
		r.Put("/api/groups/{group_id}", handlers.UpdateGroup)
		r.Delete("/api/groups/{group_id}", handlers.DeleteGroup)
		r.Get("/api/groups/{group_id}/members", handlers.GetGroupMembers)
		r.Post("/api/groups/{group_id}/members", handlers.AddGroupMembers)
		r.Delete("/api/groups/{group_id}/members/{phone}", handlers.RemoveGroupMember)
		r.Post("/api/groups/{group_id}/broadcast", handlers.BroadcastToGroup)
	})

	r.Get("/ws", handlers.WebSocketHandler)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server started on port %s\n", addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %s\n", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	log.Println("Stopping the server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %s\n", err)
	}
	log.Println("Server has been successfully stopped")
}
