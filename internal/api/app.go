package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/chitchat-im/chitchat/internal/config"
	"github.com/chitchat-im/chitchat/internal/database"
	"github.com/chitchat-im/chitchat/internal/server"
	"github.com/chitchat-im/chitchat/internal/stats"
	"github.com/gorilla/handlers"
)

type ChitChatApp struct {
	log            *log.Logger
	db             database.ChitChatRepository
	mux            *http.Server
	cs             *server.ChatServer
	stats          stats.StatsProvider
	signingKey     []byte
	allowedOrigins []string
}

func NewChitChatApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, db database.ChitChatRepository, su stats.StatsProvider, cfg *config.Config) *ChitChatApp {
	s := &ChitChatApp{
		log:            logger,
		db:             db,
		cs:             cs,
		stats:          su,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.Handle("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("PUT /api/account", s.authMiddleware(s.updateAccount))
	mux.Handle("GET /api/messages/contacts", s.authMiddleware(s.getContacts))
	mux.Handle("GET /api/messages/chats", s.authMiddleware(s.getChats))
	mux.Handle("GET /api/messages/{userId}", s.authMiddleware(s.getMessages))
	mux.Handle("POST /api/messages/send/{userId}", s.authMiddleware(s.sendMessage))
	mux.Handle("POST /api/messages/forward", s.authMiddleware(s.forwardMessage))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))
	mux.HandleFunc("GET /api/health", s.health)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *ChitChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *ChitChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
