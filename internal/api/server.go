package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/lehoanglam20000/ai-agent/internal/chat"
	"github.com/lehoanglam20000/ai-agent/internal/events"
	"github.com/lehoanglam20000/ai-agent/internal/leads"
	"github.com/lehoanglam20000/ai-agent/internal/store"
)

type Server struct {
	router   *chi.Mux
	port     int
	store    store.Store
	chat     *chat.Orchestrator
	analyzer *leads.Analyzer
	events   *events.Client // optional
	logger   *slog.Logger
}

func NewServer(port int, s store.Store, orch *chat.Orchestrator, analyzer *leads.Analyzer, ev *events.Client, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))

	srv := &Server{
		router:   router,
		port:     port,
		store:    s,
		chat:     orch,
		analyzer: analyzer,
		events:   ev,
		logger:   logger,
	}

	router.Post("/chat", srv.handleChat)
	router.Get("/conversations", srv.handleListConversations)
	router.Get("/conversation/{sessionID}", srv.handleGetConversation)
	router.Delete("/conversation/{sessionID}", srv.handleDeleteConversation)
	router.Post("/conversation/{sessionID}/analyze", srv.handleAnalyze)
	router.Get("/health", srv.handleHealth)

	return srv
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}
