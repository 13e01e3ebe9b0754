// Package api provides the HTTP surface of Parafeur: the public signing
// endpoints clients reach through their links, and the operator-facing
// document and notification endpoints.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/parafeur/parafeur/internal/logging"
	"github.com/parafeur/parafeur/internal/notifications"
	"github.com/parafeur/parafeur/internal/signing"
	"github.com/parafeur/parafeur/internal/storage"
)

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server

	signing             *signing.Service
	documents           *storage.DocumentStore
	notificationService *notifications.Service
	wsHub               *WebSocketHub
}

// Config for the server
type Config struct {
	Host                string
	Port                int
	Signing             *signing.Service
	Documents           *storage.DocumentStore
	NotificationService *notifications.Service
}

// New creates a new API server
func New(cfg Config) *Server {
	s := &Server{
		signing:             cfg.Signing,
		documents:           cfg.Documents,
		notificationService: cfg.NotificationService,
		wsHub:               NewWebSocketHub(),
	}

	s.setupRouter()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRouter configures all routes
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS: the signing page is served from the main site, not this origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Public signing surface
		signAPI := NewSigningAPI(s.signing)
		r.Get("/sign/{token}", signAPI.handleResolve)
		r.Post("/sign/{token}", signAPI.handleSign)

		// Operator document endpoints
		if s.documents != nil {
			docsAPI := NewDocumentsAPI(s.documents)
			r.Get("/documents", docsAPI.handleListDocuments)
			r.Get("/documents/{kind}/{id}", docsAPI.handleGetDocument)
		}

		// Notification center
		if s.notificationService != nil {
			notifAPI := NewNotificationsAPI(s.notificationService)
			r.Get("/notifications", notifAPI.handleGetNotifications)
			r.Post("/notifications", notifAPI.handleCreateNotification)
			r.Get("/notifications/unread-count", notifAPI.handleGetUnreadCount)
			r.Post("/notifications/read-all", notifAPI.handleMarkAllNotificationsRead)
			r.Get("/notifications/{id}", notifAPI.handleGetNotification)
			r.Post("/notifications/{id}/read", notifAPI.handleMarkNotificationRead)
			r.Post("/notifications/{id}/dismiss", notifAPI.handleDismissNotification)
		}
	})

	// WebSocket notification feed
	r.Get("/ws", s.wsHub.handleWebSocket)

	s.router = r
}

// Start starts the HTTP server and wires the live notification feed
func (s *Server) Start() error {
	go s.wsHub.Run()
	if s.notificationService != nil {
		s.notificationService.Subscribe(newHubSubscriber(s.wsHub))
	}

	logging.WithField("addr", s.httpServer.Addr).Info("API server starting")
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.wsHub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Response helpers ---

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
