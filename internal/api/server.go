package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docedit/internal/config"
	"github.com/dgallion1/docedit/internal/session"
	"github.com/dgallion1/docedit/internal/store"
)

// Server is the HTTP API server for docedit.
type Server struct {
	router   chi.Router
	sessions *session.Store
	docs     *store.Store
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(sessions *session.Store, docs *store.Store, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		sessions: sessions,
		docs:     docs,
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/documents", s.handleOpenDocument)
		r.Get("/api/documents", s.handleListDocuments)
		r.Get("/api/documents/{sessionID}", s.handleInspectDocument)
		r.Post("/api/documents/{sessionID}/edits", s.handleEdits)
		r.Post("/api/documents/{sessionID}/import", s.handleImport)
		r.Get("/api/documents/{sessionID}/file", s.handleDownload)
		r.Delete("/api/documents/{sessionID}", s.handleCloseDocument)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
