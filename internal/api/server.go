package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baznta/legal-intel-dashboard/internal/store"
)

// DocumentStore is the part of the store used by the API.
type DocumentStore interface {
	GetMetadata(ctx context.Context, documentID uuid.UUID) (*store.MetadataRecord, error)
	GetDocument(ctx context.Context, documentID uuid.UUID) (*store.Document, error)
	ListDocuments(ctx context.Context, f store.DocumentFilter) ([]store.Document, error)
	UpdateStatus(ctx context.Context, documentID uuid.UUID, status, message string) error
	Dashboard(ctx context.Context) (*store.Dashboard, error)
	Breakdown(ctx context.Context, field string) (*store.Breakdown, error)
	UploadTrends(ctx context.Context, days int) (*store.Trends, error)
	Ping(ctx context.Context) error
}

// Publisher emits pipeline events.
type Publisher interface {
	Publish(subject string, data any) error
}

// Broker reports the state of the event bus connection.
type Broker interface {
	Connected() bool
}

type Server struct {
	router *chi.Mux
	http   *http.Server
	db     DocumentStore
	pub    Publisher
	broker Broker
	logger *slog.Logger
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithPublisher enables POST /documents/{id}/reprocess.
func WithPublisher(p Publisher) Option {
	return func(s *Server) { s.pub = p }
}

// WithBroker adds the event bus connection to the readiness check.
func WithBroker(b Broker) Option {
	return func(s *Server) { s.broker = b }
}

// NewServer builds the HTTP API. db may be nil, in which case the routes
// that read stored documents answer 503.
func NewServer(port int, apiToken string, db DocumentStore, logger *slog.Logger, opts ...Option) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		db:     db,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	router.Get("/health", s.health)
	router.Get("/ready", s.ready)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/extract", s.extract)

		r.Group(func(r chi.Router) {
			r.Use(s.requireStore)
			r.Get("/documents", s.listDocuments)
			r.Get("/documents/{id}", s.getDocument)
			r.Get("/documents/{id}/status", s.documentStatus)
			r.Get("/documents/{id}/metadata", s.metadata)
			r.Post("/documents/{id}/reprocess", s.reprocess)
			r.Get("/dashboard", s.dashboard)
			r.Get("/dashboard/agreement-types", s.breakdown("agreement_type"))
			r.Get("/dashboard/jurisdictions", s.breakdown("jurisdiction"))
			r.Get("/dashboard/trends", s.trends)
		})
	})

	return s
}

// Start serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ready reports whether the database, and the event bus when one is
// configured, are reachable.
func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "no store"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "database unavailable"})
		return
	}
	if s.broker != nil && !s.broker.Connected() {
		s.logger.Warn("readiness check failed", "error", "nats disconnected")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "nats disconnected"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// requireStore answers 503 for routes that need the database when none is
// configured.
func (s *Server) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.db == nil {
			writeError(w, http.StatusServiceUnavailable, "store not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
