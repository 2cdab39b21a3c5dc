// Package httpserver provides the ScienceSwipe HTTP API: the two image
// generation functions, the feed and reaction endpoints used by browser
// clients, and health probes.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/helixir/scienceswipe/internal/database"
	"github.com/helixir/scienceswipe/internal/domain"
	"github.com/helixir/scienceswipe/internal/feed"
	"github.com/helixir/scienceswipe/internal/imagegen"
	"github.com/helixir/scienceswipe/internal/observability"
	"github.com/helixir/scienceswipe/internal/reaction"
)

// FeedService reads papers for the feed endpoints.
type FeedService interface {
	Feed(ctx context.Context, q feed.Query) ([]domain.Paper, error)
	FetchPaperByID(ctx context.Context, source domain.Source, id string) (domain.Paper, error)
}

// ImageService implements the image generation functions.
type ImageService interface {
	Generate(ctx context.Context, req imagegen.Request) (imagegen.Result, error)
	SavePrompt(ctx context.Context, source domain.Source, paperID, prompt string) error
}

// HealthChecker reports row store health.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Deps are the services behind the API.
type Deps struct {
	Feed      FeedService
	Images    ImageService
	Reactions reaction.Store
	// Publisher is optional; reaction events are dropped when nil.
	Publisher reaction.Publisher
	Health    HealthChecker
	Metrics   *observability.Metrics
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	feed       FeedService
	images     ImageService
	reactions  reaction.Store
	publisher  reaction.Publisher
	health     HealthChecker
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(cfg Config, deps Deps, logger zerolog.Logger) *Server {
	s := &Server{
		feed:      deps.Feed,
		images:    deps.Images,
		reactions: deps.Reactions,
		publisher: deps.Publisher,
		health:    deps.Health,
		metrics:   deps.Metrics,
		logger:    logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate-image", s.generateImage)
		r.Post("/generate-image/custom", s.generateCustomImage)

		r.Get("/papers", s.listPapers)
		r.Route("/papers/{paperID}", func(r chi.Router) {
			r.Get("/", s.getPaper)
			r.Put("/prompt", s.savePrompt)
			r.Group(func(r chi.Router) {
				r.Use(userIDMiddleware)
				r.Get("/reactions", s.getReactions)
				r.Post("/reactions", s.toggleReaction)
			})
		})
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports whether the row store is reachable. The feed
// still serves demo papers without it, so an unhealthy store only degrades.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "database": "disabled"})
		return
	}
	health := s.health.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// Headers are already sent; an encode error cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}
