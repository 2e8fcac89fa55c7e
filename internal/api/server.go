// Package api serves the admin settings endpoints and the storefront event
// intake over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/FairForge/webpixels/internal/admin"
	"github.com/FairForge/webpixels/internal/auth"
	"github.com/FairForge/webpixels/internal/config"
	"github.com/FairForge/webpixels/internal/metrics"
	"github.com/FairForge/webpixels/internal/pixel"
	"github.com/FairForge/webpixels/internal/settings"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// EventHandler relays one storefront event for a store.
type EventHandler interface {
	Handle(ctx context.Context, store string, ev pixel.Event) ([]pixel.Dispatch, error)
}

// Deps are the services the server routes to.
type Deps struct {
	Store    settings.Store
	Admin    *admin.Service
	Events   EventHandler
	Sessions *auth.Sessions
	Metrics  *metrics.Metrics
	Version  string
}

type Server struct {
	config     *config.Config
	logger     *zap.Logger
	router     chi.Router
	httpServer *http.Server
	deps       Deps
	limiter    *RateLimiter
	startTime  time.Time
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Deps) *Server {
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	s := &Server{
		config:    cfg,
		logger:    logger,
		router:    chi.NewRouter(),
		deps:      deps,
		limiter:   NewRateLimiter(cfg.Ingest.RequestsPerSecond, cfg.Ingest.Burst),
		startTime: time.Now(),
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.deps.Sessions.RequireSession)
			r.Get("/admin/pixel", s.handleGetPixel)
			r.Post("/admin/pixel", s.handleSubmitPixel)
		})

		r.With(s.rateLimitMiddleware).Post("/stores/{store}/events", s.handleEvent)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.respondJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.Int("port", s.config.Server.Port))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
