// Package server provides the HTTP API over the decision engine: health,
// decision history and manual cycle triggering.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/kyrou/warden/internal/history"
	"github.com/kyrou/warden/internal/orchestrator"
)

// TriggerFunc runs one decision cycle on demand.
type TriggerFunc func(ctx context.Context) (*orchestrator.ConsensusResult, error)

// Config holds server configuration.
type Config struct {
	Log          zerolog.Logger
	Port         int
	DevMode      bool
	History      *history.Repository
	TriggerCycle TriggerFunc
}

// Server is the HTTP server.
type Server struct {
	router       *chi.Mux
	server       *http.Server
	log          zerolog.Logger
	history      *history.Repository
	triggerCycle TriggerFunc
	devMode      bool
	startupTime  time.Time
	port         int
}

// New creates the HTTP server and mounts all routes.
func New(cfg Config) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		log:          cfg.Log.With().Str("component", "server").Logger(),
		history:      cfg.History,
		triggerCycle: cfg.TriggerCycle,
		devMode:      cfg.DevMode,
		startupTime:  time.Now(),
		port:         cfg.Port,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/decisions", func(r chi.Router) {
			r.Get("/", s.handleListDecisions)
			r.Get("/latest", s.handleLatestDecision)
			r.Get("/{id}", s.handleGetDecision)
		})
		r.Post("/cycle/run", s.handleRunCycle)
	})
}

// Start begins listening. Blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the mux for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
