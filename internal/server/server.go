// Package server provides the HTTP server and routing for FactorLab.
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

	"github.com/aristath/factorlab/internal/database"
	"github.com/aristath/factorlab/internal/events"
	"github.com/aristath/factorlab/internal/modules/reports"
	"github.com/aristath/factorlab/internal/services"
)

// Config holds server configuration.
type Config struct {
	Log        zerolog.Logger
	ReportsDB  *database.DB
	Repo       *reports.Repository
	RunService *services.RunService
	Bus        *events.Bus
	Port       int
	DevMode    bool
}

// Server represents the HTTP server.
type Server struct {
	router     *chi.Mux
	server     *http.Server
	log        zerolog.Logger
	reportsDB  *database.DB
	repo       *reports.Repository
	runService *services.RunService
	bus        *events.Bus
	startedAt  time.Time
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		log:        cfg.Log.With().Str("component", "server").Logger(),
		reportsDB:  cfg.ReportsDB,
		repo:       cfg.Repo,
		runService: cfg.RunService,
		bus:        cfg.Bus,
		startedAt:  time.Now(),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// setupMiddleware configures middleware.
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes. The websocket route stays outside
// the timeout middleware group since progress connections are long-lived.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ws/progress", s.handleProgressSocket)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Route("/api", func(r chi.Router) {
			r.Post("/evaluate", s.handleEvaluate)

			r.Route("/runs", func(r chi.Router) {
				r.Get("/", s.handleListRuns)
				r.Get("/latest", s.handleLatestRun)
				r.Route("/{runID}", func(r chi.Router) {
					r.Get("/", s.handleGetRun)
					r.Get("/ranking", s.handleRanking)
					r.Get("/redundancy", s.handleRedundancy)
					r.Get("/suggestions", s.handleSuggestions)
					r.Get("/factors/{factorID}/ic", s.handleFactorRecord)
				})
			})
		})
	})
}

// loggingMiddleware logs each request with timing.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// Start begins serving HTTP requests. It blocks until the server exits.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("HTTP server shutting down")
	return s.server.Shutdown(ctx)
}
