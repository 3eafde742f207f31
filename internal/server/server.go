// Package server exposes the review pipeline over HTTP: synchronous and
// asynchronous analysis, session history, and health.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/thumbnail-reviewer/internal/config"
	"github.com/fpang/thumbnail-reviewer/internal/memory"
	"github.com/fpang/thumbnail-reviewer/internal/orchestrator"
	"github.com/fpang/thumbnail-reviewer/internal/review"
)

// Reviewer runs one review job. Satisfied by *orchestrator.Orchestrator.
type Reviewer interface {
	Review(ctx context.Context, req orchestrator.Request) (*review.ReviewResult, error)
}

// Server holds the HTTP surface. Construct with New.
type Server struct {
	Router   *chi.Mux
	cfg      *config.Config
	reviewer Reviewer
	store    memory.Store
	jobs     *jobRegistry
}

// New builds the router and wires the handlers.
func New(cfg *config.Config, reviewer Reviewer, store memory.Store) *Server {
	s := &Server{
		cfg:      cfg,
		reviewer: reviewer,
		store:    store,
		jobs:     newJobRegistry(),
	}

	r := chi.NewRouter()
	r.Use(withLogging)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/thumbnail/analyze", s.handleAnalyze)
		r.Post("/thumbnail/analyze_async", s.handleAnalyzeAsync)
		r.Get("/jobs/{jobID}", s.handleJobStatus)
		r.Get("/sessions/{sessionID}/history", s.handleHistory)
	})

	s.Router = r
	return s
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests.
// Responses are gzip-compressed when the client accepts it.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      gzhttp.GzipHandler(s.Router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown incomplete")
		}
	}()

	log.Info().Int("port", s.cfg.Server.Port).Msg("Starting review server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("API request")
	})
}
