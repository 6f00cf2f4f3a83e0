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

	"github.com/MikeSquared-Agency/curator/internal/pipeline"
	"github.com/MikeSquared-Agency/curator/internal/processor"
	"github.com/MikeSquared-Agency/curator/internal/sample"
)

// Curator starts curation runs.
type Curator interface {
	Curate(ctx context.Context, req processor.Request) (*pipeline.Report, error)
}

// SampleReader reads stored training samples.
type SampleReader interface {
	ListSamples(ctx context.Context, userID uuid.UUID, intent string, limit int) ([]sample.TrainingSample, error)
	CountByIntent(ctx context.Context, userID uuid.UUID) (map[string]int, error)
}

type Server struct {
	router  *chi.Mux
	http    *http.Server
	port    int
	curator Curator
	samples SampleReader
	logger  *slog.Logger
}

func NewServer(port int, apiToken string, curator Curator, samples SampleReader, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:  router,
		port:    port,
		curator: curator,
		samples: samples,
		logger:  logger,
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/curator/status", s.status)

	router.Route("/api/v1/users/{userID}", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/curate", s.curate)
		r.Get("/samples", s.listSamples)
		r.Get("/samples/intents", s.intentCounts)
	})

	return s
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "curator",
		"status":  "ready",
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
