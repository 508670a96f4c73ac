// Package chi exposes the assistant over HTTP: one query endpoint, one
// reindex endpoint, plus health and metrics.
package chi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mkraev/mathnotes/internal/domain"
	"github.com/mkraev/mathnotes/internal/logger"
)

// Assistant is the consumer interface over the core pipeline.
type Assistant interface {
	Query(ctx context.Context, question string) (domain.Answer, error)
	Reindex(ctx context.Context) error
	PageCount(ctx context.Context) (int, error)
}

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server handles the HTTP API.
type Server struct {
	assistant Assistant
	health    HealthChecker
	logger    *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(assistant Assistant, health HealthChecker, logger *zap.Logger) *Server {
	return &Server{assistant: assistant, health: health, logger: logger}
}

// Routes mounts all handlers on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/query", s.handleQuery)
	r.Post("/api/reindex", s.handleReindex)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
}

type queryRequest struct {
	Question string `json:"question"`
}

type queryResponse struct {
	Answer   string   `json:"answer"`
	Images   []string `json:"images"`
	Captions []string `json:"captions"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	ans, err := s.assistant.Query(r.Context(), req.Question)
	if err != nil {
		logger.FromContext(r.Context()).Error("Query failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Answer:   ans.Text,
		Images:   ans.Images,
		Captions: ans.Captions,
	})
}

type reindexResponse struct {
	Status string `json:"status"`
	Pages  int    `json:"pages"`
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if err := s.assistant.Reindex(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("Reindex failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "reindex failed")
		return
	}

	count, err := s.assistant.PageCount(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Warn("Failed to count page units", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, reindexResponse{Status: "ok", Pages: count})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
