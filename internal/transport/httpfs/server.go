// Package httpfs is the shared HTTP shim for fact services: parse body,
// validate pattern, fetch, resolve, write envelope. Each backend plugs in
// as a schema + fetcher pair; the wire protocol is identical for all.
//
// Protocol compatibility: every answer is HTTP 200. Callers tell success
// from failure by body shape ("Found" vs "Error"), not by status code.
package httpfs

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/factgrid/factserve/internal/facts"
	"github.com/factgrid/factserve/internal/logger"
	"github.com/factgrid/factserve/internal/metrics"
	"github.com/factgrid/factserve/internal/usecase/search"
)

const (
	// SearchPath is the single accepted route.
	SearchPath = "/facts/search"

	advisoryBody  = "You should POST with json.\n"
	wrongPathBody = "Only can do /facts/search."

	maxBodyBytes = 1 << 20
)

// Server serves one fact service over the fixed wire protocol.
type Server struct {
	name    string
	service *search.Service
}

// NewServer creates a fact service HTTP server.
func NewServer(name string, service *search.Service) *Server {
	return &Server{name: name, service: service}
}

// Routes builds the service router: POST /facts/search answers queries, any
// GET gets the plaintext advisory, everything else gets the wrong-path
// envelope. All with status 200, as existing callers expect.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post(SearchPath, s.handleSearch)
	r.Get("/*", s.handleAdvisory)
	r.Get("/", s.handleAdvisory)
	r.NotFound(s.handleWrongPath)
	r.MethodNotAllowed(s.handleWrongPath)
	return r
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	result, err := s.service.Search(r.Context(), body)
	if err != nil {
		logger.FromContext(r.Context()).Warn("search failed", zap.Error(err))
		metrics.ResolutionsTotal.WithLabelValues(s.name, outcomeForError(err)).Inc()
		writeJSON(w, facts.ErrorEnvelope{Error: err.Error()})
		return
	}

	metrics.ResolutionsTotal.WithLabelValues(s.name, outcomeForResult(result)).Inc()
	writeJSON(w, result)
}

func (s *Server) handleAdvisory(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(advisoryBody))
}

func (s *Server) handleWrongPath(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, facts.ErrorEnvelope{Error: wrongPathBody})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

func outcomeForError(err error) string {
	if errors.Is(err, facts.ErrInvalidPattern) {
		return "invalid_pattern"
	}
	return "backend_error"
}

func outcomeForResult(result facts.Result) string {
	if len(result.Found) > 0 && len(result.Found[0].Bindingss) > 0 {
		return "found"
	}
	return "empty"
}
