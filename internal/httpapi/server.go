// Package httpapi exposes the collector's ingestion and read endpoints.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/netradar/netradar/internal/domain"
	apimw "github.com/netradar/netradar/internal/httpapi/middleware"
	"github.com/netradar/netradar/internal/ingest"
	"github.com/netradar/netradar/internal/query"
)

type Server struct {
	Logger   *zap.Logger
	Ingestor *ingest.Ingestor
	Queries  *query.Service
	APIKey   string
}

func NewServer(logger *zap.Logger, ing *ingest.Ingestor, q *query.Service, apiKey string) *Server {
	return &Server{Logger: logger, Ingestor: ing, Queries: q, APIKey: apiKey}
}

// Router builds the route tree. rateLimitPerMin <= 0 disables limiting.
func (s *Server) Router(rateLimitPerMin, burst int) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)
	r.Use(apimw.RateLimit(rateLimitPerMin, burst))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.With(apimw.RequireKey(s.APIKey)).Post("/api/ingest", s.handleIngest)

	r.Get("/api/status", s.handleStatus)
	r.Get("/api/target/{name}", s.handleTargetHistory)
	r.Get("/api/summary", s.handleSummary)

	return r
}

type ingestPayload struct {
	AgentID string                 `json:"agent_id"`
	Checks  *[]domain.CheckOutcome `json:"checks"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var p ingestPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Checks == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	agentID := p.AgentID
	if agentID == "" {
		agentID = "unknown"
	}

	n, err := s.Ingestor.IngestBatch(r.Context(), agentID, *p.Checks)
	if err != nil {
		s.Logger.Error("ingest_failed",
			zap.String("agent_id", agentID),
			zap.Int("persisted", n),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}

	s.Logger.Info("batch_ingested",
		zap.String("agent_id", agentID),
		zap.Int("received", n),
	)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "received": n})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	hours := queryInt(r, "hours", 1)
	snap, err := s.Queries.Snapshot(r.Context(), hours)
	if err != nil {
		s.Logger.Error("status_query_failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleTargetHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	hours := queryInt(r, "hours", 24)

	history, err := s.Queries.TargetHistory(r.Context(), name, hours)
	if err != nil {
		s.Logger.Error("history_query_failed", zap.String("target", name), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	if len(history) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "target not found or no recent data"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"target": name, "history": history})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.Queries.Summary(r.Context())
	if err != nil {
		s.Logger.Error("summary_query_failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
