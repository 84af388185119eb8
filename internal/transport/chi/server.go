// Package chi exposes the HTTP API: fusion search, click telemetry,
// catalog ingestion and health.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	chiv5 "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/harborline/catalogsearch/internal/domain"
	"github.com/harborline/catalogsearch/internal/domain/query"
	"github.com/harborline/catalogsearch/internal/domain/rank"
	"github.com/harborline/catalogsearch/internal/domain/scope"
	"github.com/harborline/catalogsearch/internal/metrics"
	healthuc "github.com/harborline/catalogsearch/internal/usecase/health"
	ingestuc "github.com/harborline/catalogsearch/internal/usecase/ingest"
	retrievaluc "github.com/harborline/catalogsearch/internal/usecase/retrieval"
	telemetryuc "github.com/harborline/catalogsearch/internal/usecase/telemetry"
)

// errorCode is the machine-readable error discriminator in error bodies.
type errorCode string

const (
	codeBadRequest             errorCode = "bad_request"
	codeValidationFailed       errorCode = "validation_failed"
	codeNotFound               errorCode = "not_found"
	codeEmbeddingProviderError errorCode = "embedding_provider_error"
	codeInternalError          errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires the usecase services to HTTP handlers.
type Server struct {
	search        *retrievaluc.Service
	ingest        *ingestuc.Service
	telemetry     *telemetryuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *retrievaluc.Service,
	ingest *ingestuc.Service,
	telemetry *telemetryuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search:    search,
		ingest:    ingest,
		telemetry: telemetry,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidScope, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidObject, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidClick, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrObjectNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
	}
	return s
}

// Routes registers all API routes on the given router.
func (s *Server) Routes(r chiv5.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1/{tenant}", func(r chiv5.Router) {
		r.Post("/search", s.Search)
		r.Post("/clicks", s.RecordClick)
		r.Put("/objects/{type}/{id}", s.UpsertObject)
		r.Delete("/objects/{type}/{id}", s.DeleteObject)
	})
}

type searchRewrite struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
}

type searchRequest struct {
	OrgID       string          `json:"org_id,omitempty"`
	ObjectTypes []string        `json:"object_types,omitempty"`
	Rewrites    []searchRewrite `json:"rewrites"`
	PageSize    int             `json:"page_size,omitempty"`
}

type signalHit struct {
	Rank  int     `json:"rank"`
	Score float64 `json:"score"`
}

type searchResult struct {
	ObjectType string          `json:"object_type"`
	ObjectID   string          `json:"object_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	RawText    string          `json:"raw_text"`
	FusedScore float64         `json:"fused_score"`
	Rewrite    int             `json:"rewrite"` // 1-based winning rewrite
	Trigram    *signalHit      `json:"trigram,omitempty"`
	Tokens     *signalHit      `json:"tokens,omitempty"`
	Vector     *signalHit      `json:"vector,omitempty"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// Search handles POST /v1/{tenant}/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	tenant := chiv5.URLParam(r, "tenant")

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sc, err := scope.New(tenant, req.OrgID, req.ObjectTypes)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	rewrites := make([]query.Rewrite, len(req.Rewrites))
	for i, rw := range req.Rewrites {
		rewrites[i] = query.NewRewrite(rw.Text, rw.Embedding)
	}
	q, err := query.New(rewrites, req.PageSize)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	fused, err := s.search.Search(r.Context(), sc, q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	metrics.SearchRequestsTotal.WithLabelValues(tenant).Inc()
	metrics.SearchFusedResults.Observe(float64(len(fused)))

	writeJSON(w, http.StatusOK, searchResponse{Results: resultsToAPI(fused)})
}

func resultsToAPI(fused []rank.Fused) []searchResult {
	results := make([]searchResult, len(fused))
	for i, f := range fused {
		results[i] = searchResult{
			ObjectType: f.Key.Type,
			ObjectID:   f.Key.ID,
			Payload:    json.RawMessage(f.Payload),
			RawText:    f.RawText,
			FusedScore: f.FusedScore,
			Rewrite:    f.Rewrite,
			Trigram:    hitToAPI(f.Trigram),
			Tokens:     hitToAPI(f.Tokens),
			Vector:     hitToAPI(f.Vector),
		}
	}
	return results
}

func hitToAPI(h rank.SignalHit) *signalHit {
	if !h.Present() {
		return nil
	}
	return &signalHit{Rank: h.Rank, Score: h.Score}
}

type clickRequest struct {
	OrgID      string    `json:"org_id,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	QueryText  string    `json:"query_text"`
	ObjectType string    `json:"object_type"`
	ObjectID   string    `json:"object_id"`
	Rank       int       `json:"rank"`
	FusedScore float64   `json:"fused_score,omitempty"`
	ClickedAt  time.Time `json:"clicked_at,omitempty"`
}

// RecordClick handles POST /v1/{tenant}/clicks. A duplicate click is a
// silent success, so replayed beacons stay 202.
func (s *Server) RecordClick(w http.ResponseWriter, r *http.Request) {
	tenant := chiv5.URLParam(r, "tenant")

	var req clickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	err := s.telemetry.Record(r.Context(),
		tenant, req.OrgID, req.UserID, req.SessionID,
		req.QueryText, req.ObjectType, req.ObjectID,
		req.Rank, req.FusedScore, req.ClickedAt)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

type upsertRequest struct {
	OrgID   string          `json:"org_id,omitempty"`
	RawText string          `json:"raw_text"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// UpsertObject handles PUT /v1/{tenant}/objects/{type}/{id}.
func (s *Server) UpsertObject(w http.ResponseWriter, r *http.Request) {
	tenant := chiv5.URLParam(r, "tenant")
	objectType := chiv5.URLParam(r, "type")
	objectID := chiv5.URLParam(r, "id")

	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	err := s.ingest.Upsert(r.Context(), tenant, objectType, objectID, req.OrgID, req.RawText, req.Payload)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteObject handles DELETE /v1/{tenant}/objects/{type}/{id}.
// Retraction is idempotent: deleting an absent object is a success.
func (s *Server) DeleteObject(w http.ResponseWriter, r *http.Request) {
	tenant := chiv5.URLParam(r, "tenant")
	objectType := chiv5.URLParam(r, "type")
	objectID := chiv5.URLParam(r, "id")

	if err := s.ingest.Delete(r.Context(), tenant, objectType, objectID); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health. A degraded embedding provider keeps
// the process in rotation: search still serves lexical signals.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidScope,
		domain.ErrInvalidQuery,
		domain.ErrInvalidObject,
		domain.ErrInvalidClick,
		domain.ErrObjectNotFound,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
