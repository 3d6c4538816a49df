// Package api serves the analytics stream and the operational endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "product-analytics/internal/common/errors"
	"product-analytics/internal/common/logger"
	"product-analytics/internal/common/metrics"
	"product-analytics/internal/common/observability"
	"product-analytics/internal/common/validation"
	streamanalytics "product-analytics/internal/workers/analytics/stream-analytics"
)

// Streamer runs the analytics pipeline for one query.
type Streamer interface {
	Execute(ctx context.Context, input *streamanalytics.Input, w streamanalytics.ChunkWriter) (*streamanalytics.Output, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	router   chi.Router
	stream   Streamer
	db       Pinger
	limiter  *RateLimiter
	errors   *apperrors.ErrorHandler
	obs      *observability.Observability
	metrics  http.Handler
	logger   logger.Logger
	readyTTL time.Duration
}

// Options holds the optional collaborators of a Server.
type Options struct {
	Limiter        *RateLimiter
	Observability  *observability.Observability
	MetricsHandler http.Handler
}

func NewServer(stream Streamer, db Pinger, log logger.Logger, opts Options) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		stream:   stream,
		db:       db,
		limiter:  opts.Limiter,
		errors:   apperrors.NewErrorHandler(log),
		obs:      opts.Observability,
		metrics:  opts.MetricsHandler,
		logger:   log,
		readyTTL: 2 * time.Second,
	}
	if s.obs == nil {
		s.obs = &observability.Observability{}
	}
	if s.metrics == nil {
		s.metrics = promhttp.Handler()
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestID)
	s.router.Use(RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ready", s.handleReady)
	s.router.Method(http.MethodGet, "/metrics", s.metrics)

	s.router.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}
		r.Get("/api/analytics", s.handleAnalytics)
	})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if result := validation.ValidateQuery(query); !result.Valid {
		s.errors.WriteError(w, r, apperrors.NewInvalidRequestError(result.Error()))
		return
	}

	start := time.Now()
	metrics.StreamsActive.Inc()
	defer metrics.StreamsActive.Dec()

	sse := newSSEWriter(w)
	output, err := s.stream.Execute(r.Context(), &streamanalytics.Input{Query: query}, sse)

	outcome := string(streamanalytics.OutcomeAborted)
	if output != nil && output.Outcome != "" {
		outcome = string(output.Outcome)
	}
	s.obs.RecordRequest(r.Context(), outcome)
	s.obs.RecordRequestDuration(r.Context(), time.Since(start), outcome)

	if err == nil || sse.Started() {
		return
	}
	if errors.Is(err, streamanalytics.ErrClientGone) {
		return
	}
	s.errors.WriteError(w, r, err)
}

type statusResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, statusResponse{Status: "healthy", Time: time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.readyTTL)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", map[string]interface{}{
			"error": err,
		})
		respondJSON(w, http.StatusServiceUnavailable, statusResponse{
			Status: "unavailable",
			Time:   time.Now().UTC().Format(time.RFC3339),
			Error:  "database unreachable",
		})
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{Status: "ready", Time: time.Now().UTC().Format(time.RFC3339)})
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
