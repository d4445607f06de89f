// Package chi exposes the pipeline over a JSON HTTP API.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/scribe-cloud/quill/internal/domain"
	"github.com/scribe-cloud/quill/internal/metrics"
	healthuc "github.com/scribe-cloud/quill/internal/usecase/health"
	pipelineuc "github.com/scribe-cloud/quill/internal/usecase/pipeline"
)

// pipelineService is the orchestrator surface consumed by the HTTP layer.
type pipelineService interface {
	GenerateTitle(ctx context.Context, req pipelineuc.TitleRequest) (string, error)
	GenerateDescription(ctx context.Context, req pipelineuc.DescriptionRequest) (string, error)
	ExpandContent(ctx context.Context, req pipelineuc.ExpandRequest) (string, error)
	ImproveCVSection(ctx context.Context, req pipelineuc.CVSectionRequest) (string, error)
	MatchCV(ctx context.Context, req pipelineuc.MatchRequest) (string, error)
}

// healthService aggregates dependency checks.
type healthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Server is the HTTP API server.
type Server struct {
	pipeline pipelineService
	health   healthService
	apiKeys  []string
	logger   *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(pipeline pipelineService, health healthService, apiKeys []string, logger *zap.Logger) *Server {
	return &Server{pipeline: pipeline, health: health, apiKeys: apiKeys, logger: logger}
}

// Router builds the chi router with middleware and all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(jsonRecoverer(s.logger))
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(s.apiKeys))

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/titles", s.handleGenerateTitle)
		r.Post("/descriptions", s.handleGenerateDescription)
		r.Post("/content/expand", s.handleExpandContent)
		r.Post("/cv/sections", s.handleImproveCVSection)
		r.Post("/cv/match", s.handleMatchCV)
	})

	return r
}

type titleRequest struct {
	Content  string `json:"content"`
	Category string `json:"category"`
	Locale   string `json:"locale"`
}

type cvSectionRequest struct {
	Section string `json:"section"`
	Text    string `json:"text"`
	Locale  string `json:"locale"`
}

type matchRequest struct {
	CV     string `json:"cv"`
	Job    string `json:"job"`
	Locale string `json:"locale"`
}

type textResponse struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleGenerateTitle(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if !s.decode(w, r, &req) {
		return
	}

	text, err := s.pipeline.GenerateTitle(r.Context(), pipelineuc.TitleRequest{
		Content:  req.Content,
		Category: req.Category,
		Locale:   req.Locale,
	})
	if err != nil {
		s.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text})
}

func (s *Server) handleGenerateDescription(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if !s.decode(w, r, &req) {
		return
	}

	text, err := s.pipeline.GenerateDescription(r.Context(), pipelineuc.DescriptionRequest{
		Content:  req.Content,
		Category: req.Category,
		Locale:   req.Locale,
	})
	if err != nil {
		s.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text})
}

func (s *Server) handleExpandContent(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if !s.decode(w, r, &req) {
		return
	}

	text, err := s.pipeline.ExpandContent(r.Context(), pipelineuc.ExpandRequest{
		Content:  req.Content,
		Category: req.Category,
		Locale:   req.Locale,
	})
	if err != nil {
		s.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text})
}

func (s *Server) handleImproveCVSection(w http.ResponseWriter, r *http.Request) {
	var req cvSectionRequest
	if !s.decode(w, r, &req) {
		return
	}

	text, err := s.pipeline.ImproveCVSection(r.Context(), pipelineuc.CVSectionRequest{
		Section: req.Section,
		Text:    req.Text,
		Locale:  req.Locale,
	})
	if err != nil {
		s.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text})
}

func (s *Server) handleMatchCV(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if !s.decode(w, r, &req) {
		return
	}

	text, err := s.pipeline.MatchCV(r.Context(), pipelineuc.MatchRequest{
		CV:     req.CV,
		Job:    req.Job,
		Locale: req.Locale,
	})
	if err != nil {
		s.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// kindStatus maps every pipeline error kind to an HTTP status.
var kindStatus = map[domain.ErrorKind]int{
	domain.KindRateLimited:       http.StatusTooManyRequests,
	domain.KindUpstreamBlocked:   http.StatusUnprocessableEntity,
	domain.KindUpstreamMalformed: http.StatusBadGateway,
	domain.KindTimeout:           http.StatusGatewayTimeout,
	domain.KindNotFound:          http.StatusNotFound,
	domain.KindInternal:          http.StatusInternalServerError,
}

// writePipelineError renders the stable error contract. Callers see a kind
// and a message, never raw transport errors.
func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	perr := toPipelineError(err)

	status, ok := kindStatus[perr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Pipeline request failed", zap.Error(err))
	} else {
		s.logger.Warn("Pipeline request rejected", zap.Error(err))
	}

	if perr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(perr.RetryAfter.Seconds())))
	}

	msg := perr.Message
	if perr.Kind == domain.KindInternal {
		msg = "internal error"
	}
	writeError(w, status, string(perr.Kind), msg)
}

func toPipelineError(err error) *domain.PipelineError {
	var perr *domain.PipelineError
	if errors.As(err, &perr) {
		return perr
	}
	return domain.ClassifyError(err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
