// Package http exposes the label backend and the page decorator over HTTP.
//
// Routes:
//
//	GET  /labels/{identifier}  SPARQL JSON results for an identifier
//	POST /decorate             decorated copy of an HTML page
//	GET  /health               aggregated health status
//	GET  /metrics              Prometheus metrics
package http

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/tledoux/spar-mets-viewer/decorate"
	"github.com/tledoux/spar-mets-viewer/errors"
	"github.com/tledoux/spar-mets-viewer/health"
	"github.com/tledoux/spar-mets-viewer/labels"
	"github.com/tledoux/spar-mets-viewer/metric"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// LabelledHeader reports how many elements /decorate labelled.
const LabelledHeader = "X-Labelled-Elements"

// Config configures the HTTP surface.
type Config struct {
	// Timeout bounds label lookups and decoration per request.
	Timeout        time.Duration
	MaxRequestSize int64
	MetricsPath    string
	Languages      []string
}

// Dependencies are the components served over HTTP. Decorator and Monitor
// are optional; their routes are not registered when nil.
type Dependencies struct {
	Labels    *labels.Service
	Decorator *decorate.Decorator
	Monitor   *health.Monitor
	Registry  *metric.MetricsRegistry
	Logger    *slog.Logger
}

// Server routes viewer requests.
type Server struct {
	config     Config
	labels     *labels.Service
	decorator  *decorate.Decorator
	monitor    *health.Monitor
	registry   *metric.MetricsRegistry
	metrics    *metric.Metrics
	negotiator *Negotiator
	logger     *slog.Logger
	router     *mux.Router
}

// NewServer creates the server and its routes.
func NewServer(cfg Config, deps Dependencies) (*Server, error) {
	if deps.Labels == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Server", "New", "label service is required")
	}
	if cfg.MaxRequestSize <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Server", "New",
			fmt.Sprintf("max request size must be positive, got %d", cfg.MaxRequestSize))
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:     cfg,
		labels:     deps.Labels,
		decorator:  deps.Decorator,
		monitor:    deps.Monitor,
		registry:   deps.Registry,
		metrics:    deps.Registry.CoreMetrics(),
		negotiator: NewNegotiator(cfg.Languages),
		logger:     logger.With("component", "http"),
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	// identifiers may be IRIs holding "//"
	r := mux.NewRouter().SkipClean(true)
	r.Use(s.requestID, s.observe)

	r.HandleFunc("/labels/{identifier:.+}", s.handleLabels).Methods(http.MethodGet)
	if s.decorator != nil {
		r.HandleFunc("/decorate", s.handleDecorate).Methods(http.MethodPost)
	}
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.registry != nil {
		r.Handle(s.config.MetricsPath, s.registry.Handler()).Methods(http.MethodGet)
	}

	r.NotFoundHandler = s.requestID(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "resource not found")
	}))
	r.MethodNotAllowedHandler = s.requestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method))
	}))
	return r
}

func (s *Server) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.Timeout)
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	identifier := mux.Vars(r)["identifier"]
	lang := s.negotiator.Resolve(r)

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	results, err := s.labels.Lookup(ctx, identifier, lang)
	if err != nil {
		s.logger.Warn("label lookup failed",
			"request_id", w.Header().Get(RequestIDHeader), "identifier", identifier, "error", err)
		writeError(w, http.StatusBadGateway, sanitizeError(err))
		return
	}

	w.Header().Set("Content-Language", lang)
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleDecorate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	// Read size limit + 1 to detect oversized pages
	body, err := io.ReadAll(io.LimitReader(r.Body, s.config.MaxRequestSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if int64(len(body)) > s.config.MaxRequestSize {
		err := errors.WrapInvalid(fmt.Errorf("%w: more than %d bytes", errors.ErrRequestTooLarge, s.config.MaxRequestSize),
			"Server", "handleDecorate", "read page")
		s.logger.Debug("page rejected", "request_id", w.Header().Get(RequestIDHeader), "error", err)
		writeError(w, mapErrorToHTTPStatus(err), sanitizeError(err))
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()
	ctx = decorate.WithLanguage(ctx, s.negotiator.Resolve(r))

	var out bytes.Buffer
	stats, err := s.decorator.DecorateHTML(ctx, bytes.NewReader(body), &out)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), sanitizeError(err))
		return
	}

	s.logger.Debug("page decorated",
		"request_id", w.Header().Get(RequestIDHeader),
		"elements", stats.Elements, "lookups", stats.Lookups, "labelled", stats.Labelled)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(LabelledHeader, strconv.Itoa(stats.Labelled))
	w.WriteHeader(http.StatusOK)
	_, _ = out.WriteTo(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := health.NewHealthy("sparviewer", "no checks registered")
	if s.monitor != nil {
		status = s.monitor.Check(r.Context())
	}

	code := http.StatusOK
	if status.IsUnhealthy() {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// requestID propagates or generates the request id.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// observe records request metrics per route template.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.RecordRequest(route, strconv.Itoa(rec.status))
		s.logger.Debug("request served",
			"request_id", w.Header().Get(RequestIDHeader),
			"method", r.Method, "route", route, "status", rec.status,
			"duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func isTimeout(err error) bool {
	return stderrors.Is(err, errors.ErrConnectionTimeout) || stderrors.Is(err, context.DeadlineExceeded)
}

// mapErrorToHTTPStatus maps classified errors to HTTP status codes
func mapErrorToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case stderrors.Is(err, errors.ErrRequestTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.IsInvalid(err):
		return http.StatusBadRequest
	case errors.IsTransient(err):
		if isTimeout(err) {
			return http.StatusGatewayTimeout
		}
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// sanitizeError returns a safe error message for external clients
func sanitizeError(err error) string {
	switch {
	case err == nil:
		return "internal server error"
	case stderrors.Is(err, errors.ErrRequestTooLarge):
		return "request body too large"
	case errors.IsInvalid(err):
		return "invalid request"
	case errors.IsTransient(err):
		if isTimeout(err) {
			return "request timeout"
		}
		return "service temporarily unavailable"
	default:
		return "internal server error"
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	data, _ := json.Marshal(map[string]any{
		"error":  message,
		"status": statusCode,
	})
	_, _ = w.Write(data)
}
