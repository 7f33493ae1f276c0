package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/cbc-history-etl/internal/domain"
	"github.com/couchcryptid/cbc-history-etl/internal/extract"
	"github.com/couchcryptid/cbc-history-etl/internal/pipeline"
	"github.com/couchcryptid/cbc-history-etl/internal/source"
	"github.com/couchcryptid/cbc-history-etl/internal/store"
)

// Extractor turns an uploaded export into a report.
type Extractor interface {
	Process(ctx context.Context, filename string, data []byte) (domain.Report, error)
}

// ReportReader looks up stored reports by ID.
type ReportReader interface {
	Get(ctx context.Context, id string) (domain.Report, error)
}

// Server exposes health, readiness and metrics endpoints, plus the
// synchronous extraction API when an Extractor is configured.
type Server struct {
	httpServer *http.Server
	extractor  Extractor
	reports    ReportReader
	maxBody    int64
	logger     *slog.Logger
}

// Option configures optional Server routes.
type Option func(*Server)

// WithExtractor enables POST /v1/extract. Bodies over maxBody bytes are
// rejected with 413.
func WithExtractor(e Extractor, maxBody int64) Option {
	return func(s *Server) {
		s.extractor = e
		s.maxBody = maxBody
	}
}

// WithReports enables GET /v1/reports/{id}. A nil reader leaves the route
// answering 404.
func WithReports(r ReportReader) Option {
	return func(s *Server) { s.reports = r }
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /v1 extraction routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, logger *slog.Logger, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: mux,
			// Uploads can be tens of megabytes.
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /v1/extract", s.handleExtract)
	mux.HandleFunc("GET /v1/reports/{id}", s.handleReport)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if s.extractor == nil {
		writeError(w, http.StatusNotFound, errors.New("extraction is not enabled"))
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = r.Header.Get("X-Filename")
	}

	body := io.Reader(r.Body)
	if s.maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, s.maxBody)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	report, err := s.extractor.Process(r.Context(), filename, data)
	if err != nil {
		status := extractStatus(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("extract request failed", "filename", filename, "error", err)
		}
		writeError(w, status, err)
		return
	}

	w.Header().Set("X-Report-Id", report.ID)
	writeJSON(w, http.StatusOK, report.Result)
}

// extractStatus maps a Process error to a response code. Size-limit messages
// reach the client verbatim.
func extractStatus(err error) int {
	switch {
	case errors.Is(err, extract.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, source.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, pipeline.ErrStore):
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.reports == nil {
		writeError(w, http.StatusNotFound, store.ErrNotFound)
		return
	}

	report, err := s.reports.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.logger.Error("report lookup failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
