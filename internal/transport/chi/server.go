// Package chi exposes the catalog query service over HTTP.
package chi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	gochi "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/domain/answer"
	doming "github.com/kailas-cloud/catalograg/internal/domain/ingest"
	"github.com/kailas-cloud/catalograg/internal/metrics"
	healthuc "github.com/kailas-cloud/catalograg/internal/usecase/health"
	"github.com/kailas-cloud/catalograg/internal/usecase/ingest"
	"github.com/kailas-cloud/catalograg/internal/usecase/schema"
)

// DefaultMaxUploadBytes bounds POST /upload bodies.
const DefaultMaxUploadBytes = 32 << 20

// Server holds the HTTP handlers.
type Server struct {
	engine    QueryEngine
	ingester  Ingester
	analyzer  SchemaAnalyzer
	index     IndexAdmin
	health    HealthChecker
	maxUpload int64
	logger    *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	engine QueryEngine,
	ingester Ingester,
	analyzer SchemaAnalyzer,
	index IndexAdmin,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:    engine,
		ingester:  ingester,
		analyzer:  analyzer,
		index:     index,
		health:    health,
		maxUpload: DefaultMaxUploadBytes,
		logger:    logger,
	}
}

// WithMaxUploadBytes overrides the upload size limit.
func (s *Server) WithMaxUploadBytes(n int64) *Server {
	if n > 0 {
		s.maxUpload = n
	}
	return s
}

// NewRouter mounts every route behind the standard middleware stack.
func NewRouter(s *Server, apiKeys []string, logger *zap.Logger) http.Handler {
	r := gochi.NewRouter()
	r.Use(JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(logger))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r gochi.Router) {
		r.Use(RequireAPIKey(apiKeys))
		r.Post("/query", s.Query)
		r.Get("/history", s.History)
		r.Get("/stats", s.Stats)
		r.Post("/upload", s.Upload)
		r.Post("/ingest", s.IngestDirectory)
		r.Delete("/index", s.DeleteIndex)
	})
	return r
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query string `json:"query"`
}

// HistoryResponse is the body of GET /history.
type HistoryResponse struct {
	Items []answer.Record `json:"items"`
	Total int             `json:"total"`
}

// UploadResponse is the body of POST /upload.
type UploadResponse struct {
	Schema    schema.TableProfile `json:"schema"`
	Ingestion doming.TableResult  `json:"ingestion"`
}

// IngestRequest is the body of POST /ingest.
type IngestRequest struct {
	Directory string `json:"directory"`
}

// Query handles POST /query. Degraded and failed answers are still 200:
// a catastrophic failure is reported in the record's error field.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "query is required")
		return
	}

	writeJSON(w, http.StatusOK, s.engine.Answer(r.Context(), req.Query))
}

// History handles GET /history.
func (s *Server) History(w http.ResponseWriter, _ *http.Request) {
	items := s.engine.History().List()
	writeJSON(w, http.StatusOK, HistoryResponse{Items: items, Total: len(items)})
}

// Stats handles GET /stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Upload handles POST /upload: multipart field "file" holding a .csv or .parquet table.
// The table is profiled, then ingested under its file stem.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "upload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "multipart field \"file\" is required")
		return
	}
	defer func() { _ = file.Close() }()

	if !ingest.IsTableFile(header.Filename) {
		writeError(w, http.StatusBadRequest, CodeUnsupportedFormat, "only .csv and .parquet files are supported")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "failed to read upload")
		return
	}

	table, err := ingest.ReadTable(bytes.NewReader(data), header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "unreadable table: "+err.Error())
		return
	}
	profile := s.analyzer.AnalyzeTable(r.Context(), table)

	res, err := s.ingester.IngestReader(r.Context(), bytes.NewReader(data), header.Filename)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{Schema: profile, Ingestion: res})
}

// IngestDirectory handles POST /ingest. Per-table failures are reported in the summary.
func (s *Server) IngestDirectory(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Directory == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "directory is required")
		return
	}

	results, err := s.ingester.IngestDirectory(r.Context(), req.Directory)
	if err != nil {
		s.logger.Warn("directory ingestion rejected", zap.Error(err))
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "directory is not readable")
		return
	}

	writeJSON(w, http.StatusOK, doming.Summarize(results))
}

// DeleteIndex handles DELETE /index.
func (s *Server) DeleteIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.index.DeleteAll(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, report)
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
