package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/finsight/internal/application/analysis"
	"github.com/bryanwahyu/finsight/internal/domain/ai"
	"github.com/bryanwahyu/finsight/internal/domain/documents"
	"github.com/bryanwahyu/finsight/internal/domain/reports"
	"github.com/bryanwahyu/finsight/internal/middleware"
)

const (
	// room for multipart headers and the query field on top of the file limit
	multipartSlack = 1 << 20
	maxQueryBytes  = 4 * reports.MaxQueryRunes
)

var errBadRequest = errors.New("bad request")

// Options wires the router. Service and Metrics are required.
type Options struct {
	Service     *analysis.Service
	Logger      *zap.Logger
	Metrics     *middleware.Metrics
	Checkers    map[string]middleware.HealthChecker
	Info        middleware.ServiceInfo
	APIKeys     map[string]string
	RateLimiter *middleware.RateLimiter // nil disables rate limiting
	CORSOrigins []string
}

type Router struct {
	svc    *analysis.Service
	logger *zap.Logger
	index  []byte
	docs   []byte
}

func NewRouter(opts Options) (http.Handler, error) {
	if opts.Service == nil || opts.Metrics == nil {
		return nil, errors.New("httpserver: Service and Metrics are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	index, err := assets.ReadFile("assets/index.html")
	if err != nil {
		return nil, err
	}
	docs, err := renderDocs()
	if err != nil {
		return nil, fmt.Errorf("render docs: %w", err)
	}
	r := &Router{svc: opts.Service, logger: logger, index: index, docs: docs}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer(logger))
	mux.Use(middleware.Logging(logger))
	mux.Use(opts.Metrics.Middleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
		MaxAge:         300,
	}))
	// limit before auth so requests without a key are metered too
	if opts.RateLimiter != nil {
		mux.Use(middleware.RateLimit(opts.RateLimiter, "/health", "/ready", "/metrics"))
	}
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))

	mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "not found")
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	mux.Get("/", r.handleIndex)
	mux.Get("/docs", r.handleDocs)
	mux.Get("/health", middleware.LivenessHandler(opts.Info))
	mux.Get("/ready", middleware.ReadinessHandler(opts.Checkers))
	mux.Get("/metrics", opts.Metrics.Handler)
	mux.With(
		middleware.RequireMultipart,
		middleware.LimitBody(opts.Service.Policy.MaxBytes+multipartSlack),
	).Post("/analyze", r.wrap(r.handleAnalyze))

	return mux, nil
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status, msg := statusFor(err)
			if status >= http.StatusInternalServerError {
				r.logger.Error("request failed",
					zap.String("path", req.URL.Path),
					zap.String("request_id", middleware.GetRequestID(req.Context())),
					zap.String("client", middleware.GetClientFromContext(req.Context())),
					zap.Error(err))
			}
			middleware.WriteError(w, status, msg)
		}
	}
}

func statusFor(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, ai.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "ai quota exceeded"
	case errors.Is(err, ai.ErrNotConfigured):
		return http.StatusServiceUnavailable, err.Error()
	case errors.As(err, &maxBytes), errors.Is(err, documents.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, documents.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, documents.ErrNoText):
		return http.StatusUnprocessableEntity, documents.ErrNoText.Error()
	case errors.Is(err, documents.ErrMissingFile),
		errors.Is(err, documents.ErrEmpty),
		errors.Is(err, documents.ErrInvalidFilename),
		errors.Is(err, reports.ErrInvalidQuery),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, analysis.ErrGeneration):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, context.Canceled):
		// client went away; nobody will read this
		return 499, "request canceled"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// POST /analyze
// multipart: file (required), query (optional)
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	cmd, err := r.readUpload(req, r.svc.Policy.MaxBytes)
	if err != nil {
		r.svc.Reject(err)
		return err
	}

	rep, err := r.svc.Analyze(req.Context(), cmd)
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, rep)
	return nil
}

// readUpload streams the multipart body. The file part's name is checked
// before any of its bytes are read.
func (r *Router) readUpload(req *http.Request, limit int64) (analysis.AnalyzeCommand, error) {
	var cmd analysis.AnalyzeCommand
	mr, err := req.MultipartReader()
	if err != nil {
		return cmd, fmt.Errorf("%w: %v", errBadRequest, err)
	}

	haveFile := false
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return cmd, bodyError(err)
		}

		switch part.FormName() {
		case "file":
			if haveFile {
				part.Close()
				continue
			}
			if part.FileName() == "" {
				part.Close()
				return cmd, fmt.Errorf("%w: file field has no filename", documents.ErrInvalidFilename)
			}
			name := documents.BaseName(part.FileName())
			if err := r.svc.Precheck(name, 0); err != nil {
				part.Close()
				return cmd, err
			}
			data, err := io.ReadAll(io.LimitReader(part, limit+1))
			if err != nil {
				part.Close()
				return cmd, bodyError(err)
			}
			if int64(len(data)) > limit {
				part.Close()
				return cmd, fmt.Errorf("%w: limit is %d bytes", documents.ErrTooLarge, limit)
			}
			cmd.Filename = name
			cmd.ContentType = part.Header.Get("Content-Type")
			cmd.Content = data
			cmd.Size = int64(len(data))
			haveFile = true
		case "query":
			b, err := io.ReadAll(io.LimitReader(part, maxQueryBytes+1))
			if err != nil {
				part.Close()
				return cmd, bodyError(err)
			}
			if len(b) > maxQueryBytes {
				part.Close()
				return cmd, fmt.Errorf("%w: too long", reports.ErrInvalidQuery)
			}
			cmd.Query = string(b)
		}
		part.Close()
	}

	if !haveFile {
		return cmd, documents.ErrMissingFile
	}
	return cmd, nil
}

func bodyError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return fmt.Errorf("%w: %v", documents.ErrTooLarge, err)
	}
	return fmt.Errorf("%w: invalid multipart body: %v", errBadRequest, err)
}
