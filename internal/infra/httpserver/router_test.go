package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bryanwahyu/finsight/internal/application/analysis"
	"github.com/bryanwahyu/finsight/internal/domain/ai"
	"github.com/bryanwahyu/finsight/internal/domain/documents"
	"github.com/bryanwahyu/finsight/internal/domain/reports"
	"github.com/bryanwahyu/finsight/internal/infra/extract"
	"github.com/bryanwahyu/finsight/internal/infra/report"
	"github.com/bryanwahyu/finsight/internal/infra/storage"
	"github.com/bryanwahyu/finsight/internal/middleware"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingExtractor records how often extraction actually ran.
type countingExtractor struct {
	documents.Extractor
	calls atomic.Int32
}

func (c *countingExtractor) Extract(ctx context.Context, ext string, f documents.Staged) (documents.Extraction, error) {
	c.calls.Add(1)
	return c.Extractor.Extract(ctx, ext, f)
}

type env struct {
	handler  http.Handler
	svc      *analysis.Service
	ext      *countingExtractor
	metrics  *middleware.Metrics
	stageDir string
}

type option func(*Options)

func newEnv(t *testing.T, gen reports.Generator, opts ...option) *env {
	t.Helper()
	dir := t.TempDir()
	stager, err := storage.NewLocal(dir)
	require.NoError(t, err)

	ext := &countingExtractor{Extractor: extract.NewRegistry(0)}
	metrics := middleware.NewMetrics()
	svc := &analysis.Service{
		Policy:    documents.Policy{MaxBytes: 1024, AllowedExtensions: []string{".pdf", ".txt"}},
		Stager:    stager,
		Extractor: ext,
		Generator: gen,
		Observer:  metrics,
	}
	o := Options{
		Service: svc,
		Metrics: metrics,
		Checkers: map[string]middleware.HealthChecker{
			"staging": stager,
			"ai":      middleware.CheckerFunc(func(context.Context) error { return errors.New("api key missing") }),
		},
		Info:        middleware.ServiceInfo{Service: "Financial Document Analyzer", Version: "1.0.0", Generator: gen.Name()},
		CORSOrigins: []string{"*"},
	}
	for _, fn := range opts {
		fn(&o)
	}
	h, err := NewRouter(o)
	require.NoError(t, err)
	return &env{handler: h, svc: svc, ext: ext, metrics: metrics, stageDir: dir}
}

func upload(t *testing.T, filename string, content []byte, query string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	if query != "" {
		require.NoError(t, mw.WriteField("query", query))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (e *env) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *env) assertNothingStaged(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(e.stageDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged files must be removed")
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out.Error
}

func TestHealth_AlwaysOK(t *testing.T) {
	e := newEnv(t, report.Mock{})

	rec := e.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.JSONEq(t, `"healthy"`, string(body["status"]))
	assert.JSONEq(t, `"Financial Document Analyzer"`, string(body["service"]))
	assert.JSONEq(t, `"1.0.0"`, string(body["version"]))

	rec = e.do(httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAnalyze_ValidUpload(t *testing.T) {
	e := newEnv(t, report.Mock{})

	rec := e.do(upload(t, "acme_annual_report.txt", []byte("Revenue $12M up 8% YoY"), "  Is the balance sheet healthy?  "))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	body := decode(t, rec)
	for _, k := range []string{"status", "analysis_id", "generator", "query", "generated_at", "document_info",
		"key_metrics", "risk_assessment", "recommendation", "verification", "insights"} {
		assert.Contains(t, body, k)
	}
	assert.JSONEq(t, `"success"`, string(body["status"]))
	assert.JSONEq(t, `"Is the balance sheet healthy?"`, string(body["query"]))

	var info reports.DocumentInfo
	require.NoError(t, json.Unmarshal(body["document_info"], &info))
	assert.Equal(t, "acme_annual_report.txt", info.Filename)
	assert.Equal(t, "Annual Report (10-K)", info.DocumentType)
	assert.Equal(t, 2, info.KeyFiguresFound)
	assert.Equal(t, int32(1), e.ext.calls.Load())
	e.assertNothingStaged(t)
	assert.Equal(t, uint64(1), e.metrics.DocumentsAnalyzed.Load())
}

func TestAnalyze_DisallowedExtension(t *testing.T) {
	e := newEnv(t, report.Mock{})

	rec := e.do(upload(t, "payload.exe", []byte("MZ\x90\x00"), ""))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "file type not allowed")
	assert.Zero(t, e.ext.calls.Load(), "extraction must not run")
	e.assertNothingStaged(t)
	assert.Equal(t, uint64(1), e.metrics.DocumentsRejected.Load())
}

func TestAnalyze_Oversized(t *testing.T) {
	e := newEnv(t, report.Mock{})

	rec := e.do(upload(t, "big.txt", bytes.Repeat([]byte("a"), 4096), ""))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, e.ext.calls.Load())
	e.assertNothingStaged(t)
}

func TestAnalyze_OversizedBody(t *testing.T) {
	e := newEnv(t, report.Mock{})

	rec := e.do(upload(t, "big.txt", bytes.Repeat([]byte("a"), 1024+multipartSlack+10), ""))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, e.ext.calls.Load())
}

func TestAnalyze_BadRequests(t *testing.T) {
	e := newEnv(t, report.Mock{})

	tests := []struct {
		name string
		req  *http.Request
		want string
	}{
		{"no file", upload(t, "", nil, "question"), "file is required"},
		{"empty file", upload(t, "empty.txt", nil, ""), "uploaded file is empty"},
		{"query too long", upload(t, "a.txt", []byte("x"), strings.Repeat("q", reports.MaxQueryRunes+1)), "invalid query"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, errorMessage(t, rec), tt.want)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"file":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, e.do(req).Code)
	assert.Zero(t, e.ext.calls.Load())
}

func TestAnalyze_MockMetricsAreIdentical(t *testing.T) {
	e := newEnv(t, report.Mock{})

	sections := func(name, content string) map[string]json.RawMessage {
		rec := e.do(upload(t, name, []byte(content), ""))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode(t, rec)
	}
	a := sections("q1_earnings.txt", "Revenue fell 3%")
	b := sections("balance_sheet.pdf", "%PDF-1.4 not really a pdf")

	for _, k := range []string{"key_metrics", "risk_assessment", "recommendation", "verification", "insights"} {
		assert.JSONEq(t, string(a[k]), string(b[k]), k)
	}
	assert.NotEqual(t, string(a["analysis_id"]), string(b["analysis_id"]))
	assert.NotEqual(t, string(a["document_info"]), string(b["document_info"]))
	assert.Equal(t, uint64(1), e.metrics.ExtractionFailures.Load(), "the fake pdf degrades instead of failing")
	e.assertNothingStaged(t)
}

type stubClient struct{ err error }

func (s stubClient) Complete(context.Context, ai.Prompt) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return `{"rating":"HOLD"}`, nil
}

func TestAnalyze_AIGenerator(t *testing.T) {
	tests := []struct {
		name    string
		client  ai.Client
		content string
		status  int
	}{
		{"ok", stubClient{}, "Revenue $5M", http.StatusOK},
		{"no text", stubClient{}, "   ", http.StatusUnprocessableEntity},
		{"not configured", ai.NotConfigured{Provider: "gemini"}, "Revenue $5M", http.StatusServiceUnavailable},
		{"quota", stubClient{err: ai.ErrQuotaExceeded}, "Revenue $5M", http.StatusTooManyRequests},
		{"upstream", stubClient{err: errors.New("upstream 500")}, "Revenue $5M", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, &report.Crew{Client: tt.client})
			rec := e.do(upload(t, "notes.txt", []byte(tt.content), ""))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			e.assertNothingStaged(t)
		})
	}
}

func TestAnalyze_AIGeneratorReport(t *testing.T) {
	e := newEnv(t, &report.Crew{Client: stubClient{}})
	rec := e.do(upload(t, "notes.txt", []byte("Revenue $5M"), ""))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.JSONEq(t, `"ai"`, string(body["generator"]))
	assert.Contains(t, body, "analysis")
}

func TestDocsAndIndex(t *testing.T) {
	e := newEnv(t, report.Mock{})

	rec := e.do(httptest.NewRequest(http.MethodGet, "/docs", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<h2>POST /analyze</h2>")
	assert.Contains(t, rec.Body.String(), "<table>")

	rec = e.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="file"`)
}

func TestNotFoundAndMethod(t *testing.T) {
	e := newEnv(t, report.Mock{})

	rec := e.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", errorMessage(t, rec))

	rec = e.do(httptest.NewRequest(http.MethodGet, "/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t, report.Mock{})
	e.do(upload(t, "a.txt", []byte("x"), ""))

	rec := e.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.JSONEq(t, "1", string(body["documents_analyzed"]))
}

func TestAuth(t *testing.T) {
	e := newEnv(t, report.Mock{}, func(o *Options) {
		o.APIKeys = map[string]string{"acme": "s3cret"}
	})

	assert.Equal(t, http.StatusOK, e.do(httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(upload(t, "a.txt", []byte("x"), "")).Code)

	req := upload(t, "a.txt", []byte("x"), "")
	req.Header.Set("Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusOK, e.do(req).Code)
}

func TestRateLimit(t *testing.T) {
	e := newEnv(t, report.Mock{}, func(o *Options) {
		o.RateLimiter = middleware.NewRateLimiter(0.001, 1)
	})

	assert.Equal(t, http.StatusOK, e.do(upload(t, "a.txt", []byte("x"), "")).Code)
	rec := e.do(upload(t, "a.txt", []byte("x"), ""))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, e.do(httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
}

func TestRateLimit_MetersUnauthenticated(t *testing.T) {
	e := newEnv(t, report.Mock{}, func(o *Options) {
		o.APIKeys = map[string]string{"acme": "s3cret"}
		o.RateLimiter = middleware.NewRateLimiter(0.001, 2)
	})

	assert.Equal(t, http.StatusUnauthorized, e.do(upload(t, "a.txt", []byte("x"), "")).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(upload(t, "a.txt", []byte("x"), "")).Code)
	rec := e.do(upload(t, "a.txt", []byte("x"), ""))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "keyless requests spend the same budget")

	req := upload(t, "a.txt", []byte("x"), "")
	req.Header.Set("X-API-Key", "s3cret")
	assert.Equal(t, http.StatusTooManyRequests, e.do(req).Code, "keyed on the ip, not the key")
}

func TestNewRouter_RequiresService(t *testing.T) {
	_, err := NewRouter(Options{Metrics: middleware.NewMetrics()})
	assert.Error(t, err)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{documents.ErrMissingFile, http.StatusBadRequest},
		{documents.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{documents.ErrUnsupportedType, http.StatusUnsupportedMediaType},
		{documents.ErrNoText, http.StatusUnprocessableEntity},
		{analysis.ErrStaging, http.StatusInternalServerError},
		{errors.Join(analysis.ErrGeneration, ai.ErrQuotaExceeded), http.StatusTooManyRequests},
		{analysis.ErrGeneration, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, _ := statusFor(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
	}
}
