package middleware

import (
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics stores application metrics. It also receives analysis pipeline
// events, so one instance serves both the middleware and the service.
type Metrics struct {
	RequestsTotal      atomic.Uint64
	RequestsInProgress atomic.Int64
	RequestsSuccess    atomic.Uint64
	RequestsFailed     atomic.Uint64
	DocumentsAnalyzed  atomic.Uint64
	DocumentsRejected  atomic.Uint64
	ExtractionFailures atomic.Uint64
	GeneratorFailures  atomic.Uint64
	StartTime          time.Time

	mu          sync.Mutex
	byGenerator map[string]uint64
}

func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now(), byGenerator: map[string]uint64{}}
}

func (m *Metrics) DocumentAnalyzed(generator string) {
	m.DocumentsAnalyzed.Add(1)
	m.mu.Lock()
	m.byGenerator[generator]++
	m.mu.Unlock()
}

func (m *Metrics) DocumentRejected(error) { m.DocumentsRejected.Add(1) }
func (m *Metrics) ExtractionFailed()      { m.ExtractionFailures.Add(1) }
func (m *Metrics) GenerationFailed()      { m.GeneratorFailures.Add(1) }

// Snapshot returns current metrics
func (m *Metrics) Snapshot() map[string]interface{} {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m.mu.Lock()
	byGen := make(map[string]uint64, len(m.byGenerator))
	for k, v := range m.byGenerator {
		byGen[k] = v
	}
	m.mu.Unlock()

	return map[string]interface{}{
		"requests_total":        m.RequestsTotal.Load(),
		"requests_in_progress":  m.RequestsInProgress.Load(),
		"requests_success":      m.RequestsSuccess.Load(),
		"requests_failed":       m.RequestsFailed.Load(),
		"documents_analyzed":    m.DocumentsAnalyzed.Load(),
		"documents_rejected":    m.DocumentsRejected.Load(),
		"extraction_failures":   m.ExtractionFailures.Load(),
		"generator_failures":    m.GeneratorFailures.Load(),
		"analyzed_by_generator": byGen,
		"uptime_seconds":        time.Since(m.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes":       mem.Alloc,
			"total_alloc_bytes": mem.TotalAlloc,
			"sys_bytes":         mem.Sys,
			"num_gc":            mem.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// Middleware tracks request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsTotal.Add(1)
		m.RequestsInProgress.Add(1)
		defer m.RequestsInProgress.Add(-1)

		wrapped := wrapWriter(w)
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			m.RequestsSuccess.Add(1)
		} else {
			m.RequestsFailed.Add(1)
		}
	})
}

// Handler returns metrics as JSON
func (m *Metrics) Handler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, m.Snapshot())
}
