package middleware

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// HealthChecker defines interface for health checking
type HealthChecker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to HealthChecker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error { return f(ctx) }

// ReadyStatus represents the readiness status
type ReadyStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
}

// CheckStatus represents individual check status
type CheckStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ReadinessHandler runs every checker and answers 503 if any fails.
func ReadinessHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	names := make([]string, 0, len(checkers))
	for name := range checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		ready := ReadyStatus{
			Status:    "ready",
			Timestamp: time.Now().UTC(),
			Checks:    make(map[string]CheckStatus, len(names)),
		}
		for _, name := range names {
			if err := checkers[name].Check(ctx); err != nil {
				ready.Status = "not_ready"
				ready.Checks[name] = CheckStatus{Status: "unhealthy", Message: err.Error()}
			} else {
				ready.Checks[name] = CheckStatus{Status: "healthy"}
			}
		}

		statusCode := http.StatusOK
		if ready.Status != "ready" {
			statusCode = http.StatusServiceUnavailable
		}
		WriteJSON(w, statusCode, ready)
	}
}

// ServiceInfo is what the liveness endpoint reports about the process.
type ServiceInfo struct {
	Service          string
	Version          string
	Generator        string
	APIKeyConfigured bool
}

// LivenessHandler always answers 200. It does not consult any checker.
func LivenessHandler(info ServiceInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{
			"status":             "healthy",
			"timestamp":          time.Now().UTC(),
			"service":            info.Service,
			"version":            info.Version,
			"generator":          info.Generator,
			"api_key_configured": info.APIKeyConfigured,
		})
	}
}
