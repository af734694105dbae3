package middleware

import (
	"fmt"
	"mime"
	"net/http"
	"regexp"
)

var clientIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ValidateClientID validates the client name attached to an API key
func ValidateClientID(client string) error {
	if client == "" {
		return fmt.Errorf("client ID cannot be empty")
	}
	if !clientIDPattern.MatchString(client) {
		return fmt.Errorf("invalid client ID %q (alphanumeric, dash, underscore only, max 64 chars)", client)
	}
	return nil
}

// RequireMultipart rejects requests whose body is not multipart/form-data.
func RequireMultipart(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" || params["boundary"] == "" {
			WriteError(w, http.StatusBadRequest, "request must be multipart/form-data with a file field")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LimitBody caps the request body at n bytes.
func LimitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}
