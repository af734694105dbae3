package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrNotConfigured means no API key was supplied for the selected provider.
var ErrNotConfigured = errors.New("ai provider not configured")

// ErrEmptyResponse means the provider answered without any content.
var ErrEmptyResponse = errors.New("ai provider returned an empty response")
