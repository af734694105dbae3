package ai

import (
	"context"
	"fmt"
)

// Prompt is a single system+user exchange.
type Prompt struct {
	System string
	User   string
	// JSON asks the provider to constrain its output to a JSON object.
	JSON bool
}

type Client interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// NotConfigured fails every call. It stands in for a provider whose API key
// is missing so the service can still start and answer health checks.
type NotConfigured struct {
	Provider string
}

func (n NotConfigured) Complete(context.Context, Prompt) (string, error) {
	return "", fmt.Errorf("%w: set the API key for provider %q", ErrNotConfigured, n.Provider)
}
