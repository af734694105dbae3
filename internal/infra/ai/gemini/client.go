package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	domain "github.com/bryanwahyu/finsight/internal/domain/ai"
)

const defaultModel = "gemini-2.0-flash"

// Options configures Client. Zero values fall back to defaults.
type Options struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
}

// Client implements domain.Client on the Gemini API.
type Client struct {
	client      *genai.Client
	Model       string
	MaxTokens   int
	Temperature float32
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is empty", domain.ErrNotConfigured)
	}
	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	return &Client{client: cli, Model: model, MaxTokens: opts.MaxTokens, Temperature: opts.Temperature}, nil
}

func (c *Client) Complete(ctx context.Context, p domain.Prompt) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.Temperature),
	}
	if c.MaxTokens > 0 {
		config.MaxOutputTokens = int32(c.MaxTokens)
	}
	if p.JSON {
		config.ResponseMIMEType = "application/json"
	}
	if p.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: p.System}},
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, c.Model, genai.Text(p.User), config)
	if err != nil {
		if isQuotaError(err) {
			return "", fmt.Errorf("%w: %v", domain.ErrQuotaExceeded, err)
		}
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrEmptyResponse
	}
	return text, nil
}

func isQuotaError(err error) bool {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "Error 429")
}
