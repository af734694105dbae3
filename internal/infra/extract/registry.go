package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/bryanwahyu/finsight/internal/domain/documents"
)

// Format pulls text out of one family of file types.
type Format interface {
	Extract(ctx context.Context, f documents.Staged) (documents.Extraction, error)
}

// FormatFunc adapts a plain function to Format.
type FormatFunc func(ctx context.Context, f documents.Staged) (documents.Extraction, error)

func (fn FormatFunc) Extract(ctx context.Context, f documents.Staged) (documents.Extraction, error) {
	return fn(ctx, f)
}

// Registry dispatches on file extension. It implements documents.Extractor.
type Registry struct {
	formats map[string]Format
	// MaxChars caps the returned text; 0 means unlimited.
	MaxChars int
}

// NewRegistry returns a registry with the built-in formats.
func NewRegistry(maxChars int) *Registry {
	r := &Registry{formats: map[string]Format{}, MaxChars: maxChars}
	r.Register(PDF{}, ".pdf")
	r.Register(PlainText{}, ".txt", ".md", ".csv")
	return r
}

// Register binds f to every given extension, replacing earlier bindings.
func (r *Registry) Register(f Format, exts ...string) {
	for _, ext := range exts {
		r.formats[strings.ToLower(ext)] = f
	}
}

func (r *Registry) Supports(ext string) bool {
	_, ok := r.formats[strings.ToLower(ext)]
	return ok
}

func (r *Registry) Extract(ctx context.Context, ext string, f documents.Staged) (documents.Extraction, error) {
	format, ok := r.formats[strings.ToLower(ext)]
	if !ok {
		return documents.Extraction{}, fmt.Errorf("%w: no extractor for %q", documents.ErrUnsupportedType, ext)
	}
	if err := ctx.Err(); err != nil {
		return documents.Extraction{}, err
	}
	ex, err := format.Extract(ctx, f)
	if err != nil {
		return documents.Extraction{}, err
	}
	ex.Text = documents.Truncate(ex.Text, r.MaxChars)
	return ex, nil
}
