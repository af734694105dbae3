package documents

import (
	"context"
	"io"
)

// Staged is a temporary copy of a document that extractors read from.
type Staged interface {
	io.ReaderAt
	Size() int64
	Location() string
	// Remove deletes the staged copy. Calling it more than once is a no-op.
	Remove(ctx context.Context) error
}

// Stager port: writes a document to a temporary location.
type Stager interface {
	Stage(ctx context.Context, doc *Document) (Staged, error)
}

// Extractor port: turns a staged file into text.
type Extractor interface {
	Supports(ext string) bool
	Extract(ctx context.Context, ext string, f Staged) (Extraction, error)
}
