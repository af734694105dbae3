package reports

import "context"

// Input is what a generator sees. Info is already filled in by the caller.
type Input struct {
	Info  DocumentInfo
	Text  string
	Query string
}

// Generator port: the swappable strategy that writes the analysis sections.
type Generator interface {
	Name() string
	// RequiresText reports whether Generate is meaningless without extracted text.
	RequiresText() bool
	Generate(ctx context.Context, in Input) (*Report, error)
}
