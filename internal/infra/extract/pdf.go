package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/bryanwahyu/finsight/internal/domain/documents"
)

// ErrMalformed is returned when the decoder rejects or crashes on a file.
var ErrMalformed = errors.New("malformed document")

// PDF extracts the text layer of a PDF. Scanned pages without a text layer
// produce empty text, not an error.
type PDF struct{}

func (PDF) Extract(ctx context.Context, f documents.Staged) (ex documents.Extraction, err error) {
	// the decoder panics on some truncated or hostile inputs
	defer func() {
		if r := recover(); r != nil {
			ex = documents.Extraction{}
			err = fmt.Errorf("%w: pdf decoder: %v", ErrMalformed, r)
		}
	}()

	r, err := pdf.NewReader(f, f.Size())
	if err != nil {
		return documents.Extraction{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	pages := r.NumPage()

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return documents.Extraction{}, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return documents.Extraction{}, fmt.Errorf("%w: page %d: %v", ErrMalformed, i, err)
		}
		if b.Len() > 0 && text != "" {
			b.WriteByte('\n')
		}
		b.WriteString(text)
	}
	return documents.Extraction{Text: strings.TrimSpace(b.String()), Pages: pages}, nil
}
