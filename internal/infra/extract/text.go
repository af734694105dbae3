package extract

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/bryanwahyu/finsight/internal/domain/documents"
)

// PlainText reads UTF-8 text files as they are.
type PlainText struct{}

func (PlainText) Extract(ctx context.Context, f documents.Staged) (documents.Extraction, error) {
	raw, err := io.ReadAll(io.NewSectionReader(f, 0, f.Size()))
	if err != nil {
		return documents.Extraction{}, fmt.Errorf("read text: %w", err)
	}
	text := strings.ToValidUTF8(string(raw), "�")
	return documents.Extraction{Text: strings.TrimSpace(text)}, nil
}
