package reports

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const DefaultQuery = "Provide a comprehensive financial analysis of this document"

// MaxQueryRunes bounds the free-text question sent along with a document.
const MaxQueryRunes = 2000

var ErrInvalidQuery = errors.New("invalid query")

// NormalizeQuery trims and strips control characters from q, falling back to
// DefaultQuery when nothing is left.
func NormalizeQuery(q string) (string, error) {
	if !utf8.ValidString(q) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrInvalidQuery)
	}
	var b strings.Builder
	for _, r := range q {
		if r >= 32 || r == '\t' || r == '\n' {
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return DefaultQuery, nil
	}
	if utf8.RuneCountInString(out) > MaxQueryRunes {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidQuery, MaxQueryRunes)
	}
	return out, nil
}
