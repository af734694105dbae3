package documents

import (
	"path/filepath"
	"strings"
)

// Document is an upload that lives for the duration of one request.
type Document struct {
	Filename    string
	ContentType string
	Size        int64
	Content     []byte
}

// Extension returns the lower-cased extension including the dot, e.g. ".pdf".
func (d *Document) Extension() string {
	return ExtensionOf(d.Filename)
}

// ExtensionOf returns the lower-cased extension of name.
func ExtensionOf(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// Extraction holds the text pulled out of a staged document.
type Extraction struct {
	Text  string
	Pages int // 0 when the format has no notion of pages
}

// DetectDocumentType guesses the kind of financial document from its filename.
func DetectDocumentType(filename string) string {
	name := strings.ToLower(filename)
	switch {
	case containsAny(name, "10-k", "10k", "annual"):
		return "Annual Report (10-K)"
	case containsAny(name, "10-q", "10q", "quarterly"):
		return "Quarterly Report (10-Q)"
	case containsAny(name, "earnings", "financial"):
		return "Financial Statement"
	case containsAny(name, "balance", "sheet"):
		return "Balance Sheet"
	default:
		return "Financial Document"
	}
}

func containsAny(s string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// Truncate returns the first n runes of s. n <= 0 means no limit.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
