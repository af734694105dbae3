package documents

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const maxFilenameBytes = 255

// Policy describes which uploads are accepted.
type Policy struct {
	MaxBytes          int64
	AllowedExtensions []string
}

// Allows reports whether ext is on the allow-list.
func (p Policy) Allows(ext string) bool {
	ext = strings.ToLower(ext)
	for _, a := range p.AllowedExtensions {
		if strings.ToLower(a) == ext {
			return true
		}
	}
	return false
}

// CheckName validates a filename and its extension. It runs before any
// content is read.
func (p Policy) CheckName(filename string) error {
	if err := ValidateFilename(filename); err != nil {
		return err
	}
	ext := ExtensionOf(filename)
	if !p.Allows(ext) {
		return fmt.Errorf("%w: %q (allowed: %s)", ErrUnsupportedType, ext, strings.Join(p.AllowedExtensions, ", "))
	}
	return nil
}

// CheckSize validates a declared or observed size.
func (p Policy) CheckSize(size int64) error {
	if size <= 0 {
		return ErrEmpty
	}
	if p.MaxBytes > 0 && size > p.MaxBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrTooLarge, size, p.MaxBytes)
	}
	return nil
}

// Validate runs every check against a fully read document.
func (p Policy) Validate(doc *Document) error {
	if doc == nil {
		return ErrMissingFile
	}
	if err := p.CheckName(doc.Filename); err != nil {
		return err
	}
	size := doc.Size
	if n := int64(len(doc.Content)); n > size {
		size = n
	}
	if len(doc.Content) == 0 {
		return ErrEmpty
	}
	return p.CheckSize(size)
}

// ValidateFilename rejects names that are empty, too long, not UTF-8,
// contain path elements or control characters, or have no extension.
func ValidateFilename(filename string) error {
	if filename == "" || len(filename) > maxFilenameBytes || !utf8.ValidString(filename) {
		return ErrInvalidFilename
	}
	if strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		return fmt.Errorf("%w: path elements are not allowed", ErrInvalidFilename)
	}
	for _, r := range filename {
		if r < 32 || r == 127 {
			return fmt.Errorf("%w: control characters are not allowed", ErrInvalidFilename)
		}
	}
	ext := filepath.Ext(filename)
	if ext == "" || strings.TrimSuffix(filename, ext) == "" {
		return ErrInvalidFilename
	}
	return nil
}

// BaseName strips any client-side directory from an uploaded filename.
// Browsers on some platforms send full paths.
func BaseName(filename string) string {
	filename = strings.ReplaceAll(filename, `\`, "/")
	return filepath.Base(filename)
}
