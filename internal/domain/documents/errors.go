package documents

import "errors"

var (
	ErrMissingFile     = errors.New("file is required")
	ErrEmpty           = errors.New("uploaded file is empty")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrUnsupportedType = errors.New("file type not allowed")
	ErrTooLarge        = errors.New("file too large")

	// ErrNoText is returned when nothing usable could be extracted and the
	// configured generator cannot work without text.
	ErrNoText = errors.New("no text could be extracted from the document")
)
