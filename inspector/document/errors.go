package document

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat indicates that no inspector claims a file
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrMalformedSource indicates that a recognized format lacks even minimal structure
	ErrMalformedSource = errors.New("malformed source")
)

// Unsupported returns an ErrUnsupportedFormat error for the given path
func Unsupported(path string) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Malformed returns an ErrMalformedSource error for the given path and cause
func Malformed(path string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrMalformedSource, path)
	}
	return fmt.Errorf("%w: %s: %w", ErrMalformedSource, path, cause)
}
