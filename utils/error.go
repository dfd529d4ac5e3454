package utils

import "errors"

var (
	// ErrBadRequest marks input-shape problems detected before a run starts.
	ErrBadRequest      = errors.New("bad request")
	ErrMissingFile     = errors.New("missing required file")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
)

// IsBadRequest reports whether err should be surfaced to the client as a 400.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest) ||
		errors.Is(err, ErrMissingFile) ||
		errors.Is(err, ErrUnsupportedFile) ||
		errors.Is(err, ErrFileTooLarge)
}
