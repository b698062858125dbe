package storage

import "errors"

// Error kinds surfaced by this package. Callers dispatch with errors.Is;
// anything else is a backend or filesystem failure passed through as-is.
var (
	// ErrNotFound is returned when a requested remote object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrAlreadyExists is returned when a write would replace an existing
	// remote object and overwrite was not requested.
	ErrAlreadyExists = errors.New("object already exists")

	// ErrLocalFileExists is returned when the destination of a download is
	// already present on the local filesystem. Downloads never overwrite
	// local files.
	ErrLocalFileExists = errors.New("local file already exists")
)
