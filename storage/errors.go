package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when a codebook is not in the registry.
	ErrNotFound = errors.New("codebook not found")
)
