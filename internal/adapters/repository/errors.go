package repository

import "errors"

// Sentinel kinds for event log errors.
var (
	ErrNotFound      = errors.New("session not found")
	ErrClosed        = errors.New("store closed")
	ErrInvalidFilter = errors.New("invalid query filter")
)
