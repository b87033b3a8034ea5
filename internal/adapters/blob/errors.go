package blob

import "errors"

// Sentinel error kinds for this package.
var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrInvalidRef   = errors.New("invalid blob reference")
)
