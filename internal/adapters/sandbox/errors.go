package sandbox

import "errors"

// Sentinel error kinds for this package.
var (
	ErrPathEscapes = errors.New("path escapes workspace")
)
