package event

import "errors"

// Sentinel kinds for event validation errors.
var (
	ErrUnknownType      = errors.New("unknown event type")
	ErrUnknownOrigin    = errors.New("unknown event origin")
	ErrMalformedPayload = errors.New("malformed event payload")
	ErrSeqAssigned      = errors.New("sequence number must be assigned by the log")
)
