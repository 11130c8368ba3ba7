package drip

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrStreamClosed indicates an operation on a closed decoder.
	ErrStreamClosed = errors.New("stream closed")

	// ErrModelNotFound indicates the requested model is not available
	// on the server.
	ErrModelNotFound = errors.New("model not found")
)
