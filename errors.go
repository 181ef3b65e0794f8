package wsrelay

import "errors"

// Errors
var (
	// ErrNotConnected is returned by Subscribe when no connection has
	// been established, or the last one has terminated.
	ErrNotConnected = errors.New("not connected")

	// ErrInvalidMessage is returned by Send for a message that cannot
	// be serialized.
	ErrInvalidMessage = errors.New("invalid message")
)
