package connection

import "errors"

var (
	// ErrTooManyConnections is returned by Open when MaxConnections are open.
	ErrTooManyConnections = errors.New("connection: maximum number of connections reached")

	// ErrAlreadyOpen is returned by Open for a profile id that is already open.
	ErrAlreadyOpen = errors.New("connection: already open")

	// ErrNotFound is returned for an unknown connection id.
	ErrNotFound = errors.New("connection: not found")

	// ErrConnectFailed is returned when the backend could not be reached.
	// The instance stays registered in StateError so it can be retried.
	ErrConnectFailed = errors.New("connection: connect failed")
)
