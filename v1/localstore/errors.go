package localstore

import "errors"

var (
	// ErrClosed is returned when the store has been closed.
	ErrClosed = errors.New("localstore: store is closed")

	// ErrDimensionMismatch is returned when a vector does not match the collection dimension.
	ErrDimensionMismatch = errors.New("localstore: vector dimension mismatch")
)
