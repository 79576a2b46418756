package browse

import "errors"

var (
	// ErrNoConnection is returned when no connection was supplied.
	ErrNoConnection = errors.New("browse: no active connection")

	// ErrInvalidPage is returned for page numbers or sizes below one.
	ErrInvalidPage = errors.New("browse: page and page size must be positive")

	// ErrItemNotFound is returned by SearchByID when the reference item does not exist.
	ErrItemNotFound = errors.New("browse: item not found")

	// ErrNoEmbedding is returned by SearchByID when the reference item has no vector.
	ErrNoEmbedding = errors.New("browse: item has no embedding")
)
