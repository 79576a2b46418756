package vectordb

import "errors"

// Errors shared by all provider adapters.
var (
	// ErrNotConnected is returned by every operation on a connection that was
	// never connected or has been disconnected.
	ErrNotConnected = errors.New("vectordb: not connected")

	// ErrNothingToAdd is returned when AddItems receives no documents or ids.
	ErrNothingToAdd = errors.New("vectordb: nothing to add")

	// ErrLengthMismatch is returned when per-item arguments do not match the id count.
	ErrLengthMismatch = errors.New("vectordb: argument lengths do not match ids")

	// ErrInvalidQuery is returned when a query has neither or both of text and embedding.
	ErrInvalidQuery = errors.New("vectordb: exactly one of query text or query embedding is required")

	// ErrUnknownEmbeddingModel is returned when text must be embedded but no
	// model can be resolved for the collection.
	ErrUnknownEmbeddingModel = errors.New("vectordb: unknown embedding model")

	// ErrCollectionExists is returned by CreateCollection for an existing name.
	ErrCollectionExists = errors.New("vectordb: collection already exists")

	// ErrCollectionNotFound is returned when an operation targets a missing collection.
	ErrCollectionNotFound = errors.New("vectordb: collection not found")

	// ErrInvalidArgument covers malformed names, sizes and filters.
	ErrInvalidArgument = errors.New("vectordb: invalid argument")

	// ErrUnsupported is returned for operations a provider cannot perform.
	ErrUnsupported = errors.New("vectordb: operation not supported by provider")
)

// IsNotConnectedError checks if the error is a "not connected" error.
func IsNotConnectedError(err error) bool {
	return errors.Is(err, ErrNotConnected)
}

// IsUnknownEmbeddingModelError checks if the error is an "unknown embedding model" error.
func IsUnknownEmbeddingModelError(err error) bool {
	return errors.Is(err, ErrUnknownEmbeddingModel)
}

// IsCollectionNotFoundError checks if the error is a "collection not found" error.
func IsCollectionNotFoundError(err error) bool {
	return errors.Is(err, ErrCollectionNotFound)
}

// IsValidationError reports whether err was caused by bad caller input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNothingToAdd) ||
		errors.Is(err, ErrLengthMismatch) ||
		errors.Is(err, ErrInvalidQuery) ||
		errors.Is(err, ErrInvalidArgument)
}
