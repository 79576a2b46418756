package embedding

import "errors"

var (
	// ErrMissingEndpoint is returned when EMBEDDING_ENDPOINT is not set.
	ErrMissingEndpoint = errors.New("embedding: missing EMBEDDING_ENDPOINT")

	// ErrInvalidConfig is returned for negative timeouts or batch sizes.
	ErrInvalidConfig = errors.New("embedding: invalid config")

	// ErrNoModel is returned when neither the call nor the config names a model.
	ErrNoModel = errors.New("embedding: model is required")

	// ErrCountMismatch is returned when the service answers with a different
	// number of vectors than texts were sent.
	ErrCountMismatch = errors.New("embedding: response count mismatch")
)
