package pinecone

import "errors"

var (
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("pinecone requires an API key")

	ErrUnexpectedResponse = errors.New("pinecone: unexpected response")

	// ErrIndexNotReady is returned when the index has no data plane host yet.
	ErrIndexNotReady = errors.New("pinecone: index is not ready")
)
