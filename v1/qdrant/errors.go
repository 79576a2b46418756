package qdrant

import "errors"

var (
	// ErrClientNotInitialized is returned when the gRPC client is missing.
	ErrClientNotInitialized = errors.New("[Qdrant] client not initialized")

	// ErrUnexpectedPointID is returned for point ids that are neither numbers nor UUIDs.
	ErrUnexpectedPointID = errors.New("[Qdrant] unexpected point id type")
)
