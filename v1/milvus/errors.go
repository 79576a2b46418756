package milvus

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

var (
	ErrClientNotInitialized = errors.New("milvus: client not initialized")

	// ErrUnexpectedColumn is returned when a result column has an unexpected type.
	ErrUnexpectedColumn = errors.New("milvus: unexpected column type")
)

// translateError maps server messages onto the vectordb sentinels. The
// client reports most failures as plain status messages.
func translateError(action, collection string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "collection not found"),
		strings.Contains(msg, "can't find collection"),
		strings.Contains(msg, "collection not exist"):
		return fmt.Errorf("milvus: %s %s: %w: %v", action, collection, vectordb.ErrCollectionNotFound, err)
	case strings.Contains(msg, "already exist"):
		return fmt.Errorf("milvus: %s %s: %w: %v", action, collection, vectordb.ErrCollectionExists, err)
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "cannot parse expression"):
		return fmt.Errorf("milvus: %s %s: %w: %v", action, collection, vectordb.ErrInvalidArgument, err)
	}
	return fmt.Errorf("milvus: %s %s: %w", action, collection, err)
}
