package chroma

import (
	"errors"
	"strings"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

var (
	// ErrUnexpectedResponse is returned when a response cannot be decoded into
	// the expected shape.
	ErrUnexpectedResponse = errors.New("chroma: unexpected response")

	// ErrEmbeddingsRequired is returned if the client asks the adapter to
	// embed text. Vectors always travel with the request.
	ErrEmbeddingsRequired = errors.New("chroma: embeddings must be supplied with the request")
)

// translateError maps client errors onto the vectordb sentinels. The
// client reports the HTTP status and server message as text.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	var sentinel error
	switch {
	case strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "not found"),
		strings.Contains(msg, "404"):
		sentinel = vectordb.ErrCollectionNotFound
	case strings.Contains(msg, "already exists"),
		strings.Contains(msg, "409"):
		sentinel = vectordb.ErrCollectionExists
	case strings.Contains(msg, "422"),
		strings.Contains(msg, "400 bad request"),
		strings.Contains(msg, "invalidargument"):
		sentinel = vectordb.ErrInvalidArgument
	}
	if sentinel == nil || errors.Is(err, sentinel) {
		return err
	}
	return &clientError{err: err, sentinel: sentinel}
}

type clientError struct {
	err      error
	sentinel error
}

func (e *clientError) Error() string { return "chroma: " + e.err.Error() }

func (e *clientError) Unwrap() []error { return []error{e.err, e.sentinel} }
