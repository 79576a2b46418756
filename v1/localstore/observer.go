package localstore

import (
	"time"

	"github.com/Aleph-Alpha/vectorinspector/v1/observability"
)

// observeOperation reports an operation under the provider tag of the connection.
func (c *Connection) observeOperation(operation, resource string, duration time.Duration, err error, size int64) {
	if c == nil || c.observer == nil {
		return
	}

	c.observer.ObserveOperation(observability.OperationContext{
		Component: string(c.ProviderTag()),
		Operation: operation,
		Resource:  resource,
		Duration:  duration,
		Error:     err,
		Size:      size,
		Metadata:  map[string]interface{}{"mode": c.Mode()},
	})
}
