package redis

import (
	"time"

	"github.com/Aleph-Alpha/vectorinspector/v1/observability"
)

// observeOperation reports a command to the observer, if any. resource is
// the key or pattern the command touched.
func (r *RedisClient) observeOperation(operation, resource, subResource string, duration time.Duration, err error, size int64, metadata map[string]interface{}) {
	if r == nil || r.observer == nil {
		return
	}
	if IsNilError(err) {
		err = nil
	}

	r.observer.ObserveOperation(observability.OperationContext{
		Component:   "redis",
		Operation:   operation,
		Resource:    resource,
		SubResource: subResource,
		Duration:    duration,
		Error:       err,
		Size:        size,
		Metadata:    metadata,
	})
}
