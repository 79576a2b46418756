package cache

import (
	"time"

	"github.com/Aleph-Alpha/vectorinspector/v1/observability"
)

func (m *Manager) observe(operation string, key Key, start time.Time, err error, metadata map[string]interface{}) {
	if m.observer == nil {
		return
	}
	m.observer.ObserveOperation(observability.OperationContext{
		Component:   "cache",
		Operation:   operation,
		Resource:    key.Collection,
		SubResource: key.Database,
		Duration:    time.Since(start),
		Error:       err,
		Metadata:    metadata,
	})
}
