package browse

import (
	"time"

	"github.com/Aleph-Alpha/vectorinspector/v1/observability"
)

func observe(o observability.Observer, operation, collection string, start time.Time, err error, size int64) {
	if o == nil {
		return
	}
	o.ObserveOperation(observability.OperationContext{
		Component: "browse",
		Operation: operation,
		Resource:  collection,
		Duration:  time.Since(start),
		Error:     err,
		Size:      size,
	})
}

func (l *Loader) observe(operation, collection string, start time.Time, err error, size int64) {
	observe(l.observer, operation, collection, start, err, size)
}

func (s *Searcher) observe(operation, collection string, start time.Time, err error, size int64) {
	observe(s.observer, operation, collection, start, err, size)
}
