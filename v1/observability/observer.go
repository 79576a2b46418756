// Package observability defines the hook adapters and stores use to report
// the operations they perform. Metrics (see the metrics package) and tests
// implement Observer; components treat a nil Observer as "not observed".
package observability

import "time"

// OperationContext describes one completed operation.
type OperationContext struct {
	// Component is the reporting package, e.g. "qdrant" or "cache".
	Component string

	// Operation is the verb, e.g. "query" or "get_all_items".
	Operation string

	// Resource is the primary target (collection name, cache key).
	Resource string

	// SubResource carries secondary context such as the database name.
	SubResource string

	Duration time.Duration
	Error    error

	// Size is the number of items, bytes or entries involved, when known.
	Size int64

	Metadata map[string]interface{}
}

// Observer receives operation notifications. Implementations must be safe
// for concurrent use and must not block.
type Observer interface {
	ObserveOperation(ctx OperationContext)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(ctx OperationContext)

// ObserveOperation calls f(ctx).
func (f ObserverFunc) ObserveOperation(ctx OperationContext) {
	f(ctx)
}

// Status maps an operation error to the label used by metric backends.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
