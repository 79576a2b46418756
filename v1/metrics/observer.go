package metrics

import (
	"github.com/Aleph-Alpha/vectorinspector/v1/observability"
)

// OperationObserver feeds observability notifications into the default
// operation metrics.
type OperationObserver struct {
	metrics *Metrics
}

// NewOperationObserver returns an observer backed by m.
func NewOperationObserver(m *Metrics) *OperationObserver {
	return &OperationObserver{metrics: m}
}

// ObserveOperation implements observability.Observer.
func (o *OperationObserver) ObserveOperation(ctx observability.OperationContext) {
	if o == nil || o.metrics == nil {
		return
	}
	o.metrics.IncrementOperations(ctx.Component, ctx.Operation, observability.Status(ctx.Error))
	o.metrics.observeDuration(ctx.Duration, ctx.Component, ctx.Operation)
}

var _ observability.Observer = (*OperationObserver)(nil)
