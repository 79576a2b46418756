// Package metrics exposes Prometheus metrics for the inspector.
//
// NewMetrics builds a dedicated registry with a constant "service" label and
// three built-in series: operations_total, operation_duration_seconds and
// background_tasks_active. OperationObserver adapts the registry to
// observability.Observer so that provider adapters report every call without
// importing Prometheus themselves.
//
//	m := metrics.NewMetrics(metrics.Config{Address: ":9090", ServiceName: "vector-inspector"})
//	conn := qdrant.New(cfg, log, metrics.NewOperationObserver(m))
//
// With fx, include FXModule together with logger.FXModule and supply a Config.
package metrics
