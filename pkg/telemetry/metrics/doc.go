// Package metrics provides Prometheus metrics for reloadr.
//
// # Metrics
//
//   - Reload metrics: attempts by symbol, kind and status, duration,
//     retagged and migrated instances, live instances per class
//   - Watch metrics: triggers per watch mode, watched definitions
//   - Journal metrics: records dropped on a full write queue
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordReload("Counter", "class", "success", 3*time.Millisecond, 2, 0, time.Now())
//
//	mux.Handle("/metrics", collector.Handler())
//
// Symbols are bounded by a cardinality limiter; past the limit they are
// aggregated under the "other" label.
package metrics
