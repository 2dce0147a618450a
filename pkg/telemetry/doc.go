// Package telemetry groups the observability packages of reloadr.
//
// # Components
//
//   - logging: slog loggers built from configuration, with reload fields
//     (reload ID, symbol, file, watch mode) carried through contexts
//   - metrics: Prometheus metrics for reload attempts and watch triggers
//   - tracing: OpenTelemetry spans for every reload and its stages
//   - health: liveness and readiness checks, including a check that fails
//     while any definition runs a stale version after a failed reload
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//	if err != nil {
//		return err
//	}
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordReload("Tick", "function", "success", d, 0, 0, time.Now())
package telemetry
