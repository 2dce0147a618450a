// Package server serves the telemetry endpoints of a reloadr process.
//
// One listener, at telemetry.metrics.listen_address, carries the Prometheus
// scrape endpoint and, when telemetry.health is enabled, the liveness,
// readiness and version endpoints. Start blocks until its context is
// canceled and then shuts the server down gracefully.
//
//	srv := server.NewServer(cfg.Telemetry, manager.Metrics(), checker, info, logger)
//	if srv.Enabled() {
//		go srv.Start(ctx)
//	}
package server
