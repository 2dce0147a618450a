// Package health provides liveness, readiness and version endpoints for a
// process running hot-reloaded definitions.
//
// Readiness aggregates registered component checks. ReloadTracker supplies
// the check that matters most here: it turns unhealthy while any definition
// still runs its previous version because the latest reload failed, and
// recovers with the next successful reload.
//
// # Usage
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	tracker := health.NewReloadTracker()
//	checker.RegisterCheck("reloads", tracker.Check)
//
//	mux := http.NewServeMux()
//	health.Mount(mux, checker, cfg.Telemetry.Health, health.VersionInfo{Version: version})
package health
