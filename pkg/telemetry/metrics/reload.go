package metrics

import (
	"time"

	"reloadr-hq/reloadr/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ReloadMetrics tracks reload attempts and the instances they touch.
//
// Metrics:
//   - reloadr_reload_total: Reload attempts by symbol, kind, status
//   - reloadr_reload_duration_seconds: Reload duration histogram
//   - reloadr_reload_instances_retagged_total: Instances moved to a new definition
//   - reloadr_reload_instances_migrated_total: Instances whose layout was migrated
//   - reloadr_reload_live_instances: Live instances per class
//   - reloadr_reload_last_success_timestamp_seconds: Time of the last successful reload
type ReloadMetrics struct {
	reloadsTotal     *prometheus.CounterVec
	reloadDuration   *prometheus.HistogramVec
	retaggedTotal    *prometheus.CounterVec
	migratedTotal    *prometheus.CounterVec
	liveInstances    *prometheus.GaugeVec
	lastSuccessStamp *prometheus.GaugeVec
}

// NewReloadMetrics creates and registers reload metrics with the provided registry.
func NewReloadMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ReloadMetrics {
	rm := &ReloadMetrics{
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "total",
				Help:      "Total number of reload attempts",
			},
			[]string{"symbol", "kind", "status"},
		),

		reloadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "duration_seconds",
				Help:      "Duration of reload attempts in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"symbol", "kind"},
		),

		retaggedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "instances_retagged_total",
				Help:      "Total number of instances attached to a new class definition",
			},
			[]string{"symbol"},
		),

		migratedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "instances_migrated_total",
				Help:      "Total number of instances copied into a changed struct layout",
			},
			[]string{"symbol"},
		),

		liveInstances: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "live_instances",
				Help:      "Number of live instances per class",
			},
			[]string{"symbol"},
		),

		lastSuccessStamp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful reload",
			},
			[]string{"symbol"},
		),
	}

	registry.MustRegister(
		rm.reloadsTotal,
		rm.reloadDuration,
		rm.retaggedTotal,
		rm.migratedTotal,
		rm.liveInstances,
		rm.lastSuccessStamp,
	)

	return rm
}

// RecordReload records one reload attempt.
//
// Parameters:
//   - symbol: definition name
//   - kind: "class" or "function"
//   - status: "success" or "failure"
//   - duration: time spent locating, rebuilding and installing
//   - retagged, migrated: instance counts, zero for functions and failures
//   - at: when the attempt started
func (rm *ReloadMetrics) RecordReload(symbol, kind, status string, duration time.Duration, retagged, migrated int, at time.Time) {
	rm.reloadsTotal.WithLabelValues(symbol, kind, status).Inc()
	rm.reloadDuration.WithLabelValues(symbol, kind).Observe(duration.Seconds())

	if retagged > 0 {
		rm.retaggedTotal.WithLabelValues(symbol).Add(float64(retagged))
	}
	if migrated > 0 {
		rm.migratedTotal.WithLabelValues(symbol).Add(float64(migrated))
	}
	if status == "success" {
		rm.lastSuccessStamp.WithLabelValues(symbol).Set(float64(at.Unix()))
	}
}

// SetLiveInstances sets the live instance gauge of a class.
func (rm *ReloadMetrics) SetLiveInstances(symbol string, n int) {
	rm.liveInstances.WithLabelValues(symbol).Set(float64(n))
}
