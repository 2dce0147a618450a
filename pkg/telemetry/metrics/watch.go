package metrics

import (
	"reloadr-hq/reloadr/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// WatchMetrics tracks reload triggers and the journal queue.
//
// Metrics:
//   - reloadr_watch_triggers_total: Reload triggers by watch mode
//   - reloadr_watch_watched_definitions: Definitions currently watched
//   - reloadr_journal_dropped_total: Journal records dropped on a full queue
type WatchMetrics struct {
	triggersTotal  *prometheus.CounterVec
	watched        *prometheus.GaugeVec
	journalDropped prometheus.Counter
}

// NewWatchMetrics creates and registers watch metrics with the provided registry.
func NewWatchMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *WatchMetrics {
	wm := &WatchMetrics{
		triggersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "watch",
				Name:      "triggers_total",
				Help:      "Total number of reload triggers",
			},
			[]string{"mode"},
		),

		watched: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "watch",
				Name:      "watched_definitions",
				Help:      "Number of definitions currently watched",
			},
			[]string{"mode"},
		),

		journalDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "journal",
				Name:      "dropped_total",
				Help:      "Total number of journal records dropped because the queue was full",
			},
		),
	}

	registry.MustRegister(wm.triggersTotal, wm.watched, wm.journalDropped)

	return wm
}

// RecordTrigger counts a reload trigger.
func (wm *WatchMetrics) RecordTrigger(mode string) {
	wm.triggersTotal.WithLabelValues(mode).Inc()
}

// AddWatched adjusts the number of watched definitions for a mode.
func (wm *WatchMetrics) AddWatched(mode string, delta int) {
	wm.watched.WithLabelValues(mode).Add(float64(delta))
}

// RecordJournalDrop counts a dropped journal record.
func (wm *WatchMetrics) RecordJournalDrop() {
	wm.journalDropped.Inc()
}
