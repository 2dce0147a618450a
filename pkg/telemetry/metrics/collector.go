package metrics

import (
	"fmt"
	"sync"
	"time"

	"reloadr-hq/reloadr/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// overflowSymbol replaces symbol labels once the cardinality limit is hit.
const overflowSymbol = "other"

// Collector is the entry point for reloadr's Prometheus metrics. It owns the
// registry and the metric groups and drops every update when metrics are
// disabled.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	reloadMetrics *ReloadMetrics
	watchMetrics  *WatchMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. A nil registry gets a fresh one
// carrying the Go runtime and process collectors.
//
// Example:
//
//	cfg := &config.MetricsConfig{Enabled: true}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		reloadMetrics:      NewReloadMetrics(cfg, registry),
		watchMetrics:       NewWatchMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(1000),
	}
}

// RecordReload records a reload attempt. Symbols past the cardinality limit
// are aggregated under "other".
func (c *Collector) RecordReload(symbol, kind, status string, duration time.Duration, retagged, migrated int, at time.Time) {
	if !c.config.Enabled {
		return
	}
	symbol = c.limit(symbol, kind)
	c.reloadMetrics.RecordReload(symbol, kind, status, duration, retagged, migrated, at)
}

// SetLiveInstances sets the live instance gauge of a class.
func (c *Collector) SetLiveInstances(symbol string, n int) {
	if !c.config.Enabled {
		return
	}
	c.reloadMetrics.SetLiveInstances(c.limit(symbol, "class"), n)
}

// RecordTrigger counts a reload trigger of the given watch mode.
func (c *Collector) RecordTrigger(mode string) {
	if !c.config.Enabled {
		return
	}
	c.watchMetrics.RecordTrigger(mode)
}

// AddWatched adjusts the watched definition gauge of a watch mode.
func (c *Collector) AddWatched(mode string, delta int) {
	if !c.config.Enabled {
		return
	}
	c.watchMetrics.AddWatched(mode, delta)
}

// RecordJournalDrop counts a journal record dropped on a full queue.
func (c *Collector) RecordJournalDrop() {
	if !c.config.Enabled {
		return
	}
	c.watchMetrics.RecordJournalDrop()
}

func (c *Collector) limit(symbol, kind string) string {
	if c.cardinalityLimiter.Allow(fmt.Sprintf("%s:%s", kind, symbol)) {
		return symbol
	}
	return overflowSymbol
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether a label set may be used: it is already known or the
// limit has not been reached yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
