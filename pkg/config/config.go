package config

import "time"

// Config is the root configuration structure for reloadr. It contains the
// interpreter settings used to build definitions, the reload trigger, the
// reload journal and telemetry.
type Config struct {
	// Reload contains settings for loading scripts and rebuilding
	// definitions.
	Reload ReloadConfig `yaml:"reload"`

	// Watch selects what triggers a reload and how often.
	Watch WatchConfig `yaml:"watch"`

	// Journal contains configuration for the persistent reload history.
	Journal JournalConfig `yaml:"journal"`

	// Telemetry contains configuration for logging, metrics, tracing and
	// health endpoints.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ReloadConfig contains settings for script evaluation.
type ReloadConfig struct {
	// Markers are the comment directives that flag a definition for
	// automatic reloading. They are stripped before evaluation.
	// Default: ["//reloadr:reload", "//reloadr:autoreload"]
	Markers []string `yaml:"markers"`

	// Unrestricted gives scripts access to os/exec and the unrestricted
	// syscall symbols.
	// Default: false
	Unrestricted bool `yaml:"unrestricted"`

	// GoPath is the GOPATH the interpreter resolves non-stdlib imports from.
	// Empty means the interpreter default.
	GoPath string `yaml:"go_path"`

	// BuildTags are passed to the interpreter for build constraint
	// evaluation.
	BuildTags []string `yaml:"build_tags"`
}

// WatchConfig contains reload trigger configuration.
type WatchConfig struct {
	// Mode selects the reload trigger.
	// Options: "fs", "timer", "cron", "none"
	// Default: "fs"
	Mode string `yaml:"mode"`

	// Interval is the period between reloads in timer mode.
	// Default: 1s
	Interval time.Duration `yaml:"interval"`

	// Debounce coalesces bursts of file events for the same path in fs mode.
	// Zero delivers every event as it arrives.
	// Default: 0
	Debounce time.Duration `yaml:"debounce"`

	// Schedule is the cron expression used in cron mode. Standard five
	// field specs and descriptors such as "@every 5s" are accepted.
	// Default: "@every 5s"
	Schedule string `yaml:"schedule"`
}

// JournalConfig contains configuration for the reload journal.
type JournalConfig struct {
	// Enabled controls whether reload attempts are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// BufferSize is the capacity of the asynchronous write queue. Records
	// arriving while the queue is full are dropped and counted.
	// Default: 256
	BufferSize int `yaml:"buffer_size"`

	// WriteTimeout bounds a single storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Retention contains pruning configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite storage configuration.
type SQLiteConfig struct {
	// Driver selects the database/sql driver: "sqlite3" is the cgo driver,
	// "sqlite" the pure Go one for builds without cgo.
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// Path is the database file path.
	// Default: "data/reloadr.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 2
	MaxIdleConns int `yaml:"max_idle_conns"`

	// JournalMode is the SQLite journal mode.
	// Options: "wal", "delete", "truncate", "memory"
	// Default: "wal"
	JournalMode string `yaml:"journal_mode"`

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains journal pruning configuration.
type RetentionConfig struct {
	// Days is how long records are kept. A negative value disables
	// pruning.
	// Default: 30
	Days int `yaml:"days"`

	// PruneSchedule is the cron expression for the pruning job.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains reload tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health endpoint configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "console"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address of the metrics and health HTTP server.
	// Default: "127.0.0.1:9464"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "reloadr"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "reload"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets defines histogram buckets for reload duration
	// (seconds).
	// Default: [0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains OpenTelemetry tracing configuration. Every reload
// is exported as one trace.
type TracingConfig struct {
	// Enabled controls whether reloads are traced.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of reloads to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter determines the span exporter.
	// Options: "otlp"
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "reloadr"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the collector connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether the health endpoints are served next to the
	// metrics endpoint.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout is the timeout for individual component health checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
