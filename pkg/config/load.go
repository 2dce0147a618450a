package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "RELOADR_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention RELOADR_SECTION_FIELD (e.g., RELOADR_WATCH_MODE).
// Environment variables always take precedence over file-based configuration.
//
// An empty path skips the file and starts from the defaults.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Malformed values are ignored.
func applyEnvOverrides(cfg *Config) {
	// Reload overrides
	if val := getenv("RELOAD_MARKERS"); val != "" {
		cfg.Reload.Markers = splitList(val)
	}
	envBool("RELOAD_UNRESTRICTED", &cfg.Reload.Unrestricted)
	if val := getenv("RELOAD_GO_PATH"); val != "" {
		cfg.Reload.GoPath = val
	}
	if val := getenv("RELOAD_BUILD_TAGS"); val != "" {
		cfg.Reload.BuildTags = splitList(val)
	}

	// Watch overrides
	if val := getenv("WATCH_MODE"); val != "" {
		cfg.Watch.Mode = val
	}
	envDuration("WATCH_INTERVAL", &cfg.Watch.Interval)
	envDuration("WATCH_DEBOUNCE", &cfg.Watch.Debounce)
	if val := getenv("WATCH_SCHEDULE"); val != "" {
		cfg.Watch.Schedule = val
	}

	// Journal overrides
	envBool("JOURNAL_ENABLED", &cfg.Journal.Enabled)
	if val := getenv("JOURNAL_BACKEND"); val != "" {
		cfg.Journal.Backend = val
	}
	if val := getenv("JOURNAL_SQLITE_PATH"); val != "" {
		cfg.Journal.SQLite.Path = val
	}
	if val := getenv("JOURNAL_SQLITE_JOURNAL_MODE"); val != "" {
		cfg.Journal.SQLite.JournalMode = val
	}
	envDuration("JOURNAL_SQLITE_BUSY_TIMEOUT", &cfg.Journal.SQLite.BusyTimeout)
	envInt("JOURNAL_BUFFER_SIZE", &cfg.Journal.BufferSize)
	envInt("JOURNAL_RETENTION_DAYS", &cfg.Journal.Retention.Days)
	if val := getenv("JOURNAL_RETENTION_PRUNE_SCHEDULE"); val != "" {
		cfg.Journal.Retention.PruneSchedule = val
	}

	// Telemetry overrides
	if val := getenv("TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := getenv("TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	envBool("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	if val := getenv("TELEMETRY_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
	if val := getenv("TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
	envBool("TELEMETRY_HEALTH_ENABLED", &cfg.Telemetry.Health.Enabled)
}

func getenv(name string) string {
	return os.Getenv(EnvPrefix + name)
}

func envBool(name string, dst *bool) {
	if val := getenv(name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(name string, dst *int) {
	if val := getenv(name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := getenv(name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// splitList splits a comma separated list and drops empty items.
func splitList(val string) []string {
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
