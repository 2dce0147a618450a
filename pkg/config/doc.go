// Package config provides configuration management for reloadr.
//
// Configuration is read from a YAML file (conventionally reloadr.yaml),
// completed with defaults, overridden from the environment and validated.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("reloadr.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("reloadr.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention RELOADR_SECTION_FIELD:
//
//   - RELOADR_WATCH_MODE overrides watch.mode
//   - RELOADR_JOURNAL_SQLITE_PATH overrides journal.sqlite.path
//   - RELOADR_RELOAD_MARKERS overrides reload.markers (comma separated)
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Example Configuration
//
//	reload:
//	  markers: ["//reloadr:reload"]
//	  unrestricted: false
//	watch:
//	  mode: fs
//	  debounce: 50ms
//	journal:
//	  enabled: true
//	  backend: sqlite
//	  sqlite:
//	    path: data/reloadr.db
//	telemetry:
//	  logging:
//	    level: info
//	    format: console
//	  metrics:
//	    enabled: true
//	    listen_address: 127.0.0.1:9464
//
// # Singleton
//
//	if err := config.Initialize("reloadr.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
package config
