package config

import (
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// globalConfig holds the process-wide configuration.
	globalConfig atomic.Pointer[Config]

	// initMu serializes Initialize and records whether it succeeded.
	initMu   sync.Mutex
	initDone bool
)

// Initialize loads configuration from path with environment variable
// overrides and stores it as the process-wide configuration. An empty path
// starts from the defaults. Only the first successful call has an effect;
// later calls return nil.
func Initialize(path string) error {
	initMu.Lock()
	defer initMu.Unlock()

	if initDone {
		return nil
	}

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return err
	}

	globalConfig.Store(cfg)
	initDone = true
	return nil
}

// GetConfig returns the process-wide configuration, or nil before a
// successful Initialize or SetConfig.
//
// For testing, prefer passing explicit Config instances.
func GetConfig() *Config {
	return globalConfig.Load()
}

// SetConfig replaces the process-wide configuration. It is intended for
// tests and for embedding applications that build their own Config.
func SetConfig(cfg *Config) {
	globalConfig.Store(cfg)
}

// Refresh re-reads the configuration from path. The process-wide
// configuration is replaced only if loading and validation succeed.
func Refresh(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	globalConfig.Store(cfg)
	return nil
}

// MustGetConfig returns the process-wide configuration and panics if it has
// not been initialized.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}

// reset clears the process-wide configuration.
func reset() {
	initMu.Lock()
	defer initMu.Unlock()
	globalConfig.Store(nil)
	initDone = false
}
