package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"reloadr-hq/reloadr/pkg/cli"
	"reloadr-hq/reloadr/pkg/config"
	"reloadr-hq/reloadr/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "reloadr",
	Short: "Reloadr - hot reload for Go script definitions",
	Long: `Reloadr runs Go script files in an embedded interpreter and hot-reloads
the functions and types marked for it whenever the script changes.

Live instances of a reloaded type keep their field values and pick up the
new methods. A failed reload keeps the previous definition running.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig initializes the process-wide configuration from --config and
// returns a copy that flags may override.
func loadConfig() (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	cfg := *config.GetConfig()
	return &cfg, nil
}

// newLogger builds the process logger and installs it as the default.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	lc := cfg.Telemetry.Logging
	if verbose {
		lc.Level = "debug"
	}
	logger, err := logging.New(logging.FromConfig(lc, w))
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err)
	}
	slog.SetDefault(logger)
	return logger, nil
}
