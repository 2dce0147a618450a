package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"reloadr-hq/reloadr/pkg/cli"
	"reloadr-hq/reloadr/pkg/config"
	"reloadr-hq/reloadr/pkg/reload"
	"reloadr-hq/reloadr/pkg/reload/rebuild"
	"reloadr-hq/reloadr/pkg/server"
	"reloadr-hq/reloadr/pkg/telemetry/health"
)

var runFlags struct {
	call     string
	every    time.Duration
	mode     string
	interval time.Duration
	logLevel string
}

var runCmd = &cobra.Command{
	Use:   "run SCRIPT",
	Short: "Run a script with hot reload",
	Long: `Load a Go script, wrap every marked definition in a reload proxy and
watch the script for changes until interrupted.

With --call, the named function is called periodically through its proxy and
its results are printed, which shows each reload as it lands.

Examples:
  # Watch the marked definitions of app.go
  reloadr run app.go

  # Call Tick every 500ms and reload on a fixed timer
  reloadr run app.go --call Tick --every 500ms --mode timer --interval 2s`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.call, "call", "", "function to call periodically")
	runCmd.Flags().DurationVar(&runFlags.every, "every", time.Second, "call period for --call")
	runCmd.Flags().StringVar(&runFlags.mode, "mode", "", "override watch mode (fs, timer, cron, none)")
	runCmd.Flags().DurationVar(&runFlags.interval, "interval", 0, "override timer watch interval")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

func runScript(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFlags.mode != "" {
		cfg.Watch.Mode = runFlags.mode
	}
	if runFlags.interval > 0 {
		cfg.Watch.Interval = runFlags.interval
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err)
	}
	if runFlags.call != "" && runFlags.every <= 0 {
		return cli.NewConfigError("--every", fmt.Errorf("must be positive, got %s", runFlags.every))
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	manager, err := reload.NewManager(cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer manager.Close()

	ns, err := manager.Namespace(args[0])
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	proxies, err := manager.Autoreload(ctx, ns)
	if err != nil {
		logger.Warn("Some definitions are not reloadable", "error", err)
	}
	logger.Info("Script loaded",
		"file", ns.Path(),
		"reloadable", len(proxies),
		"watch_mode", cfg.Watch.Mode,
		"tracing", manager.Tracer().Enabled(),
	)

	srv := server.NewServer(cfg.Telemetry, manager.Metrics(), newChecker(cfg, manager), versionInfo(), logger)
	serverErr := make(chan error, 1)
	if srv.Enabled() {
		go func() { serverErr <- srv.Start(ctx) }()
	} else {
		close(serverErr)
	}

	if runFlags.call != "" {
		fn, err := callable(ctx, manager, ns, proxies, runFlags.call)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		callLoop(ctx, cmd, fn, runFlags.every, logger)
	} else {
		<-ctx.Done()
	}

	logger.Info("Shutting down")
	if err := <-serverErr; err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

// callable returns the function proxy named name, creating and watching one
// when the definition carries no marker.
func callable(ctx context.Context, m *reload.Manager, ns *rebuild.Namespace, proxies []reload.Reloadable, name string) (*reload.Func[any], error) {
	for _, p := range proxies {
		if f, ok := p.(*reload.Func[any]); ok && f.Name() == name {
			return f, nil
		}
	}

	f, err := reload.NewFunc[any](ns, name, m.ProxyOptions()...)
	if err != nil {
		return nil, err
	}
	if err := m.Watch(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func callLoop(ctx context.Context, cmd *cobra.Command, fn *reload.Func[any], every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	out := cmd.OutOrStdout()
	for {
		results, err := fn.Call()
		if err != nil {
			logger.Error("Call failed", "symbol", fn.Name(), "error", err)
		} else {
			fmt.Fprintf(out, "%s() = %v\n", fn.Name(), formatResults(results))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func formatResults(results []any) any {
	if len(results) == 1 {
		return results[0]
	}
	return results
}

// newChecker builds the readiness checks: failed reloads, and the journal
// database when it can be pinged.
func newChecker(cfg *config.Config, m *reload.Manager) *health.Checker {
	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("reloads", m.Health().Check)
	if p, ok := m.Journal().(interface{ Ping(context.Context) error }); ok {
		checker.RegisterCheck("journal", p.Ping)
	}
	return checker
}

func versionInfo() health.VersionInfo {
	return health.VersionInfo{Version: Version, Commit: GitCommit, BuildTime: BuildDate}
}
