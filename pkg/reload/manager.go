package reload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"reloadr-hq/reloadr/pkg/config"
	"reloadr-hq/reloadr/pkg/reload/journal"
	"reloadr-hq/reloadr/pkg/reload/rebuild"
	"reloadr-hq/reloadr/pkg/reload/source"
	"reloadr-hq/reloadr/pkg/reload/watch"
	"reloadr-hq/reloadr/pkg/telemetry/health"
	"reloadr-hq/reloadr/pkg/telemetry/logging"
	"reloadr-hq/reloadr/pkg/telemetry/metrics"
	"reloadr-hq/reloadr/pkg/telemetry/tracing"
)

// ErrManagerClosed is returned by Watch after Close.
var ErrManagerClosed = errors.New("reload manager closed")

type managerOptions struct {
	registry  *prometheus.Registry
	notifier  watch.Notifier
	storage   journal.Storage
	tracer    *tracing.Tracer
	nsOptions []rebuild.Option
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerOptions)

// WithRegistry registers the reload metrics with registry instead of a
// private one.
func WithRegistry(registry *prometheus.Registry) ManagerOption {
	return func(o *managerOptions) {
		o.registry = registry
	}
}

// WithNotifier replaces the fsnotify based notifier used in "fs" watch mode.
// The manager starts and stops it.
func WithNotifier(n watch.Notifier) ManagerOption {
	return func(o *managerOptions) {
		o.notifier = n
	}
}

// WithStorage replaces the journal backend selected by the configuration.
// The manager closes it.
func WithStorage(s journal.Storage) ManagerOption {
	return func(o *managerOptions) {
		o.storage = s
	}
}

// WithTracing replaces the tracer built from the tracing section of the
// configuration. The caller shuts it down.
func WithTracing(t *tracing.Tracer) ManagerOption {
	return func(o *managerOptions) {
		o.tracer = t
	}
}

// WithNamespaceOptions adds options to every namespace loaded through the
// manager, after the ones derived from the configuration.
func WithNamespaceOptions(opts ...rebuild.Option) ManagerOption {
	return func(o *managerOptions) {
		o.nsOptions = append(o.nsOptions, opts...)
	}
}

// Manager wires proxies to a watch driver and to the reload observers
// (metrics, health and the journal) according to the configuration.
type Manager struct {
	cfg    *config.Config
	base   *slog.Logger
	logger *slog.Logger
	opts   managerOptions

	metrics   *metrics.Collector
	tracer    *tracing.Tracer
	ownTracer bool
	tracker   *health.ReloadTracker
	storage   journal.Storage
	recorder  *journal.Recorder
	scheduler *journal.Scheduler
	cron      *watch.CronDriver

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	notifier  watch.Notifier
	notifying bool
	closed    bool
}

// NewManager creates a manager. A nil cfg means config.Default().
func NewManager(cfg *config.Config, logger *slog.Logger, opts ...ManagerOption) (*Manager, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	var o managerOptions
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:      cfg,
		base:     logger,
		logger:   logging.Component(logger, "reload.manager"),
		opts:     o,
		metrics:  metrics.NewCollector(&cfg.Telemetry.Metrics, o.registry),
		tracker:  health.NewReloadTracker(),
		cron:     watch.NewCronDriver(logger),
		ctx:      ctx,
		cancel:   cancel,
		notifier: o.notifier,
		tracer:   o.tracer,
	}

	if m.tracer == nil {
		t, err := tracing.New(&cfg.Telemetry.Tracing)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create tracer: %w", err)
		}
		m.tracer, m.ownTracer = t, true
	}

	if cfg.Journal.Enabled {
		if err := m.openJournal(); err != nil {
			cancel()
			m.shutdownTracer()
			return nil, err
		}
	}
	return m, nil
}

func (m *Manager) openJournal() error {
	store := m.opts.storage
	if store == nil {
		var err error
		store, err = journal.Open(m.cfg.Journal, m.base)
		if err != nil {
			return fmt.Errorf("failed to open reload journal: %w", err)
		}
	}

	m.storage = store
	m.recorder = journal.NewRecorder(store, journal.RecorderConfigFrom(m.cfg.Journal), m.base,
		journal.WithDropHook(m.metrics.RecordJournalDrop))

	pruner := journal.NewPruner(store, m.cfg.Journal.Retention.Days, m.base)
	m.scheduler = journal.NewScheduler(pruner, m.cfg.Journal.Retention.PruneSchedule)
	if err := m.scheduler.Start(m.ctx); err != nil {
		m.recorder.Close()
		store.Close()
		return err
	}
	return nil
}

// Config returns the manager configuration.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Metrics returns the reload metrics collector.
func (m *Manager) Metrics() *metrics.Collector {
	return m.metrics
}

// Tracer returns the reload tracer.
func (m *Manager) Tracer() *tracing.Tracer {
	return m.tracer
}

// Health returns the tracker of definitions whose last reload failed.
func (m *Manager) Health() *health.ReloadTracker {
	return m.tracker
}

// Journal returns the journal storage, or nil when the journal is disabled.
func (m *Manager) Journal() journal.Storage {
	return m.storage
}

// Namespace loads the script at path with the interpreter settings of the
// configuration.
func (m *Manager) Namespace(path string) (*rebuild.Namespace, error) {
	opts := append(NamespaceOptions(m.cfg.Reload), m.opts.nsOptions...)
	return rebuild.Load(path, opts...)
}

// NamespaceOptions converts the reload section of the configuration to
// namespace options.
func NamespaceOptions(rc config.ReloadConfig) []rebuild.Option {
	opts := []rebuild.Option{
		rebuild.WithUnrestricted(rc.Unrestricted),
	}
	if len(rc.Markers) > 0 {
		opts = append(opts, rebuild.WithMarkers(rc.Markers...))
	}
	if rc.GoPath != "" {
		opts = append(opts, rebuild.WithGoPath(rc.GoPath))
	}
	if len(rc.BuildTags) > 0 {
		opts = append(opts, rebuild.WithBuildTags(rc.BuildTags...))
	}
	return opts
}

// ProxyOptions returns the options that connect a proxy to the manager's
// logger, tracer and observers. Extra options are appended.
func (m *Manager) ProxyOptions(extra ...Option) []Option {
	opts := []Option{
		WithLogger(logging.Component(m.base, "reload.proxy")),
		WithTracer(m.tracer.Tracer()),
		WithMarkers(m.cfg.Reload.Markers...),
		WithObserver(ObserverFunc(m.observe)),
	}
	return append(opts, extra...)
}

// observe fans a reload result out to metrics, health and the journal.
func (m *Manager) observe(res Result) {
	kind := res.Kind.String()
	m.metrics.RecordReload(res.Symbol, kind, string(res.Status), res.Duration, res.Retagged, res.Migrated, res.Timestamp)
	if res.Kind == source.KindClass && res.Status == StatusSuccess {
		m.metrics.SetLiveInstances(res.Symbol, res.Retagged)
	}
	m.tracker.Record(res.Symbol, res.Err, res.Timestamp)

	if m.recorder == nil {
		return
	}
	rec := journal.Record{
		ID:        res.ID.String(),
		Symbol:    res.Symbol,
		Kind:      kind,
		File:      res.File,
		Hash:      res.Hash,
		Status:    string(res.Status),
		Duration:  res.Duration,
		Retagged:  res.Retagged,
		Migrated:  res.Migrated,
		Timestamp: res.Timestamp,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	m.recorder.Record(rec)
}

// Watch starts the configured watch mode for p. Watching ends when ctx is
// done or the manager is closed.
func (m *Manager) Watch(ctx context.Context, p Reloadable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}

	wc := m.cfg.Watch
	mode := wc.Mode
	ctx = logging.WithMode(logging.WithSymbol(logging.WithFile(ctx, p.File()), p.Name()), mode)

	reload := func() error {
		m.metrics.RecordTrigger(mode)
		return p.Reload()
	}

	var stop func()
	switch mode {
	case "none":
		m.logger.DebugContext(ctx, "Watching disabled")
		return nil

	case "fs":
		n, err := m.fsNotifier()
		if err != nil {
			return err
		}
		stop, err = watch.WatchFile(n, p.File(), reload)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", p.File(), err)
		}

	case "timer":
		tctx, cancel := context.WithCancel(ctx)
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := watch.RunTimer(tctx, wc.Interval, reload); err != nil {
				m.logger.ErrorContext(tctx, "Timer watch stopped", "error", err)
			}
		}()
		stop = cancel

	case "cron":
		var err error
		stop, err = m.cron.Add(wc.Schedule, reload)
		if err != nil {
			return err
		}
		m.cron.Start()

	default:
		return fmt.Errorf("unknown watch mode %q", mode)
	}

	m.metrics.AddWatched(mode, 1)
	m.logger.InfoContext(ctx, "Watching "+p.Kind().String()+" "+p.Name())

	// Stop on ctx or manager shutdown, whichever comes first.
	wctx, cancel := context.WithCancel(ctx)
	unlink := context.AfterFunc(m.ctx, cancel)
	m.wg.Add(1)
	context.AfterFunc(wctx, func() {
		defer m.wg.Done()
		unlink()
		stop()
		m.metrics.AddWatched(mode, -1)
		m.logger.DebugContext(ctx, "Stopped watching")
	})
	return nil
}

// fsNotifier returns the started notifier, creating it on first use. m.mu
// must be held.
func (m *Manager) fsNotifier() (watch.Notifier, error) {
	if m.notifier == nil {
		n, err := watch.NewFSNotifier(m.cfg.Watch.Debounce, m.base)
		if err != nil {
			return nil, fmt.Errorf("failed to create file notifier: %w", err)
		}
		m.notifier = n
	}
	if !m.notifying {
		if err := m.notifier.Start(); err != nil {
			return nil, fmt.Errorf("failed to start file notifier: %w", err)
		}
		m.notifying = true
	}
	return m.notifier, nil
}

// Autoreload creates a proxy for every definition of ns carrying a reload
// marker and watches each one. Functions are proxied as Func[any]. Failures
// for single definitions are collected; the proxies that could be set up are
// returned either way.
func (m *Manager) Autoreload(ctx context.Context, ns *rebuild.Namespace) ([]Reloadable, error) {
	marked, err := source.FindMarked(ns.Path(), m.cfg.Reload.Markers)
	if err != nil {
		return nil, err
	}

	var proxies []Reloadable
	errs := &ErrorList{}
	for _, d := range marked {
		var p Reloadable
		switch d.Kind {
		case source.KindClass:
			p, err = NewClass(ns, d.Name, m.ProxyOptions()...)
		default:
			p, err = NewFunc[any](ns, d.Name, m.ProxyOptions()...)
		}
		if err != nil {
			errs.Add(fmt.Errorf("%s %s: %w", d.Kind, d.Name, err))
			continue
		}
		if err := m.Watch(ctx, p); err != nil {
			errs.Add(fmt.Errorf("%s %s: %w", d.Kind, d.Name, err))
			continue
		}
		proxies = append(proxies, p)
	}

	m.logger.InfoContext(ctx, "Autoreload set up",
		"file", ns.Path(),
		"marked", len(marked),
		"watched", len(proxies),
	)
	return proxies, errs.ToError()
}

// Close stops every watch, the notifier and the cron driver, then flushes
// and closes the journal.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	n := m.notifier
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()

	var errs []error
	if n != nil {
		if err := n.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	m.cron.Stop()

	if m.scheduler != nil {
		m.scheduler.Stop()
	}
	if m.recorder != nil {
		m.recorder.Close()
	}
	if m.storage != nil {
		if err := m.storage.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.shutdownTracer(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (m *Manager) shutdownTracer() error {
	if !m.ownTracer {
		return nil
	}
	timeout := m.cfg.Telemetry.Tracing.OTLP.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTracingOTLPTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return m.tracer.Shutdown(ctx)
}
