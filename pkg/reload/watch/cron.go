package watch

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// CronDriver calls reload functions on cron schedules.
type CronDriver struct {
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewCronDriver creates a stopped driver.
func NewCronDriver(logger *slog.Logger) *CronDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &CronDriver{
		cron:   cron.New(),
		logger: logger.With("component", "watch.cron"),
	}
}

// Add schedules reload. schedule is a standard five field cron expression
// or a descriptor such as "@every 5s" or "@hourly". The returned function
// removes the job.
//
// Common schedules:
//   - "@every 2s"    - Every two seconds
//   - "*/1 * * * *"  - Every minute
//   - "0 * * * *"    - Every hour
func (d *CronDriver) Add(schedule string, reload func() error) (func(), error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}

	id, err := d.cron.AddFunc(schedule, func() {
		// Failures are logged by the proxy.
		_ = reload()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule reload: %w", err)
	}

	d.logger.Debug("Reload scheduled", "schedule", schedule, "entry_id", int(id))

	var once sync.Once
	return func() {
		once.Do(func() { d.cron.Remove(id) })
	}, nil
}

// Start begins running scheduled jobs. Calling it on a running driver does
// nothing.
func (d *CronDriver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}
	d.cron.Start()
	d.running = true
	d.logger.Info("Reload scheduler started", "jobs", len(d.cron.Entries()))
}

// Stop stops the scheduler and waits for any running jobs to complete.
func (d *CronDriver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return
	}
	ctx := d.cron.Stop()
	<-ctx.Done()
	d.running = false
	d.logger.Info("Reload scheduler stopped")
}

// IsRunning returns true if the scheduler is running.
func (d *CronDriver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// NextRun returns the earliest next run among scheduled jobs, nil when
// nothing is scheduled or the driver is stopped.
func (d *CronDriver) NextRun() *time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	var next *time.Time
	for _, e := range d.cron.Entries() {
		if e.Next.IsZero() {
			continue
		}
		if next == nil || e.Next.Before(*next) {
			t := e.Next
			next = &t
		}
	}
	return next
}
