package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner deletes journal records older than a retention period.
type Pruner struct {
	storage Storage
	days    int
	now     func() time.Time
	logger  *slog.Logger
}

// NewPruner creates a pruner keeping days of history. A negative days keeps
// everything.
func NewPruner(storage Storage, days int, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		storage: storage,
		days:    days,
		now:     time.Now,
		logger:  logger.With("component", "journal.pruner"),
	}
}

// Cutoff returns the time before which records are pruned, and false when
// pruning is disabled.
func (p *Pruner) Cutoff() (time.Time, bool) {
	if p.days < 0 {
		return time.Time{}, false
	}
	return p.now().AddDate(0, 0, -p.days), true
}

// Prune deletes the expired records and returns how many were removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	cutoff, ok := p.Cutoff()
	if !ok {
		return 0, nil
	}

	start := time.Now()
	deleted, err := p.storage.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}

	p.logger.Info("journal pruned",
		"cutoff", cutoff.Format(time.RFC3339),
		"deleted", deleted,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return deleted, nil
}

// Scheduler runs a Pruner on a cron schedule.
type Scheduler struct {
	pruner   *Pruner
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewScheduler creates a scheduler for pruner. schedule uses the standard
// five field cron syntax or a descriptor such as "@daily".
func NewScheduler(pruner *Pruner, schedule string) *Scheduler {
	return &Scheduler{
		pruner:   pruner,
		schedule: schedule,
		cron:     cron.New(),
		logger:   pruner.logger,
	}
}

// Start schedules the pruning. ctx is passed to every run. An empty schedule
// or a disabled pruner leaves the scheduler idle.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if _, ok := s.pruner.Cutoff(); !ok || s.schedule == "" {
		s.logger.Info("journal pruning disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.running = true

	s.logger.Info("journal pruning scheduled",
		"schedule", s.schedule,
		"retention_days", s.pruner.days,
	)
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.pruner.Prune(ctx); err != nil {
		s.logger.Error("scheduled journal pruning failed", "error", err)
	}
}

// Stop stops the scheduler and waits for a running prune to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
}

// IsRunning reports whether the scheduler is started.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled pruning time, or nil when idle.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if !s.running || len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
