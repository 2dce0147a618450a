package journal

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"reloadr-hq/reloadr/pkg/config"
)

// RecorderConfig contains configuration for a Recorder.
type RecorderConfig struct {
	// BufferSize is the capacity of the write queue. Records arriving while
	// it is full are dropped.
	BufferSize int

	// WriteTimeout bounds each storage write.
	WriteTimeout time.Duration
}

// RecorderConfigFrom extracts the recorder settings of the journal section.
func RecorderConfigFrom(cfg config.JournalConfig) RecorderConfig {
	return RecorderConfig{BufferSize: cfg.BufferSize, WriteTimeout: cfg.WriteTimeout}
}

// Recorder writes records to a Storage from a background goroutine so that
// the reload path never waits on the database.
type Recorder struct {
	storage Storage
	config  RecorderConfig
	ch      chan *Record
	done    chan struct{}
	wg      sync.WaitGroup
	logger  *slog.Logger

	// mu orders enqueues against Close, so every accepted record is in the
	// queue before the worker starts its final drain.
	mu      sync.Mutex
	closed  bool
	dropped atomic.Int64
	onDrop  func()
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithDropHook sets a function called for every dropped record.
func WithDropHook(fn func()) RecorderOption {
	return func(r *Recorder) {
		r.onDrop = fn
	}
}

// NewRecorder starts a recorder writing to storage. The storage is not
// closed by the recorder.
func NewRecorder(storage Storage, cfg RecorderConfig, logger *slog.Logger, opts ...RecorderOption) *Recorder {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = config.DefaultJournalBufferSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = config.DefaultJournalWriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage: storage,
		config:  cfg,
		ch:      make(chan *Record, cfg.BufferSize),
		done:    make(chan struct{}),
		logger:  logger.With("component", "journal.recorder"),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Debug("journal recorder started",
		"buffer_size", cfg.BufferSize,
		"write_timeout", cfg.WriteTimeout,
	)
	return r
}

// Record enqueues a record. It never blocks: when the queue is full or the
// recorder is closed the record is dropped and counted.
func (r *Recorder) Record(record Record) {
	if reason := r.enqueue(&record); reason != "" {
		r.drop(&record, reason)
	}
}

// enqueue returns why the record was refused, or "" when it was queued.
func (r *Recorder) enqueue(record *Record) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "recorder closed"
	}
	select {
	case r.ch <- record:
		return ""
	default:
		return "queue full"
	}
}

// Dropped returns the number of records dropped so far.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting records, writes the queued ones and waits for the
// worker to exit.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Debug("journal recorder stopped", "dropped", r.dropped.Load())
	return nil
}

func (r *Recorder) drop(record *Record, reason string) {
	r.dropped.Add(1)
	if r.onDrop != nil {
		r.onDrop()
	}
	r.logger.Warn("dropping journal record",
		"reason", reason,
		"reload_id", record.ID,
		"symbol", record.Symbol,
	)
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.ch:
			r.write(record)
		case <-r.done:
			for {
				select {
				case record := <-r.ch:
					r.write(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(record *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store journal record",
			"reload_id", record.ID,
			"symbol", record.Symbol,
			"error", err,
		)
		return
	}

	if d := time.Since(start); d > r.config.WriteTimeout/2 {
		r.logger.Warn("slow journal write",
			"reload_id", record.ID,
			"duration_ms", d.Milliseconds(),
		)
	}
}
