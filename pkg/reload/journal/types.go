package journal

import (
	"context"
	"time"
)

// Status values of a Record.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Record is one reload attempt as stored in the journal.
type Record struct {
	// ID is the reload attempt ID (a UUID).
	ID string `json:"id"`

	// Symbol is the reloaded definition name.
	Symbol string `json:"symbol"`

	// Kind is "class" or "function".
	Kind string `json:"kind"`

	// File is the script the definition was read from.
	File string `json:"file"`

	// Hash is the content hash of the installed fragment. Empty on failure.
	Hash string `json:"hash,omitempty"`

	// Status is StatusSuccess or StatusFailure.
	Status string `json:"status"`

	// Error is the failure message. Empty on success.
	Error string `json:"error,omitempty"`

	// Duration is the time spent on the attempt.
	Duration time.Duration `json:"duration"`

	// Retagged and Migrated count the instances moved to the new definition
	// and the ones whose layout was migrated.
	Retagged int `json:"retagged"`
	Migrated int `json:"migrated"`

	// Timestamp is when the attempt started.
	Timestamp time.Time `json:"timestamp"`
}

// Query selects journal records. Zero fields do not filter.
type Query struct {
	Symbol string
	Kind   string
	Status string
	File   string

	// StartTime and EndTime bound Timestamp, both inclusive.
	StartTime *time.Time
	EndTime   *time.Time

	// Limit caps the number of records returned. Zero means DefaultLimit.
	Limit  int
	Offset int

	// Ascending returns the oldest records first. The default is newest
	// first.
	Ascending bool
}

// DefaultLimit is the number of records a query returns without a Limit.
const DefaultLimit = 100

// Storage persists journal records.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Query returns the records matching q, ordered by Timestamp.
	Query(ctx context.Context, q *Query) ([]*Record, error)

	// Count returns the number of records matching q, ignoring paging.
	Count(ctx context.Context, q *Query) (int64, error)

	// Prune deletes the records older than before and returns how many were
	// removed.
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Close releases the backend.
	Close() error
}
