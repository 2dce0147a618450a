package journal

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage implements Storage in memory. Records are lost when the
// process exits.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []*Record
	closed  bool
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store keeps a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageError("memory", "store", ErrClosed)
	}
	cp := *record
	s.records = append(s.records, &cp)
	return nil
}

// Query returns copies of the records matching q.
func (s *MemoryStorage) Query(ctx context.Context, q *Query) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageError("memory", "query", ErrClosed)
	}

	// records is in insertion order; a stable sort keeps it for equal
	// timestamps.
	matched := []*Record{}
	for _, r := range s.records {
		if matchesQuery(r, q) {
			cp := *r
			matched = append(matched, &cp)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})
	if !q.Ascending {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}

	if q.Offset >= len(matched) {
		return []*Record{}, nil
	}
	matched = matched[q.Offset:]

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Count returns the number of records matching q.
func (s *MemoryStorage) Count(ctx context.Context, q *Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, NewStorageError("memory", "count", ErrClosed)
	}

	var count int64
	for _, r := range s.records {
		if matchesQuery(r, q) {
			count++
		}
	}
	return count, nil
}

// Prune deletes the records older than before.
func (s *MemoryStorage) Prune(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, NewStorageError("memory", "prune", ErrClosed)
	}

	kept := s.records[:0]
	var deleted int64
	for _, r := range s.records {
		if r.Timestamp.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	clear(s.records[len(kept):])
	s.records = kept
	return deleted, nil
}

// Close marks the storage closed and drops its records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.records = nil
	return nil
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func matchesQuery(r *Record, q *Query) bool {
	if q.Symbol != "" && r.Symbol != q.Symbol {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if q.File != "" && r.File != q.File {
		return false
	}
	if q.StartTime != nil && r.Timestamp.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && r.Timestamp.After(*q.EndTime) {
		return false
	}
	return true
}
