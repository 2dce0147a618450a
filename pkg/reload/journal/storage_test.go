package journal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reloadr-hq/reloadr/pkg/config"
)

func newSQLite(t *testing.T, driver string) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(config.SQLiteConfig{
		Driver:       driver,
		Path:         filepath.Join(t.TempDir(), "nested", "journal.db"),
		MaxOpenConns: 2,
		MaxIdleConns: 1,
		JournalMode:  "wal",
		BusyTimeout:  time.Second,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func backends(t *testing.T) map[string]func(*testing.T) Storage {
	return map[string]func(*testing.T) Storage{
		"sqlite3": func(t *testing.T) Storage { return newSQLite(t, "sqlite3") },
		"sqlite":  func(t *testing.T) Storage { return newSQLite(t, "sqlite") },
		"memory": func(t *testing.T) Storage { return NewMemoryStorage() },
	}
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func record(id, symbol, status string, offset time.Duration) *Record {
	r := &Record{
		ID:        id,
		Symbol:    symbol,
		Kind:      "function",
		File:      "/scripts/app.go",
		Status:    status,
		Duration:  3 * time.Millisecond,
		Timestamp: base.Add(offset),
	}
	if status == StatusSuccess {
		r.Hash = "abc123"
	} else {
		r.Error = "syntax error"
	}
	return r
}

func seed(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()
	for _, r := range []*Record{
		record("1", "f", StatusSuccess, 0),
		record("2", "f", StatusFailure, time.Minute),
		record("3", "Counter", StatusSuccess, 2*time.Minute),
		record("4", "f", StatusSuccess, 3*time.Minute),
	} {
		require.NoError(t, s.Store(ctx, r))
	}
}

func ids(records []*Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestStorage_StoreAndQuery(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			seed(t, s)
			ctx := context.Background()

			all, err := s.Query(ctx, &Query{})
			require.NoError(t, err)
			assert.Equal(t, []string{"4", "3", "2", "1"}, ids(all))

			asc, err := s.Query(ctx, &Query{Ascending: true})
			require.NoError(t, err)
			assert.Equal(t, []string{"1", "2", "3", "4"}, ids(asc))

			got := all[2]
			assert.Equal(t, "f", got.Symbol)
			assert.Equal(t, StatusFailure, got.Status)
			assert.Equal(t, "syntax error", got.Error)
			assert.Empty(t, got.Hash)
			assert.Equal(t, 3*time.Millisecond, got.Duration)
			assert.True(t, got.Timestamp.Equal(base.Add(time.Minute)))
		})
	}
}

func TestStorage_Filters(t *testing.T) {
	start := base.Add(30 * time.Second)
	end := base.Add(2 * time.Minute)

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{name: "symbol", query: Query{Symbol: "f"}, want: []string{"4", "2", "1"}},
		{name: "status", query: Query{Status: StatusFailure}, want: []string{"2"}},
		{name: "symbol and status", query: Query{Symbol: "f", Status: StatusSuccess}, want: []string{"4", "1"}},
		{name: "time range inclusive", query: Query{StartTime: &start, EndTime: &end}, want: []string{"3", "2"}},
		{name: "limit", query: Query{Limit: 2}, want: []string{"4", "3"}},
		{name: "offset", query: Query{Limit: 2, Offset: 3}, want: []string{"1"}},
		{name: "no match", query: Query{Kind: "class", Symbol: "f"}, want: []string{}},
	}

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			seed(t, s)
			ctx := context.Background()

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					got, err := s.Query(ctx, &tt.query)
					require.NoError(t, err)
					assert.Equal(t, tt.want, ids(got))
				})
			}
		})
	}
}

func TestStorage_Count(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			seed(t, s)
			ctx := context.Background()

			n, err := s.Count(ctx, &Query{Symbol: "f", Limit: 1})
			require.NoError(t, err)
			assert.Equal(t, int64(3), n)
		})
	}
}

func TestStorage_Prune(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			seed(t, s)
			ctx := context.Background()

			deleted, err := s.Prune(ctx, base.Add(90*time.Second))
			require.NoError(t, err)
			assert.Equal(t, int64(2), deleted)

			rest, err := s.Query(ctx, &Query{})
			require.NoError(t, err)
			assert.Equal(t, []string{"4", "3"}, ids(rest))
		})
	}
}

func TestSQLiteStorage_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "journal.db")

	s, err := NewSQLiteStorage(config.SQLiteConfig{Path: path, BusyTimeout: time.Second}, nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestSQLiteStorage_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	cfg := config.SQLiteConfig{Path: path, BusyTimeout: time.Second}

	s, err := NewSQLiteStorage(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, s.Store(context.Background(), record("1", "f", StatusSuccess, 0)))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStorage(cfg, nil)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Count(context.Background(), &Query{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLiteStorage_InvalidConfig(t *testing.T) {
	_, err := NewSQLiteStorage(config.SQLiteConfig{}, nil)
	require.Error(t, err)

	_, err = NewSQLiteStorage(config.SQLiteConfig{
		Path:        filepath.Join(t.TempDir(), "j.db"),
		JournalMode: "wal; DROP TABLE reloads",
	}, nil)
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "open", storageErr.Operation)

	_, err = NewSQLiteStorage(config.SQLiteConfig{
		Driver: "postgres",
		Path:   filepath.Join(t.TempDir(), "j.db"),
	}, nil)
	require.ErrorAs(t, err, &storageErr)
	assert.Contains(t, err.Error(), "unsupported driver")
}

func TestMemoryStorage_Closed(t *testing.T) {
	s := NewMemoryStorage()
	require.NoError(t, s.Close())

	err := s.Store(context.Background(), record("1", "f", StatusSuccess, 0))
	assert.True(t, errors.Is(err, ErrClosed))

	_, err = s.Query(context.Background(), &Query{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemoryStorage_StoresCopies(t *testing.T) {
	s := NewMemoryStorage()
	r := record("1", "f", StatusSuccess, 0)
	require.NoError(t, s.Store(context.Background(), r))
	r.Symbol = "changed"

	got, err := s.Query(context.Background(), &Query{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "f", got[0].Symbol)
}

func TestOpen(t *testing.T) {
	cfg := config.Default().Journal

	cfg.Backend = "memory"
	s, err := Open(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, s)
	s.Close()

	cfg.Backend = "sqlite"
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "j.db")
	s, err = Open(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStorage{}, s)
	s.Close()

	cfg.Backend = "postgres"
	_, err = Open(cfg, nil)
	assert.Error(t, err)
}
