package journal

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// database/sql keeps a connection opener per DB until Close returns.
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

// blockingStorage blocks Store until release is closed.
type blockingStorage struct {
	*MemoryStorage
	release chan struct{}
	once    sync.Once
}

func (s *blockingStorage) Store(ctx context.Context, r *Record) error {
	<-s.release
	return s.MemoryStorage.Store(ctx, r)
}

func (s *blockingStorage) unblock() {
	s.once.Do(func() { close(s.release) })
}

func TestRecorder_WritesRecords(t *testing.T) {
	store := NewMemoryStorage()
	rec := NewRecorder(store, RecorderConfig{BufferSize: 8, WriteTimeout: time.Second}, nil)

	for _, id := range []string{"1", "2", "3"} {
		rec.Record(*record(id, "f", StatusSuccess, 0))
	}
	require.NoError(t, rec.Close())

	assert.Equal(t, 3, store.Size())
	assert.Zero(t, rec.Dropped())
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	store := &blockingStorage{MemoryStorage: NewMemoryStorage(), release: make(chan struct{})}
	var hook atomic.Int64
	rec := NewRecorder(store, RecorderConfig{BufferSize: 1, WriteTimeout: time.Second}, nil,
		WithDropHook(func() { hook.Add(1) }))
	defer func() {
		store.unblock()
		rec.Close()
	}()

	// The worker takes the first record and blocks on it; the second fills
	// the queue; the rest are dropped.
	rec.Record(*record("1", "f", StatusSuccess, 0))
	require.Eventually(t, func() bool { return len(rec.ch) == 0 }, time.Second, time.Millisecond)
	for _, id := range []string{"2", "3", "4"} {
		rec.Record(*record(id, "f", StatusSuccess, 0))
	}

	assert.Equal(t, int64(2), rec.Dropped())
	assert.Equal(t, int64(2), hook.Load())

	store.unblock()
	require.NoError(t, rec.Close())
	assert.Equal(t, 2, store.Size())
}

func TestRecorder_RecordAfterClose(t *testing.T) {
	store := NewMemoryStorage()
	rec := NewRecorder(store, RecorderConfig{}, nil)
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())

	rec.Record(*record("1", "f", StatusSuccess, 0))
	assert.Equal(t, int64(1), rec.Dropped())
	assert.Zero(t, store.Size())
}

func TestRecorder_CloseRacingRecords(t *testing.T) {
	for range 20 {
		store := NewMemoryStorage()
		rec := NewRecorder(store, RecorderConfig{BufferSize: 64, WriteTimeout: time.Second}, nil)

		const writers, each = 4, 25
		var wg sync.WaitGroup
		start := make(chan struct{})
		for w := range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for n := range each {
					rec.Record(*record(strconv.Itoa(w*each+n), "f", StatusSuccess, 0))
				}
			}()
		}

		close(start)
		require.NoError(t, rec.Close())
		wg.Wait()

		assert.Equal(t, int64(writers*each), int64(store.Size())+rec.Dropped(),
			"every record is either stored or counted as dropped")
	}
}

func TestPruner(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	now := base.Add(10 * 24 * time.Hour)

	require.NoError(t, store.Store(ctx, record("old", "f", StatusSuccess, 0)))
	require.NoError(t, store.Store(ctx, record("new", "f", StatusSuccess, 8*24*time.Hour)))

	p := NewPruner(store, 7, nil)
	p.now = func() time.Time { return now }

	deleted, err := p.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 1, store.Size())

	disabled := NewPruner(store, -1, nil)
	deleted, err = disabled.Prune(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestScheduler(t *testing.T) {
	store := NewMemoryStorage()
	s := NewScheduler(NewPruner(store, 30, nil), "0 3 * * *")

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	require.NotNil(t, s.NextRun())
	assert.Equal(t, 3, s.NextRun().Hour())

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRun())
}

func TestScheduler_Disabled(t *testing.T) {
	store := NewMemoryStorage()

	s := NewScheduler(NewPruner(store, -1, nil), "0 3 * * *")
	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())

	bad := NewScheduler(NewPruner(store, 30, nil), "not a schedule")
	assert.Error(t, bad.Start(context.Background()))
}
