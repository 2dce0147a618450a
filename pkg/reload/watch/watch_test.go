package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeNotifier struct {
	mu        sync.Mutex
	dir       string
	recursive bool
	handler   Handler
	cancelled bool
}

func (f *fakeNotifier) Subscribe(dir string, recursive bool, h Handler) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dir, f.recursive, f.handler = dir, recursive, h
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.cancelled = true
	}, nil
}

func (f *fakeNotifier) Start() error { return nil }
func (f *fakeNotifier) Stop() error  { return nil }

func (f *fakeNotifier) emit(ev Event) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h(ev)
}

func TestWatchFile_Filters(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "script.go")

	tests := []struct {
		name   string
		event  Event
		reload bool
	}{
		{name: "write", event: Event{Path: target, Op: Write}, reload: true},
		{name: "create", event: Event{Path: target, Op: Create}, reload: true},
		{name: "write and chmod", event: Event{Path: target, Op: Write | Chmod}, reload: true},
		{name: "unclean path", event: Event{Path: filepath.Join(dir, ".", "script.go"), Op: Write}, reload: true},
		{name: "remove", event: Event{Path: target, Op: Remove}},
		{name: "rename", event: Event{Path: target, Op: Rename}},
		{name: "chmod", event: Event{Path: target, Op: Chmod}},
		{name: "sibling", event: Event{Path: filepath.Join(dir, "other.go"), Op: Write}},
		{name: "directory", event: Event{Path: target, IsDir: true, Op: Create}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &fakeNotifier{}
			var calls int
			cancel, err := WatchFile(n, target, func() error {
				calls++
				return nil
			})
			require.NoError(t, err)

			assert.Equal(t, dir, n.dir)
			assert.False(t, n.recursive)

			n.emit(tt.event)
			if tt.reload {
				assert.Equal(t, 1, calls)
			} else {
				assert.Zero(t, calls)
			}

			cancel()
			assert.True(t, n.cancelled)
		})
	}
}

func TestFSNotifier_WatchFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "script.go")
	sibling := filepath.Join(dir, "other.go")
	require.NoError(t, os.WriteFile(target, []byte("package main\n"), 0644))

	n, err := NewFSNotifier(0, nil)
	require.NoError(t, err)
	defer n.Stop()

	var calls atomic.Int32
	cancel, err := WatchFile(n, target, func() error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, n.Start())

	require.NoError(t, os.WriteFile(sibling, []byte("package main\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	assert.Never(t, func() bool { return calls.Load() > 0 }, 200*time.Millisecond, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(target, []byte("package main\n\nfunc f() {}\n"), 0644))
	require.Eventually(t, func() bool { return calls.Load() > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestFSNotifier_AtomicSave(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "script.go")
	require.NoError(t, os.WriteFile(target, []byte("package main\n"), 0644))

	n, err := NewFSNotifier(0, nil)
	require.NoError(t, err)
	defer n.Stop()

	var calls atomic.Int32
	_, err = WatchFile(n, target, func() error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, n.Start())

	tmp := filepath.Join(dir, ".script.go.swp")
	require.NoError(t, os.WriteFile(tmp, []byte("package main\n\nvar x = 1\n"), 0644))
	require.NoError(t, os.Rename(tmp, target))

	require.Eventually(t, func() bool { return calls.Load() > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestFSNotifier_Recursive(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	n, err := NewFSNotifier(0, nil)
	require.NoError(t, err)
	defer n.Stop()

	var mu sync.Mutex
	var paths []string
	_, err = n.Subscribe(root, true, func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		paths = append(paths, ev.Path)
	})
	require.NoError(t, err)
	require.NoError(t, n.Start())

	file := filepath.Join(nested, "deep.go")
	require.NoError(t, os.WriteFile(file, []byte("package deep\n"), 0644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, p := range paths {
			if p == file {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFSNotifier_Unsubscribe(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "script.go")

	n, err := NewFSNotifier(0, nil)
	require.NoError(t, err)
	defer n.Stop()

	var calls atomic.Int32
	cancel, err := WatchFile(n, target, func() error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, n.Start())

	cancel()
	cancel()

	require.NoError(t, os.WriteFile(target, []byte("package main\n"), 0644))
	assert.Never(t, func() bool { return calls.Load() > 0 }, 200*time.Millisecond, 10*time.Millisecond)
}

func TestFSNotifier_Lifecycle(t *testing.T) {
	n, err := NewFSNotifier(0, nil)
	require.NoError(t, err)

	_, err = n.Subscribe(t.TempDir(), false, nil)
	assert.Error(t, err)

	require.NoError(t, n.Start())
	assert.Error(t, n.Start())

	require.NoError(t, n.Stop())
	require.NoError(t, n.Stop())
	assert.Error(t, n.Start())
}

func TestFSNotifier_Debounce(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "script.go")

	n, err := NewFSNotifier(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer n.Stop()

	var calls atomic.Int32
	_, err = WatchFile(n, target, func() error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, n.Start())

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(target, []byte("package main\n"), 0644))
	}

	require.Eventually(t, func() bool { return calls.Load() > 0 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Less(t, calls.Load(), int32(5))
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	var mu sync.Mutex
	fired := map[string][]int{}
	record := func(key string, v int) func() {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			fired[key] = append(fired[key], v)
		}
	}

	d.Trigger("a", record("a", 1))
	d.Trigger("a", record("a", 2))
	d.Trigger("a", record("a", 3))
	d.Trigger("b", record("b", 1))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fired["a"]) > 0 && len(fired["b"]) > 0
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, d.Pending())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{3}, fired["a"])
	assert.Equal(t, []int{1}, fired["b"])
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger("a", func() { calls.Add(1) })
	d.Stop()
	d.Trigger("a", func() { calls.Add(1) })

	assert.Never(t, func() bool { return calls.Load() > 0 }, 150*time.Millisecond, 10*time.Millisecond)
	assert.Zero(t, d.Pending())
}

func TestRunTimer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- RunTimer(ctx, 10*time.Millisecond, func() error {
			calls.Add(1)
			return nil
		})
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("RunTimer did not return after cancellation")
	}
}

func TestRunTimer_InvalidInterval(t *testing.T) {
	err := RunTimer(context.Background(), 0, func() error { return nil })
	assert.Error(t, err)
}

func TestCronDriver(t *testing.T) {
	d := NewCronDriver(nil)

	_, err := d.Add("not a schedule", func() error { return nil })
	assert.Error(t, err)

	var calls atomic.Int32
	cancel, err := d.Add("@every 1s", func() error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	assert.Nil(t, d.NextRun())
	d.Start()
	d.Start()
	assert.True(t, d.IsRunning())
	assert.NotNil(t, d.NextRun())

	require.Eventually(t, func() bool { return calls.Load() > 0 }, 3*time.Second, 20*time.Millisecond)

	cancel()
	d.Stop()
	assert.False(t, d.IsRunning())
	d.Stop()
}

func TestOp_String(t *testing.T) {
	assert.Equal(t, "NONE", Op(0).String())
	assert.Equal(t, "CREATE|WRITE", (Create | Write).String())
	assert.True(t, Event{Op: Create}.Modified())
	assert.False(t, Event{Op: Remove}.Modified())
}
