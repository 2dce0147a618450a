package health

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// ReloadTracker remembers the outcome of the latest reload of every
// definition. Its Check fails while any definition is running a stale
// version because its last reload failed.
type ReloadTracker struct {
	mu    sync.RWMutex
	state map[string]reloadState
}

type reloadState struct {
	ok  bool
	msg string
	at  time.Time
}

// NewReloadTracker creates an empty tracker.
func NewReloadTracker() *ReloadTracker {
	return &ReloadTracker{state: make(map[string]reloadState)}
}

// Record stores the outcome of a reload of symbol. err is nil on success.
func (t *ReloadTracker) Record(symbol string, err error, at time.Time) {
	st := reloadState{ok: err == nil, at: at}
	if err != nil {
		st.msg = err.Error()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.state[symbol] = st
}

// Failing returns the sorted names of definitions whose last reload failed.
func (t *ReloadTracker) Failing() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var names []string
	for name, st := range t.state {
		if !st.ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Check is a CheckFunc reporting failing definitions.
func (t *ReloadTracker) Check(ctx context.Context) error {
	failing := t.Failing()
	if len(failing) == 0 {
		return nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	parts := make([]string, 0, len(failing))
	for _, name := range failing {
		st := t.state[name]
		parts = append(parts, fmt.Sprintf("%s (%s at %s)", name, st.msg, st.at.Format(time.RFC3339)))
	}
	return fmt.Errorf("stale definitions after failed reload: %s", strings.Join(parts, "; "))
}
