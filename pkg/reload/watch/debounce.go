package watch

import (
	"sync"
	"time"
)

// Debouncer collapses bursts of triggers per key. The callback of the last
// trigger for a key runs once the key has been quiet for the interval.
type Debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	pending map[string]*pendingCall
	stopped bool
}

type pendingCall struct {
	timer    *time.Timer
	gen      uint64
	callback func()
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		pending:  make(map[string]*pendingCall),
	}
}

// Trigger schedules callback for key, replacing any callback still pending
// for that key.
func (d *Debouncer) Trigger(key string, callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	p, ok := d.pending[key]
	if !ok {
		p = &pendingCall{}
		d.pending[key] = p
	} else if p.timer != nil {
		p.timer.Stop()
	}
	p.gen++
	p.callback = callback

	gen := p.gen
	p.timer = time.AfterFunc(d.interval, func() { d.fire(key, gen) })
}

func (d *Debouncer) fire(key string, gen uint64) {
	d.mu.Lock()
	p, ok := d.pending[key]
	if d.stopped || !ok || p.gen != gen {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()

	p.callback()
}

// Pending returns the number of keys waiting to fire.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels every pending callback. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
}
