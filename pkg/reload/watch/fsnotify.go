package watch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FSNotifier is a Notifier backed by fsnotify.
type FSNotifier struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce *Debouncer

	mu      sync.RWMutex
	subs    map[uint64]*subscription
	nextID  uint64
	watched map[string]int

	// State
	stateMu sync.Mutex
	running bool
	closed  bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

type subscription struct {
	dir       string
	recursive bool
	dirs      []string
	handler   Handler
}

// NewFSNotifier creates a notifier. With a positive debounce, bursts of
// events for the same path are collapsed into the last one, delivered after
// debounce of quiet. Zero delivers every event as it arrives.
func NewFSNotifier(debounce time.Duration, logger *slog.Logger) (*FSNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	n := &FSNotifier{
		watcher: watcher,
		logger:  logger.With("component", "watch.fsnotify"),
		subs:    make(map[uint64]*subscription),
		watched: make(map[string]int),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	if debounce > 0 {
		n.debounce = NewDebouncer(debounce)
	}
	return n, nil
}

// Subscribe implements Notifier.
func (n *FSNotifier) Subscribe(dir string, recursive bool, h Handler) (func(), error) {
	if h == nil {
		return nil, errors.New("handler cannot be nil")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", dir, err)
	}
	abs = filepath.Clean(abs)

	dirs := []string{abs}
	if recursive {
		dirs, err = subdirectories(abs)
		if err != nil {
			return nil, err
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	added := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if err := n.addWatch(d); err != nil {
			for _, a := range added {
				n.removeWatch(a)
			}
			return nil, fmt.Errorf("failed to watch directory %q: %w", d, err)
		}
		added = append(added, d)
	}

	n.nextID++
	id := n.nextID
	n.subs[id] = &subscription{dir: abs, recursive: recursive, dirs: dirs, handler: h}

	n.logger.Debug("Subscribed",
		"dir", abs,
		"recursive", recursive,
		"directories", len(dirs),
	)

	var once sync.Once
	return func() {
		once.Do(func() { n.unsubscribe(id) })
	}, nil
}

func (n *FSNotifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	sub, ok := n.subs[id]
	if !ok {
		return
	}
	delete(n.subs, id)
	for _, d := range sub.dirs {
		n.removeWatch(d)
	}
}

// addWatch must be called with mu held.
func (n *FSNotifier) addWatch(dir string) error {
	if n.watched[dir] == 0 {
		if err := n.watcher.Add(dir); err != nil {
			return err
		}
	}
	n.watched[dir]++
	return nil
}

// removeWatch must be called with mu held.
func (n *FSNotifier) removeWatch(dir string) {
	n.watched[dir]--
	if n.watched[dir] > 0 {
		return
	}
	delete(n.watched, dir)
	// The directory may be gone already, which removes the watch too.
	_ = n.watcher.Remove(dir)
}

// Start implements Notifier.
func (n *FSNotifier) Start() error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	if n.closed {
		return errors.New("notifier stopped")
	}
	if n.running {
		return errors.New("notifier already running")
	}
	n.running = true

	go n.loop()

	n.logger.Info("File notifier started")
	return nil
}

// Stop implements Notifier. It is safe to call more than once.
func (n *FSNotifier) Stop() error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true

	close(n.stopCh)
	if n.running {
		<-n.doneCh
		n.running = false
	}

	if n.debounce != nil {
		n.debounce.Stop()
	}

	if err := n.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	n.logger.Info("File notifier stopped")
	return nil
}

func (n *FSNotifier) loop() {
	defer close(n.doneCh)

	for {
		select {
		case <-n.stopCh:
			return

		case event, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			n.handle(event)

		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			// Continue watching despite errors
			n.logger.Error("File watcher error", "error", err)
		}
	}
}

func (n *FSNotifier) handle(event fsnotify.Event) {
	// Attribute changes never alter contents.
	if event.Op == fsnotify.Chmod {
		return
	}

	ev := Event{
		Path: filepath.Clean(event.Name),
		Op:   convertOp(event.Op),
	}
	if info, err := os.Stat(ev.Path); err == nil {
		ev.IsDir = info.IsDir()
	}

	n.logger.Debug("File event detected",
		"path", ev.Path,
		"op", ev.Op.String(),
	)

	if ev.IsDir && ev.Op.Has(Create) {
		n.followNewDirectory(ev.Path)
	}

	if n.debounce == nil {
		n.dispatch(ev)
		return
	}
	n.debounce.Trigger(ev.Path, func() { n.dispatch(ev) })
}

// followNewDirectory extends recursive subscriptions to a directory created
// below them.
func (n *FSNotifier) followNewDirectory(dir string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, sub := range n.subs {
		if !sub.recursive || !within(sub.dir, dir) {
			continue
		}
		if err := n.addWatch(dir); err != nil {
			n.logger.Warn("Failed to watch new directory", "path", dir, "error", err)
			continue
		}
		sub.dirs = append(sub.dirs, dir)
	}
}

func (n *FSNotifier) dispatch(ev Event) {
	n.mu.RLock()
	handlers := make([]Handler, 0, len(n.subs))
	for _, sub := range n.subs {
		if sub.matches(ev.Path) {
			handlers = append(handlers, sub.handler)
		}
	}
	n.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

func (s *subscription) matches(path string) bool {
	if s.recursive {
		return within(s.dir, path)
	}
	return filepath.Dir(path) == s.dir
}

// within reports whether path is strictly below dir.
func within(dir, path string) bool {
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}

// subdirectories lists root and every directory below it, hidden ones
// excluded.
func subdirectories(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %q: %w", root, err)
	}
	return dirs, nil
}

func convertOp(op fsnotify.Op) Op {
	var o Op
	if op.Has(fsnotify.Create) {
		o |= Create
	}
	if op.Has(fsnotify.Write) {
		o |= Write
	}
	if op.Has(fsnotify.Remove) {
		o |= Remove
	}
	if op.Has(fsnotify.Rename) {
		o |= Rename
	}
	if op.Has(fsnotify.Chmod) {
		o |= Chmod
	}
	return o
}
