package watch

import (
	"path/filepath"
	"strings"
)

// Op describes a set of file operations.
type Op uint32

const (
	// Create is a new file or directory, including one renamed into place
	Create Op = 1 << iota

	// Write is a change to file contents
	Write

	// Remove is a deleted file or directory
	Remove

	// Rename is a file moved away
	Rename

	// Chmod is a change of attributes
	Chmod
)

// Has reports whether o contains every bit of op.
func (o Op) Has(op Op) bool {
	return o&op == op
}

// String returns the operations joined with "|".
func (o Op) String() string {
	var parts []string
	for _, op := range []struct {
		op   Op
		name string
	}{
		{Create, "CREATE"},
		{Write, "WRITE"},
		{Remove, "REMOVE"},
		{Rename, "RENAME"},
		{Chmod, "CHMOD"},
	} {
		if o.Has(op.op) {
			parts = append(parts, op.name)
		}
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// Event is a change notification for one path.
type Event struct {
	// Path is the path of the file or directory that changed
	Path string

	// IsDir is true when Path is a directory
	IsDir bool

	// Op is the set of operations observed
	Op Op
}

// Modified reports whether the event may have changed the file contents.
// Editors that save atomically replace the file, so Create counts as well
// as Write.
func (e Event) Modified() bool {
	return e.Op&(Write|Create) != 0
}

// Handler receives events for a subscription.
type Handler func(Event)

// Notifier delivers file system events to subscribers.
type Notifier interface {
	// Subscribe registers h for events on files directly inside dir, or
	// anywhere below dir when recursive is set. The returned function
	// cancels the subscription.
	Subscribe(dir string, recursive bool, h Handler) (func(), error)

	// Start begins event delivery.
	Start() error

	// Stop ends event delivery and releases resources.
	Stop() error
}

// WatchFile subscribes to the directory holding path and calls reload each
// time path itself is written or created. Events for other files and for
// directories are ignored. reload runs synchronously in the notifier
// callback.
func WatchFile(n Notifier, path string, reload func() error) (func(), error) {
	target, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	target = filepath.Clean(target)

	return n.Subscribe(filepath.Dir(target), false, func(ev Event) {
		if ev.IsDir || !ev.Modified() {
			return
		}
		p, err := filepath.Abs(ev.Path)
		if err != nil || filepath.Clean(p) != target {
			return
		}
		// Failures are logged by the proxy.
		_ = reload()
	})
}
