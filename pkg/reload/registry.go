package reload

import (
	"sync"
	"weak"
)

// InstanceRegistry tracks the instances created through a class without
// keeping them alive. Entries whose instance was collected are skipped and
// pruned.
type InstanceRegistry struct {
	mu   sync.Mutex
	refs []weak.Pointer[Instance]
}

// NewInstanceRegistry creates a new empty registry.
func NewInstanceRegistry() *InstanceRegistry {
	return &InstanceRegistry{}
}

// Add registers an instance.
func (r *InstanceRegistry) Add(inst *Instance) {
	if inst == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs = append(r.refs, weak.Make(inst))
}

// Live returns the instances still alive, in registration order, and drops
// the dead entries.
func (r *InstanceRegistry) Live() []*Instance {
	r.mu.Lock()
	defer r.mu.Unlock()

	live := make([]*Instance, 0, len(r.refs))
	kept := r.refs[:0]
	for _, ref := range r.refs {
		inst := ref.Value()
		if inst == nil {
			continue
		}
		live = append(live, inst)
		kept = append(kept, ref)
	}
	clear(r.refs[len(kept):])
	r.refs = kept
	return live
}

// Len returns the number of live instances.
func (r *InstanceRegistry) Len() int {
	return len(r.Live())
}
