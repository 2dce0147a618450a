package reload

import (
	"reloadr-hq/reloadr/pkg/reload/rebuild"
	"reloadr-hq/reloadr/pkg/reload/source"
)

// Class proxies a script struct type together with its methods and its
// New<Type> constructor. Instances built through the class follow every
// successful reload.
type Class struct {
	proxy
	instances *InstanceRegistry
}

// NewClass builds the current version of the type name declared in the
// namespace script.
func NewClass(ns *rebuild.Namespace, name string, opts ...Option) (*Class, error) {
	c := &Class{instances: NewInstanceRegistry()}
	if err := c.setup(ns, name, source.KindClass, opts, nil); err != nil {
		return nil, err
	}
	return c, nil
}

// New creates an instance with the current definition. args go to the
// script constructor; without one the instance is zero valued and takes no
// arguments.
func (c *Class) New(args ...any) (*Instance, error) {
	// The read lock keeps a reload from landing between construction and
	// registration, which would leave the instance on a stale definition.
	c.mu.RLock()
	defer c.mu.RUnlock()

	def := c.current
	state, err := def.New(unwrapInstances(args)...)
	if err != nil {
		member := def.Constructor()
		if member == "" {
			member = "new"
		}
		return nil, &CallError{Symbol: c.name, Member: member, Message: "construction failed", Cause: err}
	}

	inst := &Instance{def: def, state: state}
	c.instances.Add(inst)
	return inst, nil
}

// Attr returns a member of the current definition. A method name yields its
// dispatcher, a function taking the receiver state first. Any other name is
// looked up among the package-level symbols the definition was built with.
func (c *Class) Attr(name string) (any, error) {
	def := c.Definition()
	if fn, ok := def.Method(name); ok {
		return fn.Interface(), nil
	}
	v, err := def.Lookup(name)
	if err != nil {
		return nil, &CallError{Symbol: c.name, Member: name, Message: err.Error(), Cause: ErrUnknownMember}
	}
	return v.Interface(), nil
}

// IsInstance reports whether inst is attached to the current definition.
// Instances from before a failed reload still are; instances of another
// class never are.
func (c *Class) IsInstance(inst *Instance) bool {
	if inst == nil {
		return false
	}
	return inst.Definition() == c.Definition()
}

// Instances returns the number of live instances.
func (c *Class) Instances() int {
	return c.instances.Len()
}

// Reload re-reads the class from its script, installs the new definition
// and retags every live instance. On failure the error is logged and
// returned and nothing changes.
func (c *Class) Reload() error {
	return c.reload(nil, func(def *rebuild.Definition) (int, int) {
		var retagged, migrated int
		for _, inst := range c.instances.Live() {
			if inst.retag(def) {
				migrated++
			}
			retagged++
		}
		return retagged, migrated
	})
}
