package reload

import (
	"fmt"
	"reflect"
	"sync"

	"reloadr-hq/reloadr/pkg/reload/rebuild"
)

// Instance is an object created through a Class. It pairs its state, a
// pointer to the script struct, with the class definition whose methods
// apply to it. A reload of the class swaps the definition and keeps the
// state.
type Instance struct {
	mu    sync.RWMutex
	def   *rebuild.Definition
	state reflect.Value
}

// Definition returns the class definition currently attached to the
// instance.
func (i *Instance) Definition() *rebuild.Definition {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.def
}

// State returns the pointer to the instance struct.
func (i *Instance) State() reflect.Value {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

// Call invokes a method. The instance read lock is held for the whole call,
// so a reload retagging the instance waits for in-flight calls and a layout
// migration never copies state a method is writing. A method must not reload
// its own class.
func (i *Instance) Call(method string, args ...any) ([]any, error) {
	args = unwrapInstances(args)

	i.mu.RLock()
	defer i.mu.RUnlock()
	def, state := i.def, i.state

	fn, ok := def.Method(method)
	if !ok {
		return nil, &CallError{Symbol: def.Name, Member: method, Message: "no such method", Cause: ErrUnknownMember}
	}

	in := make([]any, 0, len(args)+1)
	in = append(in, state)
	in = append(in, args...)

	out, err := rebuild.Invoke(fn, in...)
	if err != nil {
		return nil, &CallError{Symbol: def.Name, Member: method, Message: "invocation failed", Cause: err}
	}
	return rebuild.Values(out), nil
}

// Field returns the value of a struct field. Unexported script fields are
// found under their source name.
func (i *Instance) Field(name string) (any, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	def, state := i.def, i.state

	f, err := field(state, name)
	if err != nil {
		return nil, &CallError{Symbol: def.Name, Member: name, Message: "no such field", Cause: err}
	}
	return f.Interface(), nil
}

// SetField assigns a struct field. v is converted like a call argument.
func (i *Instance) SetField(name string, v any) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	def, state := i.def, i.state

	f, err := field(state, name)
	if err != nil {
		return &CallError{Symbol: def.Name, Member: name, Message: "no such field", Cause: err}
	}
	if !f.CanSet() {
		return &CallError{Symbol: def.Name, Member: name, Message: "field cannot be set"}
	}

	in, err := rebuild.Arguments(reflect.FuncOf([]reflect.Type{f.Type()}, nil, false), []any{v})
	if err != nil {
		return &CallError{Symbol: def.Name, Member: name, Message: "invalid value", Cause: err}
	}
	f.Set(in[0])
	return nil
}

// retag attaches def to the instance. When the struct layout of def differs
// from the current state, a new state is allocated and fields are copied by
// name; the return value reports that case. retag waits for calls in flight
// on the instance.
func (i *Instance) retag(def *rebuild.Definition) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.def = def
	if i.state.Type() == def.Type() {
		return false
	}

	next := reflect.New(def.Type().Elem())
	migrate(next.Elem(), i.state.Elem())
	i.state = next
	return true
}

// field finds a struct field by name. The interpreter exports unexported
// script fields with an "X" prefix, so that spelling is tried second.
func field(state reflect.Value, name string) (reflect.Value, error) {
	elem := state.Elem()
	if elem.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%s is not a struct", elem.Type())
	}
	if f := elem.FieldByName(name); f.IsValid() {
		return f, nil
	}
	if f := elem.FieldByName("X" + name); f.IsValid() {
		return f, nil
	}
	return reflect.Value{}, ErrUnknownMember
}

// migrate copies src into dst field by field. Fields missing from src keep
// their zero value and fields whose type changed incompatibly are dropped.
func migrate(dst, src reflect.Value) {
	if dst.Kind() != reflect.Struct || src.Kind() != reflect.Struct {
		assign(dst, src)
		return
	}
	for idx := 0; idx < dst.NumField(); idx++ {
		df := dst.Field(idx)
		if !df.CanSet() {
			continue
		}
		sf := src.FieldByName(dst.Type().Field(idx).Name)
		if !sf.IsValid() || !sf.CanInterface() {
			continue
		}
		assign(df, sf)
	}
}

func assign(dst, src reflect.Value) {
	if !dst.CanSet() {
		return
	}
	st, dt := src.Type(), dst.Type()
	switch {
	case st.AssignableTo(dt):
		dst.Set(src)
	case st.Kind() == reflect.Struct && dt.Kind() == reflect.Struct:
		migrate(dst, src)
	case st.Kind() == dt.Kind() && st.ConvertibleTo(dt):
		dst.Set(src.Convert(dt))
	}
}
