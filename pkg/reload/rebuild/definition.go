package rebuild

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/traefik/yaegi/interp"

	"reloadr-hq/reloadr/pkg/reload/source"
)

// Definition is one evaluated version of a function or class. It is never
// modified after Rebuild returns it.
type Definition struct {
	// Name is the definition name
	Name string

	// Kind is the definition kind
	Kind source.Kind

	// File is the script the definition was read from
	File string

	// Hash is the hash of the fragment text the definition was built from
	Hash string

	// BuiltAt is when the definition was evaluated
	BuiltAt time.Time

	fn reflect.Value

	typ         reflect.Type
	alloc       reflect.Value
	ctor        reflect.Value
	ctorName    string
	methods     map[string]reflect.Value
	methodOrder []string

	// shared are the live package variables the definition was bound to.
	shared map[string]reflect.Value

	mu     sync.Mutex
	interp *interp.Interpreter
}

// Func returns the function value of a function definition.
func (d *Definition) Func() reflect.Value {
	return d.fn
}

// Type returns the pointer type of a class, nil for a function.
func (d *Definition) Type() reflect.Type {
	return d.typ
}

// Constructor returns the name of the script constructor, empty when
// instances are zero allocated.
func (d *Definition) Constructor() string {
	return d.ctorName
}

// Methods returns the class method names in source order.
func (d *Definition) Methods() []string {
	return append([]string(nil), d.methodOrder...)
}

// Method returns the dispatcher of a class method. It takes the receiver as
// first argument.
func (d *Definition) Method(name string) (reflect.Value, bool) {
	fn, ok := d.methods[name]
	return fn, ok
}

// Lookup returns a package-level symbol as seen by this definition. Shared
// package variables resolve to the live storage.
func (d *Definition) Lookup(name string) (reflect.Value, error) {
	if v, ok := d.shared[name]; ok {
		return v, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return lookup(d.interp, name)
}

// New builds the state of a new instance, a pointer to the class struct.
// args go to the script constructor. Without constructor the state is zero
// valued and no argument is accepted.
func (d *Definition) New(args ...any) (reflect.Value, error) {
	if d.Kind != source.KindClass {
		return reflect.Value{}, fmt.Errorf("%s %q cannot be instantiated", d.Kind, d.Name)
	}

	if !d.ctor.IsValid() {
		if len(args) > 0 {
			return reflect.Value{}, fmt.Errorf("%s has no constructor, got %d arguments", d.Name, len(args))
		}
		out, err := Invoke(d.alloc)
		if err != nil {
			return reflect.Value{}, err
		}
		return out[0], nil
	}

	out, err := Invoke(d.ctor, args...)
	if err != nil {
		return reflect.Value{}, err
	}
	if n := len(out); n > 1 {
		if err, ok := out[n-1].Interface().(error); ok && err != nil {
			return reflect.Value{}, err
		}
	}
	return d.state(out[0])
}

// state turns a constructor result into a pointer to the class struct.
func (d *Definition) state(v reflect.Value) (reflect.Value, error) {
	if v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if !v.IsValid() {
		return reflect.Value{}, fmt.Errorf("%s returned nil", d.ctorName)
	}
	switch v.Type() {
	case d.typ:
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("%s returned nil", d.ctorName)
		}
		return v, nil
	case d.typ.Elem():
		p := reflect.New(d.typ.Elem())
		p.Elem().Set(v)
		return p, nil
	}
	return reflect.Value{}, fmt.Errorf("%s returned %s, want %s", d.ctorName, v.Type(), d.typ)
}
