package reload

import (
	"fmt"
	"reflect"

	"reloadr-hq/reloadr/pkg/reload/rebuild"
	"reloadr-hq/reloadr/pkg/reload/source"
)

// Func proxies a script function. F is the Go function type callers expect,
// such as func(int) int. Use any when the type is not known in advance and
// call through Call.
type Func[F any] struct {
	proxy
	typ reflect.Type
}

// NewFunc builds the current version of the function name declared in the
// namespace script. It fails when the function cannot be located, built or
// assigned to F.
func NewFunc[F any](ns *rebuild.Namespace, name string, opts ...Option) (*Func[F], error) {
	f := &Func[F]{typ: reflect.TypeFor[F]()}
	if err := f.setup(ns, name, source.KindFunction, opts, f.check); err != nil {
		return nil, err
	}
	return f, nil
}

// check rejects rebuilt functions whose type does not fit F.
func (f *Func[F]) check(def *rebuild.Definition) error {
	fn := def.Func()
	if fn.Type().AssignableTo(f.typ) {
		return nil
	}
	return &rebuild.RebuildError{
		File:    def.File,
		Name:    def.Name,
		Kind:    def.Kind,
		Stage:   rebuild.StageExtract,
		Message: fmt.Sprintf("function has type %s, proxy expects %s", fn.Type(), f.typ),
	}
}

// Load returns the current version of the function. Hold on to the result
// only for as long as the old version is acceptable.
func (f *Func[F]) Load() F {
	return f.Definition().Func().Interface().(F)
}

// Call invokes the current version with args converted to its parameter
// types. *Instance arguments are passed as their state.
func (f *Func[F]) Call(args ...any) ([]any, error) {
	def := f.Definition()
	out, err := rebuild.Invoke(def.Func(), unwrapInstances(args)...)
	if err != nil {
		return nil, &CallError{Symbol: f.name, Message: "invocation failed", Cause: err}
	}
	return rebuild.Values(out), nil
}

// Reload re-reads the function from its script and installs the new
// version. On failure the error is logged and returned and the current
// version keeps running.
func (f *Func[F]) Reload() error {
	return f.reload(f.check, nil)
}

func unwrapInstances(args []any) []any {
	out := make([]any, len(args))
	for i, arg := range args {
		if inst, ok := arg.(*Instance); ok {
			out[i] = inst.State()
			continue
		}
		out[i] = arg
	}
	return out
}
