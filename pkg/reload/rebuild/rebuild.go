package rebuild

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"reloadr-hq/reloadr/pkg/reload/source"
)

// Names of the generated helpers. They are exported so they can be read back
// through the package selector whatever the case of the definition name.
const (
	targetSymbol = "Reloadr__Target"
	allocSymbol  = "Reloadr__Alloc"
	ctorSymbol   = "Reloadr__Ctor"
	methodPrefix = "Reloadr__Method__"
)

// Rebuild evaluates frag in a fresh interpreter forked from ns and returns
// the resulting definition. Lines matching markers are removed from the
// fragment first; a nil markers slice means the namespace markers.
func Rebuild(frag *source.Fragment, ns *Namespace, markers []string) (*Definition, error) {
	if frag == nil {
		return nil, &RebuildError{File: ns.Path(), Stage: StagePrepare, Message: "nil fragment"}
	}
	if markers == nil {
		markers = ns.Markers()
	}

	fail := func(stage, msg string, cause error) error {
		return &RebuildError{
			File:    frag.File,
			Name:    frag.Name,
			Kind:    frag.Kind,
			Stage:   stage,
			Message: msg,
			Cause:   cause,
		}
	}

	if !frag.Kind.Valid() {
		return nil, fail(StagePrepare, "unsupported kind", source.ErrInvalidKind)
	}
	if frag.Kind == source.KindClass && frag.Generic {
		return nil, fail(StagePrepare, "generic types cannot be proxied", nil)
	}

	i, err := ns.fork()
	if err != nil {
		return nil, fail(StagePrepare, "failed to create interpreter", err)
	}

	text := StripMarkers(frag.Text, markers)
	prog, _, err := bindShared(synthesize(frag.Imports, frag.Context, text, helpers(frag)), ns.shared)
	if err != nil {
		return nil, fail(StagePrepare, "failed to bind package variables", err)
	}
	if err := eval(i, prog); err != nil {
		return nil, fail(StageEvaluate, "evaluation failed", err)
	}

	def := &Definition{
		Name:    frag.Name,
		Kind:    frag.Kind,
		File:    frag.File,
		Hash:    frag.Hash(),
		BuiltAt: time.Now(),
		shared:  ns.shared,
		interp:  i,
	}

	switch frag.Kind {
	case source.KindFunction:
		fn, err := lookup(i, targetSymbol)
		if err != nil {
			return nil, fail(StageExtract, "function not found after evaluation", err)
		}
		if fn.Kind() != reflect.Func {
			return nil, fail(StageExtract, fmt.Sprintf("%s is a %s, not a function", frag.Name, fn.Kind()), nil)
		}
		def.fn = fn

	case source.KindClass:
		if err := extractClass(def, frag); err != nil {
			return nil, fail(StageExtract, "class incomplete after evaluation", err)
		}
	}

	return def, nil
}

func extractClass(def *Definition, frag *source.Fragment) error {
	alloc, err := lookup(def.interp, allocSymbol)
	if err != nil {
		return fmt.Errorf("allocator: %w", err)
	}
	if alloc.Kind() != reflect.Func || alloc.Type().NumOut() != 1 {
		return fmt.Errorf("allocator has type %s", alloc.Type())
	}
	def.alloc = alloc
	def.typ = alloc.Type().Out(0)

	if frag.Constructor != "" {
		ctor, err := lookup(def.interp, ctorSymbol)
		if err != nil {
			return fmt.Errorf("constructor %s: %w", frag.Constructor, err)
		}
		if ctor.Kind() != reflect.Func || ctor.Type().NumOut() == 0 {
			return fmt.Errorf("constructor %s has type %s", frag.Constructor, ctor.Type())
		}
		def.ctor = ctor
		def.ctorName = frag.Constructor
	}

	def.methods = make(map[string]reflect.Value, len(frag.Methods))
	for _, m := range frag.Methods {
		if m.Name == "_" {
			continue
		}
		fn, err := lookup(def.interp, methodPrefix+m.Name)
		if err != nil {
			return fmt.Errorf("method %s: %w", m.Name, err)
		}
		def.methods[m.Name] = fn
		def.methodOrder = append(def.methodOrder, m.Name)
	}
	return nil
}

// helpers generates the declarations used to read the definition back out
// of the interpreter.
func helpers(frag *source.Fragment) string {
	if frag.Kind == source.KindFunction {
		return fmt.Sprintf("var %s = %s", targetSymbol, frag.Name)
	}

	parts := []string{
		fmt.Sprintf("func %s() *%s { return new(%s) }", allocSymbol, frag.Name, frag.Name),
	}
	if frag.Constructor != "" {
		parts = append(parts, fmt.Sprintf("var %s = %s", ctorSymbol, frag.Constructor))
	}
	for _, m := range frag.Methods {
		if m.Name == "_" {
			continue
		}
		parts = append(parts, thunk(frag.Name, m))
	}
	return strings.Join(parts, "\n\n")
}

// thunk renders a function calling method m on a *typeName receiver passed
// as first argument.
func thunk(typeName string, m source.Method) string {
	params := make([]string, 0, len(m.Params)+1)
	params = append(params, "recv__ *"+typeName)
	args := make([]string, 0, len(m.Params))
	for idx, p := range m.Params {
		arg := fmt.Sprintf("arg__%d", idx)
		params = append(params, arg+" "+p)
		if strings.HasPrefix(p, "...") {
			arg += "..."
		}
		args = append(args, arg)
	}

	var results string
	switch len(m.Results) {
	case 0:
	case 1:
		results = " " + m.Results[0]
	default:
		results = " (" + strings.Join(m.Results, ", ") + ")"
	}

	call := fmt.Sprintf("recv__.%s(%s)", m.Name, strings.Join(args, ", "))
	if len(m.Results) > 0 {
		call = "return " + call
	}
	return fmt.Sprintf("func %s%s(%s)%s {\n\t%s\n}", methodPrefix, m.Name, strings.Join(params, ", "), results, call)
}
