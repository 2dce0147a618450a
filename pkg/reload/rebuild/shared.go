package rebuild

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"
)

// Package variables of the live namespace are exported to rebuilt
// definitions through this binary package.
const (
	sharedPath  = "reloadr/live"
	sharedKey   = sharedPath + "/live"
	sharedAlias = "reloadr__live"
)

// sharedSymbol is the exported name a package variable has in the shared
// package.
func sharedSymbol(name string) string {
	return "Var__" + name
}

// sharedExports lays shared variables out as a binary package.
func sharedExports(shared map[string]reflect.Value) interp.Exports {
	symbols := make(map[string]reflect.Value, len(shared))
	for name, v := range shared {
		symbols[sharedSymbol(name)] = v
	}
	return interp.Exports{sharedKey: symbols}
}

// shareVars resolves the storage of the named package variables in the live
// interpreter. Variables whose type cannot be used across interpreters are
// left out; rebuilt definitions get their own copy of those.
func shareVars(i *interp.Interpreter, names []string) map[string]reflect.Value {
	shared := make(map[string]reflect.Value, len(names))
	for _, name := range names {
		ptr, err := address(i, name)
		if err != nil || ptr.Kind() != reflect.Pointer || ptr.IsNil() {
			continue
		}
		if !portable(ptr.Type().Elem(), true) {
			continue
		}
		shared[name] = ptr.Elem()
	}
	return shared
}

// address evaluates &name in the package scope.
func address(i *interp.Interpreter, name string) (v reflect.Value, err error) {
	if !token.IsIdentifier(name) {
		return reflect.Value{}, fmt.Errorf("invalid identifier %q", name)
	}
	defer func() {
		if r := recover(); r != nil {
			v, err = reflect.Value{}, &PanicError{Value: r}
		}
	}()
	return i.Eval("&" + name)
}

// portable reports whether values of t mean the same thing in every
// interpreter: basic kinds, host named types and containers of those.
// Struct values are only shared behind a pointer, so method calls reach the
// live storage.
func portable(t reflect.Type, top bool) bool {
	if strings.Contains(t.PkgPath(), "yaegi") {
		return false
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Struct:
		return !top && t.Name() != ""
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Chan:
		return portable(t.Elem(), false)
	case reflect.Map:
		return portable(t.Key(), false) && portable(t.Elem(), false)
	default:
		return false
	}
}

// bindShared rewrites src so that every reference to a shared package
// variable goes to the live storage, and drops the declarations of those
// variables. A declaration naming several variables is only dropped when
// all of them are shared; otherwise its variables stay local. The number of
// rewritten references is returned.
func bindShared(src string, shared map[string]reflect.Value) (string, int, error) {
	if len(shared) == 0 {
		return src, 0, nil
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", src, parser.ParseComments)
	if err != nil {
		return "", 0, err
	}
	tok := fset.File(file.Pos())

	type edit struct {
		from, to int
		text     string
	}
	var edits []edit
	var dropped [][2]token.Pos

	bound := map[*ast.ValueSpec]bool{}
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.VAR {
			continue
		}
		for _, s := range gen.Specs {
			spec := s.(*ast.ValueSpec)
			if !allShared(spec, shared) {
				continue
			}
			bound[spec] = true
			from, to := spec.Pos(), spec.End()
			if gen.Lparen == token.NoPos {
				from, to = gen.Pos(), gen.End()
			}
			if gen.Doc != nil && gen.Lparen == token.NoPos {
				from = gen.Doc.Pos()
			} else if spec.Doc != nil {
				from = spec.Doc.Pos()
			}
			dropped = append(dropped, [2]token.Pos{from, to})
			edits = append(edits, edit{from: tok.Offset(from), to: tok.Offset(to)})
		}
	}
	if len(bound) == 0 {
		return src, 0, nil
	}

	// Struct literal keys resolve to package variables of the same name but
	// name fields.
	keys := map[*ast.Ident]bool{}
	ast.Inspect(file, func(n ast.Node) bool {
		lit, ok := n.(*ast.CompositeLit)
		if !ok {
			return true
		}
		switch lit.Type.(type) {
		case *ast.MapType, *ast.ArrayType:
			return true
		}
		for _, elt := range lit.Elts {
			if kv, ok := elt.(*ast.KeyValueExpr); ok {
				if id, ok := kv.Key.(*ast.Ident); ok {
					keys[id] = true
				}
			}
		}
		return true
	})

	refs := 0
	ast.Inspect(file, func(n ast.Node) bool {
		id, ok := n.(*ast.Ident)
		if !ok || id.Obj == nil || id.Obj.Kind != ast.Var || keys[id] {
			return true
		}
		spec, ok := id.Obj.Decl.(*ast.ValueSpec)
		if !ok || !bound[spec] {
			return true
		}
		for _, r := range dropped {
			if id.Pos() >= r[0] && id.End() <= r[1] {
				return true
			}
		}
		edits = append(edits, edit{
			from: tok.Offset(id.Pos()),
			to:   tok.Offset(id.End()),
			text: sharedAlias + "." + sharedSymbol(id.Name),
		})
		refs++
		return true
	})

	if refs > 0 {
		at := tok.Offset(file.Name.End())
		edits = append(edits, edit{from: at, to: at, text: fmt.Sprintf("\n\nimport %s %q", sharedAlias, sharedPath)})
	}

	sort.Slice(edits, func(a, b int) bool { return edits[a].from > edits[b].from })
	out := src
	for _, e := range edits {
		out = out[:e.from] + e.text + out[e.to:]
	}
	return out, refs, nil
}

func allShared(spec *ast.ValueSpec, shared map[string]reflect.Value) bool {
	for _, name := range spec.Names {
		if _, ok := shared[name.Name]; !ok {
			return false
		}
	}
	return true
}
