package source

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"os"
	"strings"
)

const (
	// InertMain replaces the name of func main in fragment context.
	InertMain = "reloadr__main"

	// InertInit prefixes the names of init functions in fragment context.
	InertInit = "reloadr__init"
)

// Locate reads the file at path and extracts the first definition matching
// name and kind.
func Locate(path, name string, kind Kind) (*Fragment, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{
			File:    path,
			Message: "failed to read source file",
			Cause:   err,
		}
	}
	return LocateSource(path, src, name, kind)
}

// LocateSource is Locate on source text already in memory. filename is used
// for positions and error messages only.
func LocateSource(filename string, src []byte, name string, kind Kind) (*Fragment, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKind, int(kind))
	}

	f, err := parse(filename, src)
	if err != nil {
		return nil, err
	}

	var frag *Fragment
	switch kind {
	case KindFunction:
		frag = f.function(name)
	case KindClass:
		frag = f.class(name)
	}
	if frag == nil {
		return nil, &NotFoundError{File: filename, Name: name, Kind: kind}
	}
	return frag, nil
}

// parsedFile keeps the AST and the original bytes so node text can be
// sliced back out verbatim.
type parsedFile struct {
	name string
	src  []byte
	fset *token.FileSet
	tok  *token.File
	file *ast.File
}

func parse(filename string, src []byte) (*parsedFile, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		pe := &ParseError{File: filename, Message: err.Error(), Cause: err}
		if list, ok := err.(scanner.ErrorList); ok && len(list) > 0 {
			pe.Line = list[0].Pos.Line
			pe.Column = list[0].Pos.Column
			pe.Message = list[0].Msg
		}
		return nil, pe
	}
	return &parsedFile{
		name: filename,
		src:  src,
		fset: fset,
		tok:  fset.File(file.Pos()),
		file: file,
	}, nil
}

func (p *parsedFile) text(from, to token.Pos) string {
	return string(p.src[p.tok.Offset(from):p.tok.Offset(to)])
}

func (p *parsedFile) line(pos token.Pos) int {
	return p.fset.Position(pos).Line
}

// declText returns a top-level declaration with its doc comment.
func (p *parsedFile) declText(decl ast.Decl) string {
	start := decl.Pos()
	switch d := decl.(type) {
	case *ast.FuncDecl:
		if d.Doc != nil {
			start = d.Doc.Pos()
		}
	case *ast.GenDecl:
		if d.Doc != nil {
			start = d.Doc.Pos()
		}
	}
	return p.text(start, decl.End())
}

// typeSpecText renders a single type spec as a standalone declaration.
func (p *parsedFile) typeSpecText(decl *ast.GenDecl, spec *ast.TypeSpec) string {
	if decl.Lparen == token.NoPos {
		return p.declText(decl)
	}
	var sb strings.Builder
	if spec.Doc != nil {
		sb.WriteString(p.text(spec.Doc.Pos(), spec.Doc.End()))
		sb.WriteString("\n")
	}
	sb.WriteString("type ")
	sb.WriteString(p.text(spec.Pos(), spec.End()))
	return sb.String()
}

func (p *parsedFile) imports() []string {
	imports := make([]string, 0, len(p.file.Imports))
	for _, spec := range p.file.Imports {
		if spec.Path.Value == `"C"` {
			continue
		}
		imports = append(imports, p.text(spec.Pos(), spec.End()))
	}
	return imports
}

func (p *parsedFile) newFragment(name string, kind Kind, start token.Pos) *Fragment {
	return &Fragment{
		File:    p.name,
		Name:    name,
		Kind:    kind,
		Package: p.file.Name.Name,
		Imports: p.imports(),
		Line:    p.line(start),
	}
}

func (p *parsedFile) function(name string) *Fragment {
	for _, decl := range p.file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil || fn.Name.Name != name {
			continue
		}
		frag := p.newFragment(name, KindFunction, fn.Pos())
		frag.Text = p.declText(fn)
		frag.Context = p.context(map[ast.Decl]bool{fn: true}, nil, nil, false)
		return frag
	}
	return nil
}

func (p *parsedFile) class(name string) *Fragment {
	for _, decl := range p.file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, s := range gen.Specs {
			spec := s.(*ast.TypeSpec)
			if spec.Name.Name == name {
				return p.topLevelClass(gen, spec)
			}
		}
	}
	return p.nestedClass(name)
}

func (p *parsedFile) topLevelClass(gen *ast.GenDecl, spec *ast.TypeSpec) *Fragment {
	name := spec.Name.Name
	frag := p.newFragment(name, KindClass, gen.Pos())
	frag.Generic = spec.TypeParams != nil

	parts := []string{p.typeSpecText(gen, spec)}
	skip := map[ast.Decl]bool{}
	if gen.Lparen == token.NoPos || len(gen.Specs) == 1 {
		skip[gen] = true
	}

	for _, decl := range p.file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		switch {
		case fn.Recv != nil && receiverBase(fn.Recv) == name:
			frag.Methods = append(frag.Methods, p.method(fn))
		case fn.Recv == nil && fn.Name.Name == "New"+name:
			frag.Constructor = fn.Name.Name
		default:
			continue
		}
		parts = append(parts, p.declText(fn))
		skip[fn] = true
	}

	frag.Text = strings.Join(parts, "\n\n")
	if skip[gen] {
		frag.Context = p.context(skip, nil, nil, false)
	} else {
		frag.Context = p.context(skip, gen, spec, false)
	}
	return frag
}

func (p *parsedFile) nestedClass(name string) *Fragment {
	var frag *Fragment
	ast.Inspect(p.file, func(n ast.Node) bool {
		if frag != nil {
			return false
		}
		stmt, ok := n.(*ast.DeclStmt)
		if !ok {
			return true
		}
		gen, ok := stmt.Decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			return true
		}
		for _, s := range gen.Specs {
			spec := s.(*ast.TypeSpec)
			if spec.Name.Name != name {
				continue
			}
			frag = p.newFragment(name, KindClass, spec.Pos())
			frag.Nested = true
			frag.Text = p.typeSpecText(gen, spec)
			frag.Context = p.context(nil, nil, nil, false)
			return false
		}
		return true
	})
	return frag
}

// context renders every top-level declaration except imports and the ones in
// skip. main is renamed to InertMain and init functions are renamed to
// InertInit plus a sequence number, so both stay compiled but never run.
// keepInit leaves init functions untouched. When group is set, spec is
// removed from that grouped type declaration and the remaining specs are
// kept.
func (p *parsedFile) context(skip map[ast.Decl]bool, group *ast.GenDecl, spec *ast.TypeSpec, keepInit bool) string {
	var parts []string
	inits := 0
	for _, decl := range p.file.Decls {
		if skip[decl] {
			continue
		}
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok == token.IMPORT {
				continue
			}
			if d == group {
				for _, s := range d.Specs {
					if s == spec {
						continue
					}
					parts = append(parts, p.typeSpecText(d, s.(*ast.TypeSpec)))
				}
				continue
			}
		case *ast.FuncDecl:
			if d.Recv == nil && d.Name.Name == "main" {
				parts = append(parts, p.renamed(d, InertMain))
				continue
			}
			if d.Recv == nil && d.Name.Name == "init" && !keepInit {
				parts = append(parts, p.renamed(d, fmt.Sprintf("%s%d", InertInit, inits)))
				inits++
				continue
			}
		}
		parts = append(parts, p.declText(decl))
	}
	return strings.Join(parts, "\n\n")
}

// renamed returns the text of fn with its name replaced.
func (p *parsedFile) renamed(fn *ast.FuncDecl, name string) string {
	start := fn.Pos()
	if fn.Doc != nil {
		start = fn.Doc.Pos()
	}
	return p.text(start, fn.Name.Pos()) + name + p.text(fn.Name.End(), fn.End())
}

func (p *parsedFile) method(fn *ast.FuncDecl) Method {
	m := Method{Name: fn.Name.Name}
	if len(fn.Recv.List) > 0 {
		_, m.PointerReceiver = fn.Recv.List[0].Type.(*ast.StarExpr)
	}
	m.Params = p.fieldTypes(fn.Type.Params)
	m.Results = p.fieldTypes(fn.Type.Results)
	return m
}

// fieldTypes expands a field list into one type expression per entry.
func (p *parsedFile) fieldTypes(list *ast.FieldList) []string {
	if list == nil {
		return nil
	}
	var types []string
	for _, field := range list.List {
		typ := p.text(field.Type.Pos(), field.Type.End())
		n := len(field.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			types = append(types, typ)
		}
	}
	return types
}

// receiverBase returns the base type name of a method receiver.
func receiverBase(recv *ast.FieldList) string {
	if recv == nil || len(recv.List) == 0 {
		return ""
	}
	expr := recv.List[0].Type
	for {
		switch t := expr.(type) {
		case *ast.StarExpr:
			expr = t.X
		case *ast.ParenExpr:
			expr = t.X
		case *ast.IndexExpr:
			expr = t.X
		case *ast.IndexListExpr:
			expr = t.X
		case *ast.Ident:
			return t.Name
		default:
			return ""
		}
	}
}
