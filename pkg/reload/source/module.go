package source

import (
	"go/ast"
	"go/token"
	"os"
)

// Module is a whole source file prepared for a fresh evaluation.
type Module struct {
	// File is the path the module was read from
	File string

	// Package is the package name declared by the file
	Package string

	// Imports holds one import spec per entry
	Imports []string

	// Body is every top-level declaration except imports, with main renamed
	Body string

	// Vars lists the package variables whose declared type and initializer
	// do not refer to types declared in the file. Their storage can be
	// shared with other interpreters.
	Vars []string
}

// ReadModule reads and parses the file at path.
func ReadModule(path string) (*Module, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{
			File:    path,
			Message: "failed to read source file",
			Cause:   err,
		}
	}
	return ReadModuleSource(path, src)
}

// ReadModuleSource is ReadModule on source text already in memory.
func ReadModuleSource(filename string, src []byte) (*Module, error) {
	f, err := parse(filename, src)
	if err != nil {
		return nil, err
	}
	return &Module{
		File:    filename,
		Package: f.file.Name.Name,
		Imports: f.imports(),
		Body:    f.context(nil, nil, nil, true),
		Vars:    f.portableVars(),
	}, nil
}

// portableVars returns the top-level variables that can be bound by
// reference from outside the file.
func (p *parsedFile) portableVars() []string {
	types := map[string]bool{}
	for _, decl := range p.file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, s := range gen.Specs {
			types[s.(*ast.TypeSpec).Name.Name] = true
		}
	}

	var vars []string
	for _, decl := range p.file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.VAR {
			continue
		}
		for _, s := range gen.Specs {
			spec := s.(*ast.ValueSpec)
			if refersTo(spec, types) {
				continue
			}
			for _, name := range spec.Names {
				if name.Name != "_" {
					vars = append(vars, name.Name)
				}
			}
		}
	}
	return vars
}

// refersTo reports whether the type or the values of spec mention one of
// names.
func refersTo(spec *ast.ValueSpec, names map[string]bool) bool {
	found := false
	check := func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok && names[id.Name] {
			found = true
		}
		return !found
	}
	if spec.Type != nil {
		ast.Inspect(spec.Type, check)
	}
	for _, v := range spec.Values {
		ast.Inspect(v, check)
	}
	return found
}
