package source

import (
	"go/ast"
	"go/token"
	"os"
	"strings"
)

// DefaultMarkers are the directives that opt a definition into reloading.
var DefaultMarkers = []string{"//reloadr:reload", "//reloadr:autoreload"}

// FindMarked lists the top-level functions and types of the file at path whose
// doc comment carries one of markers.
func FindMarked(path string, markers []string) ([]Marked, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{
			File:    path,
			Message: "failed to read source file",
			Cause:   err,
		}
	}

	f, err := parse(path, src)
	if err != nil {
		return nil, err
	}

	var found []Marked
	for _, decl := range f.file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv != nil {
				continue
			}
			if marker := matchMarker(d.Doc, markers); marker != "" {
				found = append(found, Marked{
					Name:   d.Name.Name,
					Kind:   KindFunction,
					Marker: marker,
					Line:   f.line(d.Pos()),
				})
			}
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, s := range d.Specs {
				spec := s.(*ast.TypeSpec)
				doc := spec.Doc
				if doc == nil && d.Lparen == token.NoPos {
					doc = d.Doc
				}
				if marker := matchMarker(doc, markers); marker != "" {
					found = append(found, Marked{
						Name:   spec.Name.Name,
						Kind:   KindClass,
						Marker: marker,
						Line:   f.line(spec.Pos()),
					})
				}
			}
		}
	}
	return found, nil
}

// IsMarkerLine reports whether line is one of markers, ignoring surrounding
// whitespace. A marker may be followed by arguments.
func IsMarkerLine(line string, markers []string) bool {
	trimmed := strings.TrimSpace(line)
	for _, m := range markers {
		if trimmed == m || strings.HasPrefix(trimmed, m+" ") {
			return true
		}
	}
	return false
}

func matchMarker(doc *ast.CommentGroup, markers []string) string {
	if doc == nil {
		return ""
	}
	for _, c := range doc.List {
		for _, m := range markers {
			if IsMarkerLine(c.Text, []string{m}) {
				return m
			}
		}
	}
	return ""
}
