package source

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Kind is the kind of a reloadable definition.
type Kind int

const (
	// KindFunction is a top-level function without receiver.
	KindFunction Kind = iota + 1

	// KindClass is a named type together with its methods and constructor.
	KindClass
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindClass:
		return "class"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	return k == KindFunction || k == KindClass
}

// ParseKind parses a kind name. It accepts "function", "func", "def",
// "class", "type" and "struct".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "function", "func", "def":
		return KindFunction, nil
	case "class", "type", "struct":
		return KindClass, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// Fragment is the text of one definition extracted from a source file,
// together with the parts of the file needed to evaluate it on its own.
type Fragment struct {
	// File is the path the fragment was read from
	File string

	// Name is the definition name
	Name string

	// Kind is the definition kind
	Kind Kind

	// Package is the package name declared by the file
	Package string

	// Imports holds one import spec per entry, e.g. `"fmt"` or `str "strings"`
	Imports []string

	// Text is the definition source, doc comments included
	Text string

	// Context is every other top-level declaration of the file, with main
	// and init renamed so they never run
	Context string

	// Methods lists the methods declared on a class, in source order
	Methods []Method

	// Constructor is the name of the New<Name> function, empty if absent
	Constructor string

	// Nested is true for a type declared inside a function body
	Nested bool

	// Generic is true for a type with type parameters
	Generic bool

	// Line is the line where the definition starts
	Line int
}

// Hash returns the hex encoded sha256 of the fragment text.
func (f *Fragment) Hash() string {
	sum := sha256.Sum256([]byte(f.Text))
	return hex.EncodeToString(sum[:])
}

// MethodNames returns the names of the class methods in source order.
func (f *Fragment) MethodNames() []string {
	names := make([]string, 0, len(f.Methods))
	for _, m := range f.Methods {
		names = append(names, m.Name)
	}
	return names
}

// Method describes a method signature as written in the source.
type Method struct {
	// Name is the method name
	Name string

	// PointerReceiver is true for methods declared on *T
	PointerReceiver bool

	// Params holds one type expression per parameter, names dropped.
	// The last entry starts with "..." for variadic methods.
	Params []string

	// Results holds one type expression per result, names dropped
	Results []string
}

// Variadic reports whether the last parameter is variadic.
func (m Method) Variadic() bool {
	return len(m.Params) > 0 && strings.HasPrefix(m.Params[len(m.Params)-1], "...")
}

// Marked is a definition carrying a reload marker directive.
type Marked struct {
	// Name is the definition name
	Name string

	// Kind is the definition kind
	Kind Kind

	// Marker is the directive that matched
	Marker string

	// Line is the line of the definition
	Line int
}
