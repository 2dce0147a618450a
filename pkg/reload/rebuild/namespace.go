package rebuild

import (
	"fmt"
	"go/token"
	"io"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"github.com/traefik/yaegi/stdlib/unrestricted"

	"reloadr-hq/reloadr/pkg/reload/source"
)

type options struct {
	symbols      []interp.Exports
	goPath       string
	buildTags    []string
	unrestricted bool
	markers      []string
	stdout       io.Writer
	stderr       io.Writer
}

// Option configures a Namespace.
type Option func(*options)

// WithSymbols makes host symbols importable from the script. The map layout
// is the one produced by yaegi extract: "import/path/pkgname" to symbol name
// to value.
func WithSymbols(symbols interp.Exports) Option {
	return func(o *options) {
		o.symbols = append(o.symbols, symbols)
	}
}

// WithGoPath sets the GOPATH used to resolve script imports from source.
func WithGoPath(path string) Option {
	return func(o *options) {
		o.goPath = path
	}
}

// WithBuildTags sets the build tags seen by the interpreter.
func WithBuildTags(tags ...string) Option {
	return func(o *options) {
		o.buildTags = tags
	}
}

// WithUnrestricted gives scripts access to os/exec and friends.
func WithUnrestricted(enabled bool) Option {
	return func(o *options) {
		o.unrestricted = enabled
	}
}

// WithMarkers replaces the directives stripped before evaluation.
func WithMarkers(markers ...string) Option {
	return func(o *options) {
		o.markers = markers
	}
}

// WithOutput redirects script stdout and stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *options) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

// Namespace is a script file loaded into its own interpreter. It is the
// module that reloadable definitions are looked up in.
type Namespace struct {
	path string
	opts options

	// shared holds the storage of the package variables rebuilt
	// definitions use in place of their own copy.
	shared map[string]reflect.Value

	mu   sync.Mutex
	live *interp.Interpreter
}

// Load evaluates the script file at path once, init functions included, and
// returns the resulting namespace.
func Load(path string, opts ...Option) (*Namespace, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve script path: %w", err)
	}

	o := options{markers: source.DefaultMarkers}
	for _, opt := range opts {
		opt(&o)
	}

	mod, err := source.ReadModule(abs)
	if err != nil {
		return nil, err
	}

	ns := &Namespace{path: abs, opts: o}
	i, err := ns.fork()
	if err != nil {
		return nil, &RebuildError{File: abs, Stage: StageLoad, Message: "failed to create interpreter", Cause: err}
	}

	prog := synthesize(mod.Imports, StripMarkers(mod.Body, o.markers))
	if err := eval(i, prog); err != nil {
		return nil, &RebuildError{File: abs, Stage: StageLoad, Message: "failed to evaluate script", Cause: err}
	}

	ns.live = i
	ns.shared = shareVars(i, mod.Vars)
	return ns, nil
}

// Path returns the absolute path of the script file.
func (ns *Namespace) Path() string {
	return ns.path
}

// Markers returns the directives stripped before evaluation.
func (ns *Namespace) Markers() []string {
	return ns.opts.markers
}

// Shared returns the names of the package variables that rebuilt
// definitions read and write in place, sorted.
func (ns *Namespace) Shared() []string {
	names := make([]string, 0, len(ns.shared))
	for name := range ns.shared {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the current value of a package-level symbol of the loaded
// script.
func (ns *Namespace) Lookup(name string) (reflect.Value, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return lookup(ns.live, name)
}

// fork creates an interpreter configured like the namespace one, with nothing
// evaluated yet.
func (ns *Namespace) fork() (*interp.Interpreter, error) {
	i := interp.New(interp.Options{
		GoPath:       ns.opts.goPath,
		BuildTags:    ns.opts.buildTags,
		Unrestricted: ns.opts.unrestricted,
		Stdout:       ns.opts.stdout,
		Stderr:       ns.opts.stderr,
	})

	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("failed to load stdlib: %w", err)
	}
	if ns.opts.unrestricted {
		if err := i.Use(unrestricted.Symbols); err != nil {
			return nil, fmt.Errorf("failed to load unrestricted stdlib: %w", err)
		}
	}
	for _, symbols := range ns.opts.symbols {
		if err := i.Use(symbols); err != nil {
			return nil, fmt.Errorf("failed to load host symbols: %w", err)
		}
	}
	if len(ns.shared) > 0 {
		if err := i.Use(sharedExports(ns.shared)); err != nil {
			return nil, fmt.Errorf("failed to load package variables: %w", err)
		}
	}
	return i, nil
}

// lookup evaluates a package-level identifier of package main. Exported
// names go through the package selector, unexported names are evaluated in
// the package scope directly.
func lookup(i *interp.Interpreter, name string) (v reflect.Value, err error) {
	if !token.IsIdentifier(name) {
		return reflect.Value{}, fmt.Errorf("invalid identifier %q", name)
	}
	expr := name
	if token.IsExported(name) {
		expr = "main." + name
	}

	defer func() {
		if r := recover(); r != nil {
			v, err = reflect.Value{}, &PanicError{Value: r}
		}
	}()
	v, err = i.Eval(expr)
	if err != nil {
		return reflect.Value{}, err
	}
	if !v.IsValid() {
		return reflect.Value{}, fmt.Errorf("symbol %q has no value", name)
	}
	return v, nil
}

// eval runs src, turning interpreter panics into errors.
func eval(i *interp.Interpreter, src string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	_, err = i.Eval(src)
	return err
}

// synthesize assembles a package main file.
func synthesize(imports []string, parts ...string) string {
	var sb strings.Builder
	sb.WriteString("package main\n")
	if len(imports) > 0 {
		sb.WriteString("\nimport (\n")
		for _, imp := range imports {
			sb.WriteString("\t")
			sb.WriteString(imp)
			sb.WriteString("\n")
		}
		sb.WriteString(")\n")
	}
	for _, part := range parts {
		if part == "" {
			continue
		}
		sb.WriteString("\n")
		sb.WriteString(part)
		sb.WriteString("\n")
	}
	return sb.String()
}

// StripMarkers removes marker directive lines from text.
func StripMarkers(text string, markers []string) string {
	if len(markers) == 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if source.IsMarkerLine(line, markers) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
