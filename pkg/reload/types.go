package reload

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"reloadr-hq/reloadr/pkg/reload/source"
)

// Reloadable is a proxy that can be told to pick up the current source of
// its definition. Both *Class and *Func implement it.
type Reloadable interface {
	// Name returns the proxied definition name.
	Name() string

	// Kind returns the proxied definition kind.
	Kind() source.Kind

	// File returns the absolute path of the script the definition lives in.
	File() string

	// Reload re-reads and rebuilds the definition. On failure the previous
	// definition stays installed and the error is returned.
	Reload() error
}

// Status is the outcome of a reload attempt.
type Status string

const (
	// StatusSuccess means the new definition was installed
	StatusSuccess Status = "success"

	// StatusFailure means the previous definition was kept
	StatusFailure Status = "failure"
)

// Result describes one reload attempt.
type Result struct {
	// ID identifies the attempt
	ID uuid.UUID

	// Symbol is the definition name
	Symbol string

	// Kind is the definition kind
	Kind source.Kind

	// File is the script path
	File string

	// Hash is the fragment hash of the installed definition, empty on failure
	Hash string

	// Status is the outcome
	Status Status

	// Err is the failure cause, nil on success
	Err error

	// Duration is the time spent locating, rebuilding and installing
	Duration time.Duration

	// Retagged is the number of live instances moved to the new definition
	Retagged int

	// Migrated is how many of the retagged instances had their fields copied
	// into a new struct layout
	Migrated int

	// Timestamp is when the attempt started
	Timestamp time.Time
}

// Observer receives the result of every reload attempt of the proxies it is
// registered with. ObserveReload is called synchronously after the swap, so
// it must not block.
type Observer interface {
	ObserveReload(Result)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Result)

// ObserveReload implements Observer.
func (f ObserverFunc) ObserveReload(r Result) {
	f(r)
}

type options struct {
	logger    *slog.Logger
	tracer    trace.Tracer
	observers []Observer
	markers   []string
}

// Option configures a proxy.
type Option func(*options)

// WithLogger sets the logger used for reload outcomes. The default is
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracer sets the tracer reload spans are created with. The default is
// the global OpenTelemetry tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithObserver adds an observer of reload results.
func WithObserver(observers ...Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, observers...)
	}
}

// WithMarkers overrides the directives stripped before rebuilding. The
// default is the namespace markers.
func WithMarkers(markers ...string) Option {
	return func(o *options) {
		o.markers = markers
	}
}
