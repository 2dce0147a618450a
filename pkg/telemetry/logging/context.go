package logging

import (
	"context"
	"log/slog"
)

// Context keys for reload log fields.
type contextKey string

const (
	// ReloadIDKey is the context key for reload attempt IDs.
	ReloadIDKey contextKey = "reload_id"

	// SymbolKey is the context key for the name of the reloaded definition.
	SymbolKey contextKey = "symbol"

	// FileKey is the context key for the script path.
	FileKey contextKey = "file"

	// ModeKey is the context key for the watch mode driving a reload.
	ModeKey contextKey = "mode"
)

// fieldKeys lists the context keys in the order they are logged.
var fieldKeys = []contextKey{ReloadIDKey, SymbolKey, FileKey, ModeKey}

// WithReloadID adds a reload attempt ID to the context.
func WithReloadID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ReloadIDKey, id)
}

// GetReloadID retrieves the reload attempt ID from the context.
func GetReloadID(ctx context.Context) string {
	return get(ctx, ReloadIDKey)
}

// WithSymbol adds a definition name to the context.
func WithSymbol(ctx context.Context, symbol string) context.Context {
	return context.WithValue(ctx, SymbolKey, symbol)
}

// GetSymbol retrieves the definition name from the context.
func GetSymbol(ctx context.Context) string {
	return get(ctx, SymbolKey)
}

// WithFile adds a script path to the context.
func WithFile(ctx context.Context, file string) context.Context {
	return context.WithValue(ctx, FileKey, file)
}

// GetFile retrieves the script path from the context.
func GetFile(ctx context.Context) string {
	return get(ctx, FileKey)
}

// WithMode adds a watch mode to the context.
func WithMode(ctx context.Context, mode string) context.Context {
	return context.WithValue(ctx, ModeKey, mode)
}

// GetMode retrieves the watch mode from the context.
func GetMode(ctx context.Context) string {
	return get(ctx, ModeKey)
}

func get(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// extractContextFields extracts the reload fields set on ctx.
func extractContextFields(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	for _, key := range fieldKeys {
		if v := get(ctx, key); v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	return attrs
}

// contextHandler adds the reload fields of the record context to every
// record.
type contextHandler struct {
	inner slog.Handler
}

// Wrap returns a logger that adds context fields to records logged with a
// context. Loggers built by New already do.
func Wrap(logger *slog.Logger) *slog.Logger {
	if _, ok := logger.Handler().(*contextHandler); ok {
		return logger
	}
	return slog.New(&contextHandler{inner: logger.Handler()})
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := extractContextFields(ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.inner.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{inner: h.inner.WithGroup(name)}
}
