package reload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"reloadr-hq/reloadr/pkg/telemetry/tracing"
)

func newRecorder(t *testing.T) (*tracetest.SpanRecorder, Option) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { tp.Shutdown(t.Context()) })
	return sr, WithTracer(tp.Tracer("test"))
}

// reloadSpans returns the spans of the trace rooted at the span named root.
func reloadSpans(t *testing.T, sr *tracetest.SpanRecorder, root string) (sdktrace.ReadOnlySpan, map[string]sdktrace.ReadOnlySpan) {
	t.Helper()
	var parent sdktrace.ReadOnlySpan
	spans := sr.Ended()
	for _, s := range spans {
		if s.Name() == root {
			parent = s
		}
	}
	require.NotNil(t, parent, "no span named %q", root)

	children := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range spans {
		if s.Parent().SpanID() == parent.SpanContext().SpanID() {
			children[s.Name()] = s
		}
	}
	return parent, children
}

func attrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range s.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestReload_Traced(t *testing.T) {
	s := newScript(t, appSrc)
	sr, opt := newRecorder(t)
	obs := &results{}

	c, err := NewClass(s.load(), "C", opt, WithObserver(obs))
	require.NoError(t, err)
	_, err = c.New()
	require.NoError(t, err)

	load, stages := reloadSpans(t, sr, "load C")
	assert.Equal(t, codes.Ok, load.Status().Code)
	assert.Contains(t, stages, tracing.SpanLocate)
	assert.Contains(t, stages, tracing.SpanRebuild)

	s.replace("return c.X }", "return c.X + 1 }")
	require.NoError(t, c.Reload())

	root, stages := reloadSpans(t, sr, "reload C")
	assert.Equal(t, codes.Ok, root.Status().Code)
	assert.False(t, root.Parent().IsValid())

	a := attrs(root)
	assert.Equal(t, obs.last().ID.String(), a[tracing.AttrReloadID].AsString())
	assert.Equal(t, "C", a[tracing.AttrSymbol].AsString())
	assert.Equal(t, "class", a[tracing.AttrKind].AsString())
	assert.Equal(t, s.path, a[tracing.AttrFile].AsString())
	assert.Equal(t, "success", a[tracing.AttrStatus].AsString())
	assert.Equal(t, c.Definition().Hash, a[tracing.AttrHash].AsString())
	assert.Equal(t, int64(1), a[tracing.AttrRetagged].AsInt64())

	require.Len(t, stages, 3)
	for _, name := range []string{tracing.SpanLocate, tracing.SpanRebuild, tracing.SpanSwap} {
		require.Contains(t, stages, name)
		assert.Equal(t, codes.Ok, stages[name].Status().Code, name)
		assert.Equal(t, root.SpanContext().TraceID(), stages[name].SpanContext().TraceID())
	}
	assert.Equal(t, int64(1), attrs(stages[tracing.SpanSwap])[tracing.AttrRetagged].AsInt64())
}

func TestReload_TracedFailure(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(s *script)
		failed  string
		skipped []string
		staged  bool
	}{
		{
			name:    "syntax error",
			edit:    func(s *script) { s.replace("func f() int { return 1 }", "func f() int { return ") },
			failed:  tracing.SpanLocate,
			skipped: []string{tracing.SpanRebuild, tracing.SpanSwap},
		},
		{
			name:    "undefined name",
			edit:    func(s *script) { s.replace("return 1", "return missing") },
			failed:  tracing.SpanRebuild,
			skipped: []string{tracing.SpanSwap},
			staged:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScript(t, appSrc)
			sr, opt := newRecorder(t)

			f, err := NewFunc[func() int](s.load(), "f", opt)
			require.NoError(t, err)

			tt.edit(s)
			require.Error(t, f.Reload())

			root, stages := reloadSpans(t, sr, "reload f")
			assert.Equal(t, codes.Error, root.Status().Code)
			assert.Equal(t, "failure", attrs(root)[tracing.AttrStatus].AsString())
			assert.NotEmpty(t, root.Events(), "the error is recorded as an event")

			require.Contains(t, stages, tt.failed)
			assert.Equal(t, codes.Error, stages[tt.failed].Status().Code)
			for _, name := range tt.skipped {
				assert.NotContains(t, stages, name)
			}
			if tt.staged {
				assert.NotEmpty(t, attrs(stages[tt.failed])[tracing.AttrStage].AsString())
			}
		})
	}
}
