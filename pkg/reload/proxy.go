package reload

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"reloadr-hq/reloadr/pkg/reload/rebuild"
	"reloadr-hq/reloadr/pkg/reload/source"
	"reloadr-hq/reloadr/pkg/telemetry/tracing"
)

// proxy holds the machinery shared by Class and Func: the current
// definition and the reload pipeline.
type proxy struct {
	ns        *rebuild.Namespace
	name      string
	kind      source.Kind
	file      string
	markers   []string
	logger    *slog.Logger
	tracer    trace.Tracer
	observers []Observer

	// reloadMu serializes reloads of this proxy.
	reloadMu sync.Mutex

	// mu guards current. Swaps take the write lock.
	mu      sync.RWMutex
	current *rebuild.Definition
}

// setup locates and builds the first definition. check vets it the same way
// every later build is vetted.
func (p *proxy) setup(ns *rebuild.Namespace, name string, kind source.Kind, opts []Option, check func(*rebuild.Definition) error) error {
	if ns == nil {
		return errors.New("namespace cannot be nil")
	}
	if name == "" {
		return errors.New("name cannot be empty")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracing.InstrumentationName)
	}

	p.ns = ns
	p.name = name
	p.kind = kind
	p.file = ns.Path()
	p.markers = o.markers
	p.logger = o.logger
	p.tracer = o.tracer
	p.observers = o.observers

	ctx, span := p.tracer.Start(context.Background(), "load "+name,
		trace.WithAttributes(
			attribute.String(tracing.AttrSymbol, name),
			attribute.String(tracing.AttrKind, kind.String()),
			attribute.String(tracing.AttrFile, p.file),
		))
	def, err := p.build(ctx, check)
	tracing.End(span, err)
	if err != nil {
		return err
	}
	p.current = def
	return nil
}

// Name returns the proxied definition name.
func (p *proxy) Name() string {
	return p.name
}

// Kind returns the proxied definition kind.
func (p *proxy) Kind() source.Kind {
	return p.kind
}

// File returns the script path.
func (p *proxy) File() string {
	return p.file
}

// Definition returns the current definition.
func (p *proxy) Definition() *rebuild.Definition {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// build locates and rebuilds the definition, one child span of ctx per
// stage.
func (p *proxy) build(ctx context.Context, check func(*rebuild.Definition) error) (*rebuild.Definition, error) {
	_, span := p.tracer.Start(ctx, tracing.SpanLocate)
	frag, err := source.Locate(p.file, p.name, p.kind)
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}

	_, span = p.tracer.Start(ctx, tracing.SpanRebuild)
	def, err := rebuild.Rebuild(frag, p.ns, p.markers)
	if err == nil && check != nil {
		err = check(def)
	}
	var re *rebuild.RebuildError
	if errors.As(err, &re) {
		span.SetAttributes(attribute.String(tracing.AttrStage, re.Stage))
	}
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	return def, nil
}

// reload runs the pipeline. Locate and rebuild happen outside the swap
// lock. install runs under the write lock right after the swap and returns
// the number of retagged and migrated instances. The reload is traced as one
// span with a child span per stage.
func (p *proxy) reload(check func(*rebuild.Definition) error, install func(*rebuild.Definition) (int, int)) error {
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()

	res := Result{
		ID:        uuid.New(),
		Symbol:    p.name,
		Kind:      p.kind,
		File:      p.file,
		Timestamp: time.Now(),
	}
	ctx, span := p.tracer.Start(context.Background(), "reload "+p.name,
		trace.WithAttributes(tracing.ReloadAttributes(res.ID.String(), p.name, p.kind.String(), p.file)...))
	defer span.End()

	logger := p.logger.With(
		"reload_id", res.ID.String(),
		"symbol", p.name,
		"kind", p.kind.String(),
	)
	if id := tracing.TraceID(ctx); id != "" {
		logger = logger.With("trace_id", id)
	}

	def, err := p.build(ctx, check)
	if err != nil {
		res.Status = StatusFailure
		res.Err = err
		res.Duration = time.Since(res.Timestamp)
		tracing.SetReloadResult(span, string(res.Status), "", 0, 0)
		tracing.SetError(span, err)
		tracing.SetStatus(span, err)
		logger.Error("Reload failed, keeping previous definition",
			"file", p.file,
			"error", err,
			"duration_ms", res.Duration.Milliseconds(),
		)
		p.notify(res)
		return err
	}

	_, swap := p.tracer.Start(ctx, tracing.SpanSwap)
	p.mu.Lock()
	p.current = def
	if install != nil {
		res.Retagged, res.Migrated = install(def)
	}
	p.mu.Unlock()
	swap.SetAttributes(
		attribute.Int(tracing.AttrRetagged, res.Retagged),
		attribute.Int(tracing.AttrMigrated, res.Migrated),
	)
	tracing.End(swap, nil)

	res.Status = StatusSuccess
	res.Hash = def.Hash
	res.Duration = time.Since(res.Timestamp)
	tracing.SetReloadResult(span, string(res.Status), def.Hash, res.Retagged, res.Migrated)
	tracing.SetStatus(span, nil)
	logger.Info("Reloaded "+p.kind.String()+" "+p.name,
		"file", p.file,
		"hash", shortHash(def.Hash),
		"retagged", res.Retagged,
		"migrated", res.Migrated,
		"duration_ms", res.Duration.Milliseconds(),
	)
	p.notify(res)
	return nil
}

func (p *proxy) notify(res Result) {
	for _, o := range p.observers {
		o.ObserveReload(res)
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
