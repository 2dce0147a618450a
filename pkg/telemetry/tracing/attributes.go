package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys of reload spans.
const (
	AttrReloadID = "reloadr.reload.id"
	AttrSymbol   = "reloadr.symbol"
	AttrKind     = "reloadr.kind"
	AttrFile     = "reloadr.file"
	AttrStatus   = "reloadr.status"
	AttrHash     = "reloadr.hash"
	AttrRetagged = "reloadr.instances.retagged"
	AttrMigrated = "reloadr.instances.migrated"
	AttrStage    = "reloadr.stage"

	AttrErrorMessage = "error.message"
)

// Span names of the reload stages.
const (
	SpanLocate  = "locate"
	SpanRebuild = "rebuild"
	SpanSwap    = "swap"
)

// ReloadAttributes returns the attributes identifying a reload.
func ReloadAttributes(id, symbol, kind, file string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrReloadID, id),
		attribute.String(AttrSymbol, symbol),
		attribute.String(AttrKind, kind),
		attribute.String(AttrFile, file),
	}
}

// SetReloadResult records the outcome of a reload on its root span.
func SetReloadResult(span trace.Span, status, hash string, retagged, migrated int) {
	attrs := []attribute.KeyValue{attribute.String(AttrStatus, status)}
	if hash != "" {
		attrs = append(attrs,
			attribute.String(AttrHash, hash),
			attribute.Int(AttrRetagged, retagged),
			attribute.Int(AttrMigrated, migrated),
		)
	}
	span.SetAttributes(attrs...)
}
