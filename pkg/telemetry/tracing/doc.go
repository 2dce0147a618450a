// Package tracing provides OpenTelemetry tracing of reloads.
//
// # Spans
//
// Every reload is one trace. The root span is named after the symbol and
// carries the reload ID, symbol, kind, file and outcome. Its children time
// the pipeline stages:
//
//   - locate: reading the script and finding the definition
//   - rebuild: evaluating the definition in a fresh interpreter
//   - swap: installing the definition and retagging class instances
//
// A failed stage records the error on its span and on the root span.
//
// # Configuration
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    sampler: ratio
//	    sample_ratio: 0.5
//	    exporter: otlp
//	    endpoint: localhost:4317
//	    otlp:
//	      insecure: true
//
// When tracing is disabled the tracer is a noop and spans cost next to
// nothing.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	f, err := reload.NewFunc[func() string](ns, "Tick", reload.WithTracer(tracer.Tracer()))
package tracing
