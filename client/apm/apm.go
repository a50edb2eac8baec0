// Package apm is the minimal tracing shim referenced by the dispatcher's
// traced variant. The specification treats the trace record as an
// external collaborator whose storage it does not define; this package is
// that collaborator's Go-idiomatic shape — a thin wrapper around an
// OpenTelemetry span that the dispatcher annotates at each internal step
// (encode, acquire, execute).
package apm

import (
	"context"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/oriys/mongosvc/client")

// Span wraps a trace.Span and tracks nested steps.
type Span struct {
	span trace.Span
	ctx  context.Context
}

// Start begins a new traced operation named for the action being
// dispatched (e.g. "mongosvc.retrieve").
func Start(ctx context.Context, operation string) (*Span, context.Context) {
	ctx, span := tracer.Start(ctx, operation)
	s := &Span{span: span, ctx: ctx}
	return s, ctx
}

// Step annotates the current span with a timed subprocess: the step name,
// and — via runtime.Caller — the file/line/function of the call site that
// invoked it, matching the specification's "file/line/function of origin"
// requirement for the APM variant.
func (s *Span) Step(name string, err error) {
	if s == nil || s.span == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("step", name)}
	if pc, file, line, ok := runtime.Caller(1); ok {
		fn := runtime.FuncForPC(pc)
		fnName := "unknown"
		if fn != nil {
			fnName = fn.Name()
		}
		attrs = append(attrs,
			attribute.String("step.file", file),
			attribute.Int("step.line", line),
			attribute.String("step.func", fnName),
		)
	}
	if err != nil {
		attrs = append(attrs, attribute.String("step.error", err.Error()))
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// End finalizes the span.
func (s *Span) End() {
	if s == nil || s.span == nil {
		return
	}
	s.span.End()
}

// Context returns the context carrying this span, for propagation into
// further calls.
func (s *Span) Context() context.Context {
	if s == nil {
		return context.Background()
	}
	return s.ctx
}
