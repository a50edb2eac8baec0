// Package tracing builds the OpenTelemetry TracerProvider the daemon
// installs globally at startup: an OTLP/HTTP exporter batching spans off
// to the configured collector endpoint. client/apm's Span wrapper draws
// its spans from whatever provider is installed here; with tracing
// disabled, it draws from the otel package's default no-op provider
// instead.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/oriys/mongosvc/internal/config"
)

// Init installs a global TracerProvider per cfg and returns a shutdown
// func that flushes and closes the exporter. When cfg.Enabled is false it
// installs nothing and returns a no-op shutdown.
func Init(ctx context.Context, cfg config.TracingConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("build otlp/http exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRate)),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}
