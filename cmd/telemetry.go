package cmd

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// otlpEndpointEnvVar, when set, routes sync's spans to a collector instead
// of the local stdout exporter used under --debug.
const otlpEndpointEnvVar = "OTEL_EXPORTER_OTLP_ENDPOINT"

// initTracing wires the global tracer index.Sync's spans report into: an
// OTLP gRPC exporter when OTEL_EXPORTER_OTLP_ENDPOINT is set, otherwise a
// stdout exporter active only under --debug, otherwise a no-op provider.
// Returns a shutdown func to flush on exit.
func initTracing(ctx context.Context) (func(context.Context) error, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", "transcriptdex"),
	))
	if err != nil {
		return nil, fmt.Errorf("building trace resource: %w", err)
	}

	if endpoint := os.Getenv(otlpEndpointEnvVar); endpoint != "" {
		exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("creating otlp exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter), sdktrace.WithResource(res))
		otel.SetTracerProvider(tp)
		return tp.Shutdown, nil
	}

	if !debugFlag {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	if err != nil {
		return nil, fmt.Errorf("creating stdout trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter), sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
