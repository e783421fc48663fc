// Package tracing installs the OpenTelemetry tracer provider of the process.
//
// Spans are always recorded when tracing is enabled, so that log records carry
// otel_trace_id and otel_span_id. They are only exported when an OTLP collector
// endpoint is configured.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config holds configuration for tracing.
type Config struct {
	// Enabled installs the SDK tracer provider; otherwise spans are no-ops
	Enabled bool `env:"ENABLED" default:"true"`
	// Endpoint is the OTLP gRPC collector address, e.g. "localhost:4317"
	Endpoint string `env:"ENDPOINT" default:""`
	// Insecure disables TLS towards the collector
	Insecure bool `env:"INSECURE" default:"true"`
}

// ShutdownFunc flushes pending spans and stops the provider.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// NewProvider creates a tracer provider for the service. Extra options are
// applied last.
func NewProvider(
	ctx context.Context,
	cfg Config,
	serviceName string,
	opts ...sdktrace.TracerProviderOption,
) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	providerOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	}

	if cfg.Endpoint != "" {
		exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
		}

		exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("create OTLP exporter: %w", err)
		}

		providerOpts = append(providerOpts, sdktrace.WithBatcher(exporter))
	}

	return sdktrace.NewTracerProvider(append(providerOpts, opts...)...), nil
}

// Setup registers the tracer provider globally. The returned function must
// be called on exit.
func Setup(ctx context.Context, cfg Config, serviceName string) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return noopShutdown, nil
	}

	tp, err := NewProvider(ctx, cfg, serviceName)
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
