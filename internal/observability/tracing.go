// Package observability sets up OpenTelemetry tracing for vtond. Exporters are
// stdout and OTLP/gRPC; tracing is off unless an exporter is configured.
package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// TracingConfig selects and configures the span exporter.
type TracingConfig struct {
	// Exporter is "none" (or empty), "stdout" or "otlp".
	Exporter     string
	OTLPEndpoint string
	// SampleRate in [0,1]: 0 drops every root span, >= 1 keeps all.
	SampleRate     float64
	ServiceName    string
	ServiceVersion string
	// Writer receives stdout spans; defaults to os.Stdout.
	Writer io.Writer
}

// Provider holds the tracer provider for graceful shutdown.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
}

// Enabled reports whether spans are being exported.
func (p *Provider) Enabled() bool { return p != nil && p.tracerProvider != nil }

// Shutdown flushes and stops the exporter. Safe on a disabled provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	if err := p.tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}
	return nil
}

// Setup installs a global tracer provider according to cfg and returns a
// Provider that must be shut down on exit.
func Setup(ctx context.Context, cfg TracingConfig) (*Provider, error) {
	exp := strings.ToLower(strings.TrimSpace(cfg.Exporter))
	if exp == "" || exp == "none" {
		return &Provider{}, nil
	}
	name := cfg.ServiceName
	if name == "" {
		name = "vtond"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(name),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("deployment.environment", getEnvironment()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch exp {
	case "stdout":
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(w))
	case "otlp":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithInsecure()}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint))
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s exporter: %w", exp, err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(samplerFor(cfg.SampleRate))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return &Provider{tracerProvider: tp}, nil
}

// getEnvironment returns the deployment environment, "development" if unset.
func getEnvironment() string {
	if env := os.Getenv("VTOND_ENV"); env != "" {
		return env
	}
	return "development"
}

func samplerFor(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}
