// Package telemetry wires the OpenTelemetry tracer provider that the planner,
// pathfinder and executor spans are recorded against.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultServiceName  = "goap"
	defaultBatchTimeout = 5 * time.Second
)

// Config selects whether and where spans are exported.
type Config struct {
	Enabled        bool
	Endpoint       string
	Insecure       bool
	ServiceName    string
	ServiceVersion string
}

// Option customises Setup.
type Option func(*options)

type options struct {
	exporter     sdktrace.SpanExporter
	batchTimeout time.Duration
}

// WithExporter replaces the OTLP/gRPC exporter.
func WithExporter(exporter sdktrace.SpanExporter) Option {
	return func(o *options) { o.exporter = exporter }
}

// WithBatchTimeout sets the maximum delay between batch exports.
func WithBatchTimeout(d time.Duration) Option {
	return func(o *options) { o.batchTimeout = d }
}

// Provider owns the tracer provider for the process lifetime.
type Provider struct {
	tp      *sdktrace.TracerProvider
	enabled bool
}

// Setup builds a Provider. When cfg.Enabled is false the provider records
// nothing and the global provider is left alone. Otherwise spans are batched
// to the OTLP endpoint and the provider is installed globally.
func Setup(ctx context.Context, cfg Config, opts ...Option) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{tp: sdktrace.NewTracerProvider()}, nil
	}

	o := options{batchTimeout: defaultBatchTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	attrs := []resource.Option{
		resource.WithAttributes(semconv.ServiceName(serviceName)),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
	}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceVersion(cfg.ServiceVersion)))
	}
	res, err := resource.New(ctx, attrs...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating resource: %w", err)
	}

	exporter := o.exporter
	if exporter == nil {
		if cfg.Endpoint == "" {
			return nil, errors.New("telemetry: endpoint is required")
		}
		grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, fmt.Errorf("telemetry: creating OTLP exporter for %s: %w", cfg.Endpoint, err)
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(o.batchTimeout)),
	)
	otel.SetTracerProvider(tp)
	return &Provider{tp: tp, enabled: true}, nil
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool { return p.enabled }

// Tracer returns a named tracer from the provider.
func (p *Provider) Tracer(name string) trace.Tracer { return p.tp.Tracer(name) }

// TracerProvider exposes the underlying provider.
func (p *Provider) TracerProvider() trace.TracerProvider { return p.tp }

// ForceFlush exports every finished span now.
func (p *Provider) ForceFlush(ctx context.Context) error { return p.tp.ForceFlush(ctx) }

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: shutdown: %w", err)
	}
	return nil
}
