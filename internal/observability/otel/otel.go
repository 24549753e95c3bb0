package otel

import (
	"context"
	"fmt"
	"strings"

	"github.com/admitguard/admitguard/internal/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies admitguard spans
const TracerName = "admitguard"

// Resource attribute keys
const (
	AttrRulesVersion    = attribute.Key("admitguard.rules_version")
	AttrDisplayTimezone = attribute.Key("admitguard.display_timezone")
)

// Init starts a batching tracer provider that exports to cfg's collector and
// installs it globally. Call Handle.Shutdown to flush.
func Init(ctx context.Context, cfg Config) (*Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("otel: failed to build resource: %w", err)
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("otel: failed to create %s exporter: %w", cfg.Protocol, err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SampleRatio)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &Handle{
		Tracer:   tp.Tracer(TracerName, trace.WithInstrumentationVersion(version.BuildVersion())),
		Shutdown: tp.Shutdown,
	}, nil
}

// InitWithProvider wraps an existing provider, typically a test recorder
func InitWithProvider(tp trace.TracerProvider) *Handle {
	return &Handle{
		Tracer:   tp.Tracer(TracerName),
		Shutdown: func(context.Context) error { return nil },
	}
}

func newResource(cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(version.BuildVersion()),
	}
	if cfg.RulesVersion != "" {
		attrs = append(attrs, AttrRulesVersion.String(cfg.RulesVersion))
	}
	if cfg.DisplayTimezone != "" {
		attrs = append(attrs, AttrDisplayTimezone.String(cfg.DisplayTimezone))
	}
	// schemaless so the merge takes the SDK default schema URL
	return resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
}

// newExporter accepts either host:port or a full collector URL
func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	endpoint := cfg.ResolvedEndpoint()
	isURL := strings.Contains(endpoint, "://")

	if cfg.Protocol == ProtocolGRPC {
		var opts []otlptracegrpc.Option
		if isURL {
			opts = append(opts, otlptracegrpc.WithEndpointURL(endpoint))
		} else {
			opts = append(opts, otlptracegrpc.WithEndpoint(endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	}

	var opts []otlptracehttp.Option
	if isURL {
		opts = append(opts, otlptracehttp.WithEndpointURL(endpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}

// newSampler: 1 keeps every trace, 0 none, anything between samples root
// spans by ratio and follows the parent otherwise
func newSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}
