// Package observability wires CLI runs to an OpenTelemetry collector.
// The exec tracker records spans for command round trips and stream
// attachment; this package builds the provider those spans flow into.
package observability

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/loomworks/loom/internal/config"
	"github.com/loomworks/loom/internal/types"
	"github.com/loomworks/loom/pkg/version"
)

const (
	defaultBatchTimeout = 5 * time.Second
	defaultServiceName  = "loom"
)

// Option adjusts provider construction.
type Option func(*options)

type options struct {
	sampler      sdktrace.Sampler
	resource     *resource.Resource
	batchTimeout time.Duration
}

// WithSampler overrides the ratio sampler derived from the config.
func WithSampler(s sdktrace.Sampler) Option {
	return func(o *options) {
		o.sampler = s
	}
}

// WithResource overrides the detected service resource.
func WithResource(r *resource.Resource) Option {
	return func(o *options) {
		o.resource = r
	}
}

// WithBatchTimeout sets the maximum delay before a partial batch exports.
func WithBatchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.batchTimeout = d
	}
}

// Setup builds the tracer provider described by cfg and installs it as
// the global provider. A disabled config yields a provider with no
// processors, so callers shut down both cases the same way. The OTLP
// exporter dials lazily; Setup does not wait for the collector.
func Setup(ctx context.Context, cfg config.TracingConfig, opts ...Option) (*sdktrace.TracerProvider, error) {
	if !cfg.Enabled {
		return sdktrace.NewTracerProvider(), nil
	}
	if cfg.Endpoint == "" {
		return nil, types.NewError(types.TRACE_INIT_FAILED, "tracing is enabled but no endpoint is configured")
	}

	o := &options{batchTimeout: defaultBatchTimeout}
	for _, opt := range opts {
		opt(o)
	}
	if o.sampler == nil {
		o.sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}
	if o.resource == nil {
		res, err := buildResource(ctx, cfg.ServiceName)
		if err != nil {
			return nil, types.WrapError(types.TRACE_INIT_FAILED, "failed to describe the service resource", err)
		}
		o.resource = res
	}

	// Endpoints may be bare host:port pairs or full URLs.
	var exporterOpts []otlptracegrpc.Option
	if strings.Contains(cfg.Endpoint, "://") {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithEndpointURL(cfg.Endpoint))
	} else {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, types.WrapError(types.TRACE_INIT_FAILED, "failed to build the span exporter", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(o.batchTimeout)),
		sdktrace.WithSampler(o.sampler),
		sdktrace.WithResource(o.resource),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

func buildResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version.Version),
		),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
	)
}

// Shutdown flushes pending spans and releases the provider. Callers
// should bound ctx; a blocked collector otherwise holds up process exit.
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	if err := tp.Shutdown(ctx); err != nil {
		return types.WrapError(types.TRACE_SHUTDOWN_FAILED, "failed to flush pending spans", err)
	}
	return nil
}
