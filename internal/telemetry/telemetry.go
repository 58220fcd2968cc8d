package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ServiceNamespace groups every centralcompras process in the collector.
const ServiceNamespace = "centralcompras"

var (
	ErrInvalidConfig         = errors.New("invalid telemetry configuration")
	ErrMissingServiceName    = errors.New("service name is required")
	ErrMissingServiceVersion = errors.New("service version is required")
	ErrInvalidSampleRate     = errors.New("sample rate must be between 0.0 and 1.0")
)

// Config describes the OpenTelemetry providers of the service. An empty
// OTLPEndpoint keeps the providers but discards what they export, which is how
// the API runs on a developer machine without a collector.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	EnableTracing  bool
	EnableMetrics  bool
	SampleRate     float64
}

func (c *Config) Validate() error {
	var reason error
	switch {
	case c.ServiceName == "":
		reason = ErrMissingServiceName
	case c.ServiceVersion == "":
		reason = ErrMissingServiceVersion
	case c.SampleRate < 0 || c.SampleRate > 1:
		reason = ErrInvalidSampleRate
	default:
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, reason)
}

// Telemetry owns the providers installed by Initialize.
type Telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	traceExporter  sdktrace.SpanExporter
	metricExporter sdkmetric.Exporter
	// shutdowns run in reverse registration order.
	shutdowns []shutdownStep
}

type shutdownStep struct {
	name string
	fn   func(context.Context) error
}

type Option func(*options)

type options struct {
	traceExporter  sdktrace.SpanExporter
	metricExporter sdkmetric.Exporter
}

// WithTraceExporter replaces the OTLP span exporter, mostly for tests.
func WithTraceExporter(exporter sdktrace.SpanExporter) Option {
	return func(o *options) { o.traceExporter = exporter }
}

// WithMetricExporter replaces the OTLP metric exporter, mostly for tests.
func WithMetricExporter(exporter sdkmetric.Exporter) Option {
	return func(o *options) { o.metricExporter = exporter }
}

// Initialize installs the enabled providers as the otel globals together with
// the W3C trace-context and baggage propagators.
func Initialize(ctx context.Context, cfg Config, opts ...Option) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.ServiceNamespace(ServiceNamespace),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithOS(),
		resource.WithContainer(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tel := &Telemetry{}

	if cfg.EnableTracing {
		if err := tel.startTracing(ctx, res, cfg, o.traceExporter); err != nil {
			_ = tel.Shutdown(ctx)
			return nil, fmt.Errorf("initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := tel.startMetrics(ctx, res, cfg, o.metricExporter); err != nil {
			_ = tel.Shutdown(ctx)
			return nil, fmt.Errorf("initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tel, nil
}

func (t *Telemetry) startTracing(ctx context.Context, res *resource.Resource, cfg Config, exporter sdktrace.SpanExporter) error {
	if exporter == nil {
		var err error
		if exporter, err = spanExporter(ctx, cfg.OTLPEndpoint); err != nil {
			return err
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(createSampler(cfg.SampleRate)),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)

	t.tracerProvider = tp
	t.traceExporter = exporter
	t.shutdowns = append(t.shutdowns,
		shutdownStep{"trace exporter", exporter.Shutdown},
		shutdownStep{"tracer provider", tp.Shutdown},
	)
	return nil
}

func (t *Telemetry) startMetrics(ctx context.Context, res *resource.Resource, cfg Config, exporter sdkmetric.Exporter) error {
	if exporter == nil {
		var err error
		if exporter, err = metricExporter(ctx, cfg.OTLPEndpoint); err != nil {
			return err
		}
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	)
	otel.SetMeterProvider(mp)

	t.meterProvider = mp
	t.metricExporter = exporter
	t.shutdowns = append(t.shutdowns,
		shutdownStep{"metric exporter", exporter.Shutdown},
		shutdownStep{"meter provider", mp.Shutdown},
	)
	return nil
}

// The collector is reached over plaintext gRPC inside the deployment network.
func spanExporter(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
	if endpoint == "" {
		return NewNoopTraceExporter(), nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	return exp, nil
}

func metricExporter(ctx context.Context, endpoint string) (sdkmetric.Exporter, error) {
	if endpoint == "" {
		return NewNoopMetricExporter(), nil
	}
	exp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}
	return exp, nil
}

// createSampler samples nothing at or below 0, everything at or above 1, and
// otherwise the given ratio of root traces while honouring the parent decision.
func createSampler(sampleRate float64) sdktrace.Sampler {
	switch {
	case sampleRate <= 0:
		return sdktrace.NeverSample()
	case sampleRate >= 1:
		return sdktrace.AlwaysSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRate))
	}
}

// Shutdown flushes the providers before stopping their exporters. It is safe
// on a nil Telemetry and reports every step that failed.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}

	var errs []error
	for i := len(t.shutdowns) - 1; i >= 0; i-- {
		step := t.shutdowns[i]
		if err := step.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %s: %w", step.name, err))
		}
	}
	t.shutdowns = nil
	return errors.Join(errs...)
}

func (t *Telemetry) TracerProvider() *sdktrace.TracerProvider {
	return t.tracerProvider
}

func (t *Telemetry) MeterProvider() *sdkmetric.MeterProvider {
	return t.meterProvider
}
