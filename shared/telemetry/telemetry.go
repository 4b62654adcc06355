package telemetry

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	metricSDK "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	traceSDK "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "saga-system"
	shutdownTimeout     = 5 * time.Second
	otlpExportInterval  = 30 * time.Second
)

// Config holds telemetry configuration for a service. An empty OTLPEndpoint
// keeps traces in-process and exposes metrics through Prometheus only.
type Config struct {
	ServiceName    string
	ServiceVersion string
	OTLPEndpoint   string
}

// Telemetry carries the tracer and meter of one service. Handlers find it in
// the request context, background work falls back to the global providers.
type Telemetry struct {
	tracer trace.Tracer
	meter  metric.Meter
	config Config
}

// InitTelemetry installs the global tracer and meter providers for a service.
// The returned func flushes and stops both.
func InitTelemetry(ctx context.Context, config Config) (*Telemetry, func(), error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to build telemetry resource")
	}

	traceProvider, err := newTraceProvider(ctx, res, config.OTLPEndpoint)
	if err != nil {
		return nil, nil, err
	}
	meterProvider, err := newMeterProvider(ctx, res, config.OTLPEndpoint)
	if err != nil {
		shutdownWithin(traceProvider.Shutdown)
		return nil, nil, err
	}

	otel.SetTracerProvider(traceProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	tel := &Telemetry{
		config: config,
		tracer: traceProvider.Tracer(config.ServiceName),
		meter:  meterProvider.Meter(config.ServiceName),
	}
	shutdown := func() {
		shutdownWithin(traceProvider.Shutdown)
		shutdownWithin(meterProvider.Shutdown)
	}
	return tel, shutdown, nil
}

func shutdownWithin(stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = stop(ctx)
}

// newTraceProvider samples every span. Without an OTLP endpoint spans stay in process.
func newTraceProvider(ctx context.Context, res *resource.Resource, otlpEndpoint string) (*traceSDK.TracerProvider, error) {
	opts := []traceSDK.TracerProviderOption{
		traceSDK.WithResource(res),
		traceSDK.WithSampler(traceSDK.ParentBased(traceSDK.AlwaysSample())),
	}
	if otlpEndpoint != "" {
		exporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(otlpEndpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create OTLP trace exporter")
		}
		opts = append(opts, traceSDK.WithBatcher(exporter))
	}
	return traceSDK.NewTracerProvider(opts...), nil
}

// newMeterProvider always registers the Prometheus reader backing /metrics
func newMeterProvider(ctx context.Context, res *resource.Resource, otlpEndpoint string) (*metricSDK.MeterProvider, error) {
	scrape, err := prometheus.New()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create prometheus exporter")
	}
	opts := []metricSDK.Option{
		metricSDK.WithResource(res),
		metricSDK.WithReader(scrape),
	}
	if otlpEndpoint != "" {
		exporter, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(otlpEndpoint),
			otlpmetrichttp.WithInsecure(),
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create OTLP metric exporter")
		}
		opts = append(opts, metricSDK.WithReader(metricSDK.NewPeriodicReader(exporter,
			metricSDK.WithInterval(otlpExportInterval),
		)))
	}
	return metricSDK.NewMeterProvider(opts...), nil
}

// StartSpan starts a span on the service tracer
func (t *Telemetry) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

type contextKey struct{}

// WithTelemetry stores tel in ctx
func WithTelemetry(ctx context.Context, tel *Telemetry) context.Context {
	return context.WithValue(ctx, contextKey{}, tel)
}

// FromContext returns the telemetry stored by WithTelemetry, or nil
func FromContext(ctx context.Context) *Telemetry {
	tel, _ := ctx.Value(contextKey{}).(*Telemetry)
	return tel
}

// StartSpan starts a span on the context telemetry, or the global tracer
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if tel := FromContext(ctx); tel != nil {
		return tel.StartSpan(ctx, name, opts...)
	}
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// instruments resolves the meter for ctx and tags attrs with the service name
func instruments(ctx context.Context, attrs []attribute.KeyValue) (metric.Meter, metric.MeasurementOption) {
	meter, service := otel.Meter(instrumentationName), "unknown"
	if tel := FromContext(ctx); tel != nil {
		meter, service = tel.meter, tel.config.ServiceName
	}
	return meter, metric.WithAttributes(append(attrs, attribute.String("service", service))...)
}

// RecordCounter adds value to the named counter. Instrument errors drop the sample.
func RecordCounter(ctx context.Context, name, description string, value int64, attrs ...attribute.KeyValue) {
	meter, opt := instruments(ctx, attrs)
	if counter, err := meter.Int64Counter(name, metric.WithDescription(description)); err == nil {
		counter.Add(ctx, value, opt)
	}
}

// RecordHistogram records value on the named histogram
func RecordHistogram(ctx context.Context, name, description string, value float64, attrs ...attribute.KeyValue) {
	meter, opt := instruments(ctx, attrs)
	if histogram, err := meter.Float64Histogram(name, metric.WithDescription(description)); err == nil {
		histogram.Record(ctx, value, opt)
	}
}
