package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"txanomaly/internal/config"
	"txanomaly/pkg/contracts"
)

const (
	ServiceName    = "txanomaly"
	ServiceVersion = contracts.Version
	MeterName      = "txanomaly"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
	// TraceWriter receives stdout-exported spans. Defaults to os.Stderr so
	// the printed run summary stays clean.
	TraceWriter io.Writer
}

// OTelProviders holds the OpenTelemetry providers of one process
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	// Registry is a private Prometheus registry fed by the OTel exporter.
	// It is nil when metrics are disabled.
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

// OTelConfigFromTelemetry maps the telemetry section of the config file
func OTelConfigFromTelemetry(cfg config.TelemetryConfig) *OTelConfig {
	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    cfg.Environment,
		TraceExporter:  cfg.TraceExporter,
		EnableMetrics:  cfg.EnableMetrics,
		EnableTracing:  cfg.EnableTracing,
		SampleRatio:    1.0,
	}
}

// DefaultOTelConfig returns a configuration with metrics on and tracing off
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "stdout",
		EnableMetrics:  true,
		EnableTracing:  false,
		SampleRatio:    1.0,
	}
}

// InitializeOTel sets up tracing and metrics. Disabled signals fall back to
// no-op implementations so callers never need nil checks.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	if logger == nil {
		logger = GetLogger()
	}

	ctx := context.Background()
	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res := createResource(cfg)
	providers := &OTelProviders{
		Logger: logger,
		Tracer: otel.Tracer(MeterName),
		Meter:  noop.NewMeterProvider().Meter(MeterName),
	}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	return providers, nil
}

// createResource describes this process to exporters
func createResource(cfg *OTelConfig) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)
}

// initializeTracing sets up span export
func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		w := cfg.TraceWriter
		if w == nil {
			w = os.Stderr
		}
		exporter, err = stdouttrace.New(
			stdouttrace.WithWriter(w),
			stdouttrace.WithPrettyPrint(),
		)
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	// A batch run is short lived; spans are exported synchronously so
	// nothing is lost on exit.
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))
	return nil
}

// initializeMetrics wires the OTel Prometheus exporter into a private
// registry that is later written as a node-exporter textfile
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(
		otelprom.WithRegisterer(registry),
		otelprom.WithoutScopeInfo(),
	)
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	providers.Registry = registry
	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetMeterProvider(mp)

	providers.Logger.InfoContext(ctx, "Metrics initialized", slog.String("exporter", "prometheus"))
	return nil
}

// WriteMetricsTextfile writes the current metric values in the Prometheus
// text format. It is a no-op when metrics are disabled.
func (p *OTelProviders) WriteMetricsTextfile(path string) error {
	if p.Registry == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, p.Registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}

// Shutdown flushes and stops the providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("opentelemetry shutdown: %w", err)
	}
	p.Logger.DebugContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// PipelineMetrics holds the run instruments
type PipelineMetrics struct {
	StepDuration    metric.Float64Histogram
	StepErrors      metric.Int64Counter
	RowsProcessed   metric.Int64Counter
	RowAnomalies    metric.Int64Counter
	HourlyAnomalies metric.Int64Counter
}

// CreatePipelineMetrics registers the run instruments on meter
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	stepDuration, err := meter.Float64Histogram(
		"txanomaly_step_duration",
		metric.WithDescription("Pipeline step duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stepErrors, err := meter.Int64Counter(
		"txanomaly_step_errors",
		metric.WithDescription("Total number of failed pipeline steps"),
	)
	if err != nil {
		return nil, err
	}

	rowsProcessed, err := meter.Int64Counter(
		"txanomaly_rows_processed",
		metric.WithDescription("Total number of transactions scored"),
	)
	if err != nil {
		return nil, err
	}

	rowAnomalies, err := meter.Int64Counter(
		"txanomaly_row_anomalies",
		metric.WithDescription("Total number of transactions flagged by the composite score"),
	)
	if err != nil {
		return nil, err
	}

	hourlyAnomalies, err := meter.Int64Counter(
		"txanomaly_hourly_anomalies",
		metric.WithDescription("Total number of hours flagged by the time-series detector"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		StepDuration:    stepDuration,
		StepErrors:      stepErrors,
		RowsProcessed:   rowsProcessed,
		RowAnomalies:    rowAnomalies,
		HourlyAnomalies: hourlyAnomalies,
	}, nil
}

// RecordStep records the duration and outcome of one pipeline step
func RecordStep(ctx context.Context, m *PipelineMetrics, runID, step string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	attrs := metric.WithAttributes(
		attribute.String("step", step),
		attribute.String("status", status),
	)
	m.StepDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.StepErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("step", step),
			attribute.String("error.type", fmt.Sprintf("%T", err)),
		))
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("step.metrics_recorded",
			trace.WithAttributes(
				attribute.String("run.id", runID),
				attribute.String("step", step),
				attribute.Bool("success", err == nil),
				attribute.Float64("duration_seconds", duration.Seconds()),
			),
		)
	}
}

// RecordRunTotals adds the detection counts of a finished run
func RecordRunTotals(ctx context.Context, m *PipelineMetrics, rows, rowAnomalies, hourlyAnomalies int) {
	if m == nil {
		return
	}
	m.RowsProcessed.Add(ctx, int64(rows))
	m.RowAnomalies.Add(ctx, int64(rowAnomalies))
	m.HourlyAnomalies.Add(ctx, int64(hourlyAnomalies))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}
