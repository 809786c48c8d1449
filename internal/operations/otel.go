package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"txanomaly/internal/exporter"
	"txanomaly/internal/infrastructure"
)

const (
	TracerName = "txanomaly.operations"
)

// OperationTracer provides OpenTelemetry instrumentation for pipeline runs
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewOperationTracer creates a tracer recording on providers. Nil
// providers trace through the global provider and record no metrics.
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	pt := &OperationTracer{tracer: otel.Tracer(TracerName)}
	if providers == nil {
		return pt, nil
	}
	if providers.Tracer != nil {
		pt.tracer = providers.Tracer
	}
	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	pt.metrics = metrics
	return pt, nil
}

// TraceRun creates a span for a whole pipeline run
func (pt *OperationTracer) TraceRun(ctx context.Context, runID string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("run.id", runID)),
	)
}

// TraceStep creates a span for one step
func (pt *OperationTracer) TraceStep(ctx context.Context, runID, stepID string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "pipeline.step."+stepID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("step.id", stepID),
		),
	)
}

// EndStep records the step metrics and closes its span
func (pt *OperationTracer) EndStep(ctx context.Context, span trace.Span, runID, stepID string, duration time.Duration, err error) {
	infrastructure.RecordStep(ctx, pt.metrics, runID, stepID, duration, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// EndRun records the run totals of a committed run and closes its span
func (pt *OperationTracer) EndRun(ctx context.Context, span trace.Span, summary *exporter.RunSummary, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return
	}

	infrastructure.RecordRunTotals(ctx, pt.metrics,
		summary.TotalTransactions, summary.RowLevelAnomalies, summary.HourlyAnomalies)
	span.SetAttributes(
		attribute.Int("run.transactions", summary.TotalTransactions),
		attribute.Int("run.row_anomalies", summary.RowLevelAnomalies),
		attribute.Int("run.hourly_anomalies", summary.HourlyAnomalies),
	)
	span.SetStatus(codes.Ok, "run committed")
	span.End()
}
