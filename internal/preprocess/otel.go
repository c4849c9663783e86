package preprocess

import (
	"context"
	"fmt"
	"time"

	"tabprep/internal/infrastructure"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	TracerName = "tabprep.pipeline"
)

// PipelineTracer provides OpenTelemetry instrumentation for pipeline runs.
// All methods are safe on a nil receiver, which turns instrumentation into
// a no-op.
type PipelineTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewPipelineTracer creates a pipeline tracer backed by the given providers.
func NewPipelineTracer(providers *infrastructure.OTelProviders) (*PipelineTracer, error) {
	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	return &PipelineTracer{
		tracer:  otel.Tracer(TracerName),
		metrics: metrics,
	}, nil
}

// StartRun opens a span for an entire pipeline run and counts it.
func (pt *PipelineTracer) StartRun(ctx context.Context, mode string, rows, columns int) (context.Context, trace.Span) {
	if pt == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	ctx, span := pt.tracer.Start(ctx, fmt.Sprintf("pipeline.run.%s", mode),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("pipeline.mode", mode),
			attribute.Int("pipeline.rows", rows),
			attribute.Int("pipeline.columns", columns),
		),
	)

	pt.metrics.PipelineRunsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("mode", mode)))
	pt.metrics.RowsProcessed.Add(ctx, int64(rows),
		metric.WithAttributes(attribute.String("mode", mode)))

	return ctx, span
}

// EndRun records the run outcome on the span and the duration histogram.
func (pt *PipelineTracer) EndRun(ctx context.Context, span trace.Span, mode string, duration time.Duration, err error) {
	if pt == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		pt.metrics.PipelineErrors.Add(ctx, 1,
			metric.WithAttributes(attribute.String("mode", mode)))
	}

	pt.metrics.PipelineRunDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("mode", mode),
			attribute.String("status", status),
		))
}

// StartStage opens a span for one pipeline stage.
func (pt *PipelineTracer) StartStage(ctx context.Context, mode, stage string) (context.Context, trace.Span) {
	if pt == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	return pt.tracer.Start(ctx, fmt.Sprintf("pipeline.stage.%s", stage),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("pipeline.mode", mode),
			attribute.String("stage.name", stage),
		),
	)
}

// EndStage closes a stage span and records its duration.
func (pt *PipelineTracer) EndStage(ctx context.Context, span trace.Span, mode, stage string, duration time.Duration, err error) {
	if pt == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	pt.metrics.StageDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("mode", mode),
			attribute.String("stage", stage),
			attribute.String("status", status),
		))
}

// RecordFallback counts a transform-time median fallback for a column.
func (pt *PipelineTracer) RecordFallback(ctx context.Context, column string) {
	if pt == nil {
		return
	}

	pt.metrics.ImputationFallbacksTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("column", column)))

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("pipeline.imputation_fallback",
			trace.WithAttributes(attribute.String("column", column)))
	}
}
