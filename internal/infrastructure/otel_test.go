package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newOTelTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestInitializeOTel_Prometheus is the only test that enables the Prometheus
// exporter. It registers a collector in the process global registry, so one
// registration per test binary keeps the endpoint gatherable.
func TestInitializeOTel_Prometheus(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "test-service",
		ServiceVersion: "v1.0.0",
		Environment:    "test",
		TraceExporter:  "none",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  true,
		SampleRatio:    1.0,
	}, newOTelTestLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	// Tracing export is off, yet the tracer must still be usable
	assert.Nil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)

	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestInitializeOTel_DisabledExporters(t *testing.T) {
	tests := []struct {
		name   string
		config *OTelConfig
	}{
		{
			name: "exporters none",
			config: &OTelConfig{
				ServiceName:    "test-service",
				ServiceVersion: "v1.0.0",
				Environment:    "test",
				TraceExporter:  "none",
				MetricExporter: "none",
				EnableMetrics:  true,
				EnableTracing:  true,
				SampleRatio:    1.0,
			},
		},
		{
			name: "tracing and metrics disabled",
			config: &OTelConfig{
				ServiceName:    "test-service",
				ServiceVersion: "v1.0.0",
				Environment:    "test",
				TraceExporter:  "stdout",
				MetricExporter: "prometheus",
				EnableMetrics:  false,
				EnableTracing:  false,
				SampleRatio:    0.0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := InitializeOTel(tt.config, newOTelTestLogger())
			require.NoError(t, err)
			require.NotNil(t, providers)

			// No SDK providers, but instruments and spans must not need
			// nil checks at call sites
			assert.Nil(t, providers.TracerProvider)
			assert.Nil(t, providers.MeterProvider)
			assert.Nil(t, providers.PrometheusHTTP)
			assert.NotNil(t, providers.Tracer)
			assert.NotNil(t, providers.Meter)

			metrics, err := CreatePipelineMetrics(providers.Meter)
			require.NoError(t, err)
			assert.NotNil(t, metrics)

			assert.NoError(t, providers.Shutdown(context.Background()))
		})
	}
}

func TestInitializeOTel_UnsupportedExporter(t *testing.T) {
	_, err := InitializeOTel(&OTelConfig{
		ServiceName:    "test-service",
		ServiceVersion: "v1.0.0",
		Environment:    "test",
		TraceExporter:  "jaeger",
		MetricExporter: "none",
		EnableTracing:  true,
		SampleRatio:    1.0,
	}, newOTelTestLogger())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported trace exporter")
}

func TestDefaultOTelConfig(t *testing.T) {
	t.Run("environment variables override exporters", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "staging")
		t.Setenv("OTEL_TRACES_EXPORTER", "none")
		t.Setenv("OTEL_METRICS_EXPORTER", "none")

		cfg := DefaultOTelConfig()

		assert.Equal(t, "staging", cfg.Environment)
		assert.Equal(t, "none", cfg.TraceExporter)
		assert.Equal(t, "none", cfg.MetricExporter)
	})

	t.Run("defaults without environment", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "")
		t.Setenv("OTEL_TRACES_EXPORTER", "")
		t.Setenv("OTEL_METRICS_EXPORTER", "")

		cfg := DefaultOTelConfig()

		assert.Equal(t, "development", cfg.Environment)
		assert.Equal(t, "stdout", cfg.TraceExporter)
		assert.Equal(t, "prometheus", cfg.MetricExporter)
		assert.Equal(t, ServiceName, cfg.ServiceName)
		assert.True(t, cfg.EnableTracing)
		assert.True(t, cfg.EnableMetrics)
	})
}

func TestCreatePipelineMetrics(t *testing.T) {
	metrics, err := CreatePipelineMetrics(metricnoop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	require.NotNil(t, metrics)

	assert.NotNil(t, metrics.HTTPRequestsTotal)
	assert.NotNil(t, metrics.HTTPRequestDuration)
	assert.NotNil(t, metrics.HTTPActiveRequests)

	assert.NotNil(t, metrics.PipelineRunsTotal)
	assert.NotNil(t, metrics.PipelineRunDuration)
	assert.NotNil(t, metrics.PipelineErrors)
	assert.NotNil(t, metrics.StageDuration)
	assert.NotNil(t, metrics.RowsProcessed)
	assert.NotNil(t, metrics.ImputationFallbacksTotal)

	assert.NotNil(t, metrics.ArtifactsSavedTotal)
	assert.NotNil(t, metrics.ArtifactsLoadedTotal)

	assert.NotNil(t, metrics.SystemErrors)
}

func TestTraceHelpers(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	tracer := tp.Tracer("otel-helpers-test")

	t.Run("trace id extraction", func(t *testing.T) {
		ctx, span := tracer.Start(context.Background(), "correlation")
		defer span.End()

		traceID := TraceIDFromContext(ctx)
		assert.Equal(t, span.SpanContext().TraceID().String(), traceID)
	})

	t.Run("no span means empty trace id", func(t *testing.T) {
		assert.Empty(t, TraceIDFromContext(context.Background()))
	})

	t.Run("span events carry typed attributes", func(t *testing.T) {
		exporter.Reset()

		ctx, span := tracer.Start(context.Background(), "with-events")
		AddSpanEvent(ctx, "dataset.loaded", map[string]interface{}{
			"path":    "train.csv",
			"rows":    42,
			"ratio":   0.5,
			"sampled": true,
		})
		span.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		require.Len(t, spans[0].Events, 1)
		assert.Equal(t, "dataset.loaded", spans[0].Events[0].Name)
		assert.Len(t, spans[0].Events[0].Attributes, 4)
	})

	t.Run("record error sets status", func(t *testing.T) {
		exporter.Reset()

		ctx, span := tracer.Start(context.Background(), "with-error")
		RecordError(ctx, errors.New("column vanished"))
		span.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status.Code)
		assert.Equal(t, "column vanished", spans[0].Status.Description)

		require.Len(t, spans[0].Events, 1)
		assert.Equal(t, "exception", spans[0].Events[0].Name)
	})

	t.Run("helpers are no-ops without a recording span", func(t *testing.T) {
		AddSpanEvent(context.Background(), "ignored", nil)
		RecordError(context.Background(), errors.New("ignored"))
	})
}

func TestRecordArtifactCounters(t *testing.T) {
	ctx := context.Background()

	// Nil metrics must be tolerated
	RecordArtifactSaved(ctx, nil)
	RecordArtifactLoaded(ctx, nil)

	metrics, err := CreatePipelineMetrics(metricnoop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	RecordArtifactSaved(ctx, metrics)
	RecordArtifactLoaded(ctx, metrics)
}
