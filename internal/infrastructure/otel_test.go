package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txanomaly/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestOTelInitialization tests OpenTelemetry initialization
func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(nil, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.Nil(t, providers.TracerProvider, "tracing is off by default")
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Registry)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelDisabled(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.EnableMetrics = false
	cfg.EnableTracing = false

	providers, err := InitializeOTel(cfg, discardLogger())
	require.NoError(t, err)
	assert.Nil(t, providers.Registry)
	assert.Nil(t, providers.MeterProvider)

	metrics, err := CreatePipelineMetrics(providers.Meter)
	require.NoError(t, err)
	RecordStep(context.Background(), metrics, "run", "load", time.Second, nil)

	assert.NoError(t, providers.WriteMetricsTextfile(filepath.Join(t.TempDir(), "m.prom")))
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestOTelConfiguration(t *testing.T) {
	tests := []struct {
		name      string
		exporter  string
		expectErr bool
	}{
		{"stdout exporter", "stdout", false},
		{"no exporter", "none", false},
		{"unsupported exporter", "jaeger", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultOTelConfig()
			cfg.EnableTracing = true
			cfg.EnableMetrics = false
			cfg.TraceExporter = tt.exporter
			cfg.TraceWriter = io.Discard

			providers, err := InitializeOTel(cfg, discardLogger())
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, providers.Shutdown(context.Background()))
		})
	}
}

func TestOTelConfigFromTelemetry(t *testing.T) {
	cfg := OTelConfigFromTelemetry(config.TelemetryConfig{
		EnableTracing: true,
		TraceExporter: "none",
		EnableMetrics: true,
		Environment:   "ci",
	})
	assert.Equal(t, ServiceName, cfg.ServiceName)
	assert.Equal(t, "ci", cfg.Environment)
	assert.Equal(t, "none", cfg.TraceExporter)
	assert.True(t, cfg.EnableTracing)
	assert.True(t, cfg.EnableMetrics)
	assert.Equal(t, 1.0, cfg.SampleRatio)
}

func TestSpansExported(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultOTelConfig()
	cfg.EnableTracing = true
	cfg.EnableMetrics = false
	cfg.TraceWriter = &buf

	providers, err := InitializeOTel(cfg, discardLogger())
	require.NoError(t, err)

	ctx, span := providers.Tracer.Start(context.Background(), "run-step")
	RecordError(ctx, errors.New("boom"))
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "run-step")
	assert.Contains(t, buf.String(), "boom")
}

func TestPipelineMetricsTextfile(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreatePipelineMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	RecordStep(ctx, metrics, "run-1", "load", 150*time.Millisecond, nil)
	RecordStep(ctx, metrics, "run-1", "detect", 2*time.Second, errors.New("degenerate"))
	RecordRunTotals(ctx, metrics, 1000, 12, 3)
	RecordRunTotals(ctx, nil, 1, 1, 1)

	path := filepath.Join(t.TempDir(), "txanomaly.prom")
	require.NoError(t, providers.WriteMetricsTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "txanomaly_step_duration_seconds")
	assert.Contains(t, text, "txanomaly_rows_processed_total")
	assert.Contains(t, text, "txanomaly_row_anomalies_total")
	assert.Contains(t, text, "txanomaly_hourly_anomalies_total")
	assert.Contains(t, text, "txanomaly_step_errors_total")
	assert.Contains(t, text, `step="detect"`)
}
