package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailetl/internal/config"
)

func testTelemetryConfig() config.TelemetryConfig {
	return config.TelemetryConfig{
		ServiceName:    "retail-etl-test",
		TraceExporter:  "none",
		MetricsEnabled: true,
	}
}

func TestInitializeOTel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	providers, err := InitializeOTel(testTelemetryConfig(), logger)
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.Nil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.MetricsHandler)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestInitializeOTel_UnsupportedExporter(t *testing.T) {
	cfg := testTelemetryConfig()
	cfg.TraceExporter = "jaeger"

	_, err := InitializeOTel(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorContains(t, err, "unsupported trace exporter")
}

func TestBusinessMetrics_ExposedOnMetricsHandler(t *testing.T) {
	providers, err := InitializeOTel(testTelemetryConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	RecordPipelineRun(ctx, metrics, "", 150*time.Millisecond)
	RecordPipelineRun(ctx, metrics, "SCHEMA", 2*time.Millisecond)
	RecordInputRows(ctx, metrics, "sales", 42)
	RecordGridSize(ctx, metrics, 90, true)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	providers.MetricsHandler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "etl_pipeline_runs_total")
	assert.Contains(t, body, `error_kind="SCHEMA"`)
	assert.Contains(t, body, "etl_input_rows_total")
	assert.Contains(t, body, "go_goroutines")
}

func TestRecordHelpers_NilMetrics(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		RecordPipelineRun(ctx, nil, "", time.Second)
		RecordStageDuration(ctx, nil, "aggregate", time.Second)
		RecordInputRows(ctx, nil, "sales", 1)
		RecordGridSize(ctx, nil, 1, false)
		RecordActiveRunChange(ctx, nil, 1)
		RecordOutputBytes(ctx, nil, 1)
		RecordSystemError(ctx, nil, "x", "y")
	})
}

func TestNoopProviders(t *testing.T) {
	providers := NoopProviders(nil)
	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	_, span := providers.Tracer.Start(context.Background(), "noop")
	defer span.End()
	assert.False(t, span.IsRecording())
	assert.NotPanics(t, func() { RecordGridSize(context.Background(), metrics, 3, false) })
}
