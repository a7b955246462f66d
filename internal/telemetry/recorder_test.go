package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/BaSui01/rsimage/image"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, agg metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := agg.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", agg)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRecorder_RecordsImageEvents(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	rec, err := NewRecorderWithMeter(mp.Meter(instrumentationName))
	require.NoError(t, err)

	ctx := context.Background()
	rec.RecordAttempt(ctx, "/generate", image.OutcomeNotFound, 20*time.Millisecond)
	rec.RecordAttempt(ctx, "/images", image.OutcomeTaskQueued, 80*time.Millisecond)
	rec.RecordPoll(ctx, image.OutcomePending)
	rec.RecordPoll(ctx, image.OutcomeSuccess)
	rec.RecordPoll(ctx, image.OutcomeSuccess)
	rec.RecordGeneration(ctx, image.KindTaskBased, image.OutcomeSuccess, 4*time.Second)

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, data["image.attempt.total"]))
	assert.Equal(t, int64(3), sumOf(t, data["image.poll.total"]))
	assert.Equal(t, int64(1), sumOf(t, data["image.generation.total"]))

	hist, ok := data["image.generation.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 4.0, hist.DataPoints[0].Sum, 1e-9)
}

func TestNewRecorder_GlobalNoop(t *testing.T) {
	rec, err := NewRecorder()
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		rec.RecordGeneration(context.Background(), image.KindGeneric, image.OutcomeFailed, time.Second)
	})
}
