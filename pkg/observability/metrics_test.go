package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/esmport/pkg/observability"
)

func setupTestMeter(t *testing.T) (*observability.MigrationMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	mm, err := observability.NewMigrationMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return mm, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

// sumByAttr returns the int64 sum data points of m keyed by the value of key.
func sumByAttr(t *testing.T, m *metricdata.Metrics, key string) map[string]int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", m.Name)

	out := map[string]int64{}

	for _, dp := range sum.DataPoints {
		v, found := dp.Attributes.Value(attribute.Key(key))
		require.True(t, found)

		out[v.AsString()] = dp.Value
	}

	return out
}

func TestMigrationMetrics_RecordFile(t *testing.T) {
	t.Parallel()

	mm, reader := setupTestMeter(t)
	ctx := context.Background()

	mm.RecordFile(ctx, "rewritten", time.Millisecond)
	mm.RecordFile(ctx, "rewritten", 2*time.Millisecond)
	mm.RecordFile(ctx, "manual", 0)

	rm := collectMetrics(t, reader)

	files := findMetric(rm, "esmport.files.total")
	require.NotNil(t, files, "esmport.files.total metric not found")
	assert.Equal(t, map[string]int64{"rewritten": 2, "manual": 1}, sumByAttr(t, files, "status"))

	duration := findMetric(rm, "esmport.file.duration.seconds")
	require.NotNil(t, duration, "esmport.file.duration.seconds metric not found")
}

func TestMigrationMetrics_RecordChangeAndError(t *testing.T) {
	t.Parallel()

	mm, reader := setupTestMeter(t)
	ctx := context.Background()

	mm.RecordChange(ctx, "native-binding")
	mm.RecordChange(ctx, "native-binding")
	mm.RecordChange(ctx, "lifecycle")
	mm.RecordError(ctx, "ValidationError")

	rm := collectMetrics(t, reader)

	changes := findMetric(rm, "esmport.changes.total")
	require.NotNil(t, changes)
	assert.Equal(t, map[string]int64{"native-binding": 2, "lifecycle": 1}, sumByAttr(t, changes, "class"))

	problems := findMetric(rm, "esmport.problems.total")
	require.NotNil(t, problems)
	assert.Equal(t, map[string]int64{"ValidationError": 1}, sumByAttr(t, problems, "kind"))
}

func TestMigrationMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var mm *observability.MigrationMetrics

	assert.NotPanics(t, func() {
		mm.RecordFile(context.Background(), "failed", time.Second)
		mm.RecordChange(context.Background(), "generic")
		mm.RecordError(context.Background(), "StructuralScanError")
	})
}

func TestNewMigrationMetrics_WithNoopMeter(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	mm, err := observability.NewMigrationMetrics(providers.Meter)
	require.NoError(t, err)
	assert.NotNil(t, mm)

	mm.RecordFile(context.Background(), "unchanged", time.Millisecond)
}
