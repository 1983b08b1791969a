package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/blackwell-systems/cceval/internal/analyzer"
	"github.com/blackwell-systems/cceval/internal/score"
)

func testReport(t *testing.T) *score.Report {
	t.Helper()
	r, err := score.Assemble(score.Inputs{
		Completion:     analyzer.CompletionVerdict{FirstCompleted: true, TurnIndex: -1},
		Timing:         analyzer.TimingMetrics{FirstResponseLatency: time.Second, LatencyDefined: true, ResponseTurns: 1},
		Interactions:   analyzer.InteractionCount{Count: 1},
		Quality:        analyzer.AggregateQuality(nil),
		CompletionRate: 100,
	}, score.DefaultWeights(), score.DefaultThresholds(), score.Meta{SessionID: "s1", ProjectPath: "/app"})
	require.NoError(t, err)
	return r
}

func TestExporter_RecordsReport(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	e, err := newExporter(reader, nil)
	require.NoError(t, err)
	defer e.Close(context.Background())

	ctx := context.Background()
	require.NoError(t, e.Observe(ctx, testReport(t)))
	require.NoError(t, e.Observe(ctx, testReport(t)))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	count, ok := byName["cceval_evaluations_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, count.DataPoints, 1)
	assert.Equal(t, int64(2), count.DataPoints[0].Value)

	overall, ok := byName["cceval_overall_score"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, overall.DataPoints, 1)
	assert.Equal(t, uint64(2), overall.DataPoints[0].Count)

	dims, ok := byName["cceval_dimension_score"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, dims.DataPoints, len(score.Dimensions))
}

func TestNew_DisabledIsNoOp(t *testing.T) {
	rec, err := New(context.Background(), Config{}, "test")
	require.NoError(t, err)
	assert.IsType(t, NoOp{}, rec)
	assert.NoError(t, rec.Observe(context.Background(), testReport(t)))
	assert.NoError(t, rec.Close(context.Background()))
}

func TestNewExporter_RequiresEndpoint(t *testing.T) {
	_, err := NewExporter(context.Background(), Config{Enabled: true}, "test")
	assert.ErrorIs(t, err, ErrDisabled)
}
