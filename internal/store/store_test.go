package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/cceval/internal/analyzer"
	"github.com/blackwell-systems/cceval/internal/score"
)

func newReport(t *testing.T, sessionID string, at time.Time, completed bool) *score.Report {
	t.Helper()
	r, err := score.Assemble(score.Inputs{
		Completion:     analyzer.CompletionVerdict{FirstCompleted: completed, Provenance: analyzer.ProvenanceHeuristic, TurnIndex: -1},
		Timing:         analyzer.TimingMetrics{FirstResponseLatency: 3 * time.Second, LatencyDefined: true, ResponseTurns: 1},
		Interactions:   analyzer.InteractionCount{Count: 2},
		Quality:        analyzer.AggregateQuality(nil),
		CompletionRate: 100,
	}, score.DefaultWeights(), score.DefaultThresholds(), score.Meta{SessionID: sessionID, ProjectPath: "/app", Now: at})
	require.NoError(t, err)
	return r
}

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestInsertAndList(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first := newReport(t, "s1", base, true)
	second := newReport(t, "s1", base.Add(time.Hour), false)
	other := newReport(t, "s2", base.Add(30*time.Minute), true)
	for _, r := range []*score.Report{first, second, other} {
		require.NoError(t, db.InsertEvaluation(ctx, r))
	}

	all, err := db.ListEvaluations(ctx, 0, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{second.ID, other.ID, first.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	s1, err := db.ListEvaluations(ctx, 0, "s1")
	require.NoError(t, err)
	require.Len(t, s1, 2)
	assert.False(t, s1[0].FirstCompleted)
	assert.Equal(t, 2, s1[0].Prompts)

	limited, err := db.ListEvaluations(ctx, 1, "")
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, second.ID, limited[0].ID)
}

func TestGetEvaluation_RoundTripsReport(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	r := newReport(t, "s1", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), true)
	require.NoError(t, db.Observe(ctx, r))

	got, err := db.GetEvaluation(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, r.Grade(), got.Grade)
	assert.True(t, got.GeneratedAt.Equal(r.GeneratedAt))
	require.NotNil(t, got.Report)
	assert.Equal(t, r.Dimensions, got.Report.Dimensions)
	assert.Equal(t, r.Timing, got.Report.Timing)
	assert.InDelta(t, r.Overall, got.Overall, 1e-9)
}

func TestGetEvaluation_Missing(t *testing.T) {
	db := openTest(t)
	got, err := db.GetEvaluation(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	latest, err := db.LatestForSession(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestInsertEvaluation_DuplicateRejected(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	r := newReport(t, "s1", time.Now().UTC(), true)
	require.NoError(t, db.InsertEvaluation(ctx, r))
	assert.Error(t, db.InsertEvaluation(ctx, r))
}

func TestOpen_SQLiteFileMigratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	db, err := Open(DriverSQLite, path)
	require.NoError(t, err)
	require.NoError(t, db.InsertEvaluation(context.Background(), newReport(t, "s1", time.Now().UTC(), true)))
	require.NoError(t, db.Close())

	db, err = Open("", path)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, DriverSQLite, db.Driver())

	list, err := db.ListEvaluations(context.Background(), 0, "")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("postgres", "x")
	assert.ErrorContains(t, err, "postgres")
}
