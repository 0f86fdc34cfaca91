package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruralhealth-lab/disparity-cli/internal/analysis"
	"github.com/ruralhealth-lab/disparity-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteRunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "/data/brfss.csv", "ml")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	err = s.CompleteRun(ctx, run.ID, RunSummary{
		Records: 1000, StrataTotal: 52, StrataFailed: 3, ResultRows: 245,
	})
	require.NoError(t, err)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, "/data/brfss.csv", got.InputPath)
	assert.Equal(t, "ml", got.Estimator)
	assert.Equal(t, 52, got.StrataTotal)
	assert.Equal(t, 3, got.StrataFailed)
	assert.Equal(t, 245, got.ResultRows)
	assert.Empty(t, got.Error)
}

func TestSQLiteFailRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "/data/brfss.csv", "ml")
	require.NoError(t, err)

	require.NoError(t, s.FailRun(ctx, run.ID, "input file unreadable"))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "input file unreadable", got.Error)

	// Updating an unknown run is an error, not a silent no-op.
	assert.Error(t, s.FailRun(ctx, "no-such-run", "x"))
	assert.Error(t, s.CompleteRun(ctx, "no-such-run", RunSummary{}))
}

func TestSQLiteListRuns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	r1, err := s.CreateRun(ctx, "/data/a.csv", "ml")
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, "/data/b.csv", "gee")
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, r1.ID, RunSummary{}))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	complete, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, r1.ID, complete[0].ID)
}

func TestSQLiteSaveAndGetResults(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "/data/brfss.csv", "ml")
	require.NoError(t, err)

	rows := []model.ResultRow{
		{
			StratumCode: 0, StratumName: "Nationwide", Model: "model1",
			Term: "rural", Coef: 0.4, OR: 1.4918, CILower: 1.2263,
			CIUpper: 1.8148, PValue: 0.0002, Sig: "***",
			ORDisplay: "1.49 (***)", CIDisplay: "(1.23–1.81)", N: 1200,
		},
		{
			StratumCode: 26, StratumName: "Michigan", Model: "model1",
			Term: "rural", Coef: 0.1, OR: 1.1052, CILower: 0.9,
			CIUpper: 1.35, PValue: 0.31, ORDisplay: "1.11",
			CIDisplay: "(0.90–1.35)", N: 400,
		},
	}
	require.NoError(t, s.SaveResults(ctx, run.ID, rows))

	got, err := s.GetResults(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	// Saving again replaces, never duplicates.
	rows[0].OR = 1.5
	require.NoError(t, s.SaveResults(ctx, run.ID, rows))
	got, err = s.GetResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 1.5, got[0].OR, 1e-12)
}

func TestSQLiteSaveFailures(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "/data/brfss.csv", "ml")
	require.NoError(t, err)

	failures := []analysis.Failure{
		{StratumCode: 55, StratumName: "Wisconsin", Model: "model1", Reason: "rural sample below minimum"},
		{StratumCode: 55, StratumName: "Wisconsin", Model: "model2", Reason: "rural sample below minimum"},
	}
	require.NoError(t, s.SaveFailures(ctx, run.ID, failures))
	require.NoError(t, s.SaveFailures(ctx, run.ID, failures[:1]))

	var count int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fit_failures WHERE run_id = ?`, run.ID,
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
