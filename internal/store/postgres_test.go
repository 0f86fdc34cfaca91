package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruralhealth-lab/disparity-cli/internal/analysis"
	"github.com/ruralhealth-lab/disparity-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "running", "/data/brfss.csv", "ml", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "/data/brfss.csv", "ml")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("complete", 0, 0, 0, 0, pgxmock.AnyArg(), "nonexistent-run").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteRun(context.Background(), "nonexistent-run", RunSummary{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, status, input_path, estimator`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "status", "input_path", "estimator", "records",
			"strata_total", "strata_failed", "result_rows", "error",
			"created_at", "updated_at",
		}).AddRow("run-1", "complete", "/data/brfss.csv", "ml", 1000, 52, 3, 245, (*string)(nil), now, now))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, 52, run.StrataTotal)
	assert.Empty(t, run.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, status, input_path, estimator`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveResults_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_result_rows"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_result_rows"}, resultColumns).
		WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "result_rows" .+ ON CONFLICT`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	rows := []model.ResultRow{{
		StratumCode: 0, StratumName: "Nationwide", Model: "model1",
		Term: "rural", Coef: 0.4, OR: 1.49, CILower: 1.23, CIUpper: 1.81,
		PValue: 0.0002, Sig: "***", ORDisplay: "1.49 (***)",
		CIDisplay: "(1.23–1.81)", N: 1200,
	}}
	require.NoError(t, s.SaveResults(context.Background(), "run-1", rows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveFailures(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM fit_failures`).
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCopyFrom(pgx.Identifier{"fit_failures"},
		[]string{"run_id", "stratum_code", "stratum_name", "model_label", "reason"}).
		WillReturnResult(1)

	failures := []analysis.Failure{
		{StratumCode: 55, StratumName: "Wisconsin", Model: "model1", Reason: "rural sample below minimum"},
	}
	require.NoError(t, s.SaveFailures(context.Background(), "run-1", failures))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetResults_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT stratum_code, stratum_name, model_label`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"stratum_code", "stratum_name", "model_label", "covariate_name",
			"coefficient", "odds_ratio", "ci_lower", "ci_upper", "p_value",
			"significance_tier", "or_display_string", "ci_display_string", "n",
		}))

	rows, err := s.GetResults(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
