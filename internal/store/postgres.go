package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/ruralhealth-lab/disparity-cli/internal/analysis"
	"github.com/ruralhealth-lab/disparity-cli/internal/db"
	"github.com/ruralhealth-lab/disparity-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":   `INSERT INTO runs (id, status, input_path, estimator, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"complete_run": `UPDATE runs SET status = $1, records = $2, strata_total = $3, strata_failed = $4, result_rows = $5, updated_at = $6 WHERE id = $7`,
	"fail_run":     `UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
	"get_run":      `SELECT id, status, input_path, estimator, records, strata_total, strata_failed, result_rows, error, created_at, updated_at FROM runs WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	status        TEXT NOT NULL DEFAULT 'running',
	input_path    TEXT NOT NULL,
	estimator     TEXT NOT NULL,
	records       INTEGER NOT NULL DEFAULT 0,
	strata_total  INTEGER NOT NULL DEFAULT 0,
	strata_failed INTEGER NOT NULL DEFAULT 0,
	result_rows   INTEGER NOT NULL DEFAULT 0,
	error         TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS result_rows (
	run_id            TEXT NOT NULL REFERENCES runs(id),
	stratum_code      INTEGER NOT NULL,
	stratum_name      TEXT NOT NULL,
	model_label       TEXT NOT NULL,
	covariate_name    TEXT NOT NULL,
	coefficient       DOUBLE PRECISION NOT NULL,
	odds_ratio        DOUBLE PRECISION NOT NULL,
	ci_lower          DOUBLE PRECISION NOT NULL,
	ci_upper          DOUBLE PRECISION NOT NULL,
	p_value           DOUBLE PRECISION NOT NULL,
	significance_tier TEXT NOT NULL,
	or_display_string TEXT NOT NULL,
	ci_display_string TEXT NOT NULL,
	n                 INTEGER NOT NULL,
	PRIMARY KEY (run_id, stratum_code, model_label, covariate_name)
);

CREATE TABLE IF NOT EXISTS fit_failures (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	stratum_code INTEGER NOT NULL,
	stratum_name TEXT NOT NULL,
	model_label  TEXT NOT NULL,
	reason       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_result_rows_run_id ON result_rows(run_id);
CREATE INDEX IF NOT EXISTS idx_fit_failures_run_id ON fit_failures(run_id);
`

// resultColumns is the column order used for bulk-loading result_rows.
var resultColumns = []string{
	"run_id", "stratum_code", "stratum_name", "model_label", "covariate_name",
	"coefficient", "odds_ratio", "ci_lower", "ci_upper", "p_value",
	"significance_tier", "or_display_string", "ci_display_string", "n",
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, inputPath, estimator string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, status, input_path, estimator, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, string(model.RunStatusRunning), inputPath, estimator, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Status:    model.RunStatusRunning,
		InputPath: inputPath,
		Estimator: estimator,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary RunSummary) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, records = $2, strata_total = $3, strata_failed = $4, result_rows = $5, updated_at = $6 WHERE id = $7`,
		string(model.RunStatusComplete), summary.Records, summary.StrataTotal,
		summary.StrataFailed, summary.ResultRows, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), reason, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	var errMsg *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, status, input_path, estimator, records, strata_total, strata_failed, result_rows, error, created_at, updated_at
		 FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.Status, &r.InputPath, &r.Estimator,
		&r.Records, &r.StrataTotal, &r.StrataFailed, &r.ResultRows,
		&errMsg, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	if errMsg != nil {
		r.Error = *errMsg
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, input_path, estimator, records, strata_total, strata_failed, result_rows, error, created_at, updated_at
	          FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var errMsg *string
		if err := rows.Scan(&r.ID, &r.Status, &r.InputPath, &r.Estimator,
			&r.Records, &r.StrataTotal, &r.StrataFailed, &r.ResultRows,
			&errMsg, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if errMsg != nil {
			r.Error = *errMsg
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// SaveResults bulk-upserts the long table, so re-saving a run is idempotent.
func (s *PostgresStore) SaveResults(ctx context.Context, runID string, rows []model.ResultRow) error {
	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, []any{
			runID, row.StratumCode, row.StratumName, row.Model, row.Term,
			row.Coef, row.OR, row.CILower, row.CIUpper, row.PValue,
			row.Sig, row.ORDisplay, row.CIDisplay, row.N,
		})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "result_rows",
		Columns:      resultColumns,
		ConflictKeys: []string{"run_id", "stratum_code", "model_label", "covariate_name"},
	}, values)
	return err
}

func (s *PostgresStore) SaveFailures(ctx context.Context, runID string, failures []analysis.Failure) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM fit_failures WHERE run_id = $1`, runID); err != nil {
		return eris.Wrapf(err, "postgres: clear failures for run %s", runID)
	}

	values := make([][]any, 0, len(failures))
	for _, f := range failures {
		values = append(values, []any{runID, f.StratumCode, f.StratumName, f.Model, f.Reason})
	}
	_, err := db.CopyFrom(ctx, s.pool, "fit_failures",
		[]string{"run_id", "stratum_code", "stratum_name", "model_label", "reason"}, values)
	return err
}

func (s *PostgresStore) GetResults(ctx context.Context, runID string) ([]model.ResultRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT stratum_code, stratum_name, model_label, covariate_name,
		        coefficient, odds_ratio, ci_lower, ci_upper, p_value,
		        significance_tier, or_display_string, ci_display_string, n
		 FROM result_rows WHERE run_id = $1
		 ORDER BY stratum_code, model_label, covariate_name`,
		runID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get results for run %s", runID)
	}
	defer rows.Close()

	var out []model.ResultRow
	for rows.Next() {
		var r model.ResultRow
		if err := rows.Scan(&r.StratumCode, &r.StratumName, &r.Model, &r.Term,
			&r.Coef, &r.OR, &r.CILower, &r.CIUpper, &r.PValue,
			&r.Sig, &r.ORDisplay, &r.CIDisplay, &r.N); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: get results iterate")
}
