package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ruralhealth-lab/disparity-cli/internal/analysis"
	"github.com/ruralhealth-lab/disparity-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	status        TEXT NOT NULL DEFAULT 'running',
	input_path    TEXT NOT NULL,
	estimator     TEXT NOT NULL,
	records       INTEGER NOT NULL DEFAULT 0,
	strata_total  INTEGER NOT NULL DEFAULT 0,
	strata_failed INTEGER NOT NULL DEFAULT 0,
	result_rows   INTEGER NOT NULL DEFAULT 0,
	error         TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS result_rows (
	run_id            TEXT NOT NULL REFERENCES runs(id),
	stratum_code      INTEGER NOT NULL,
	stratum_name      TEXT NOT NULL,
	model_label       TEXT NOT NULL,
	covariate_name    TEXT NOT NULL,
	coefficient       REAL NOT NULL,
	odds_ratio        REAL NOT NULL,
	ci_lower          REAL NOT NULL,
	ci_upper          REAL NOT NULL,
	p_value           REAL NOT NULL,
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

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, inputPath, estimator string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, input_path, estimator, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(model.RunStatusRunning), inputPath, estimator, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary RunSummary) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, records = ?, strata_total = ?, strata_failed = ?, result_rows = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), summary.Records, summary.StrataTotal,
		summary.StrataFailed, summary.ResultRows, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), reason, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, input_path, estimator, records, strata_total, strata_failed, result_rows, error, created_at, updated_at
		 FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, input_path, estimator, records, strata_total, strata_failed, result_rows, error, created_at, updated_at
	          FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveResults(ctx context.Context, runID string, rows []model.ResultRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save results")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM result_rows WHERE run_id = ?`, runID); err != nil {
		return eris.Wrapf(err, "sqlite: clear results for run %s", runID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO result_rows
		 (run_id, stratum_code, stratum_name, model_label, covariate_name,
		  coefficient, odds_ratio, ci_lower, ci_upper, p_value,
		  significance_tier, or_display_string, ci_display_string, n)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert result row")
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.ExecContext(ctx,
			runID, row.StratumCode, row.StratumName, row.Model, row.Term,
			row.Coef, row.OR, row.CILower, row.CIUpper, row.PValue,
			row.Sig, row.ORDisplay, row.CIDisplay, row.N,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert result row for run %s", runID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save results")
}

func (s *SQLiteStore) SaveFailures(ctx context.Context, runID string, failures []analysis.Failure) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save failures")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fit_failures WHERE run_id = ?`, runID); err != nil {
		return eris.Wrapf(err, "sqlite: clear failures for run %s", runID)
	}
	for _, f := range failures {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO fit_failures (run_id, stratum_code, stratum_name, model_label, reason) VALUES (?, ?, ?, ?, ?)`,
			runID, f.StratumCode, f.StratumName, f.Model, f.Reason,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert failure for run %s", runID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save failures")
}

func (s *SQLiteStore) GetResults(ctx context.Context, runID string) ([]model.ResultRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stratum_code, stratum_name, model_label, covariate_name,
		        coefficient, odds_ratio, ci_lower, ci_upper, p_value,
		        significance_tier, or_display_string, ci_display_string, n
		 FROM result_rows WHERE run_id = ?
		 ORDER BY stratum_code, model_label, covariate_name`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get results for run %s", runID)
	}
	defer rows.Close()

	var out []model.ResultRow
	for rows.Next() {
		var r model.ResultRow
		if err := rows.Scan(&r.StratumCode, &r.StratumName, &r.Model, &r.Term,
			&r.Coef, &r.OR, &r.CILower, &r.CIUpper, &r.PValue,
			&r.Sig, &r.ORDisplay, &r.CIDisplay, &r.N); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: get results iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var errMsg sql.NullString

	err := row.Scan(&r.ID, &r.Status, &r.InputPath, &r.Estimator,
		&r.Records, &r.StrataTotal, &r.StrataFailed, &r.ResultRows,
		&errMsg, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if errMsg.Valid {
		r.Error = errMsg.String
	}
	return &r, nil
}
