// Package store persists analysis runs and their result tables. Two backends
// are provided: SQLite for single-machine use and PostgreSQL for shared
// deployments.
package store

import (
	"context"

	"github.com/ruralhealth-lab/disparity-cli/internal/analysis"
	"github.com/ruralhealth-lab/disparity-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// RunSummary carries the counters recorded when a run completes.
type RunSummary struct {
	Records      int `json:"records"`
	StrataTotal  int `json:"strata_total"`
	StrataFailed int `json:"strata_failed"`
	ResultRows   int `json:"result_rows"`
}

// Store defines the persistence interface for the fit pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, inputPath, estimator string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, summary RunSummary) error
	FailRun(ctx context.Context, runID string, reason string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Results
	SaveResults(ctx context.Context, runID string, rows []model.ResultRow) error
	SaveFailures(ctx context.Context, runID string, failures []analysis.Failure) error
	GetResults(ctx context.Context, runID string) ([]model.ResultRow, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
