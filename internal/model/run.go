package model

import "time"

// RunStatus represents the current state of an analysis run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run represents one execution of the fit pipeline.
type Run struct {
	ID           string    `json:"id"`
	Status       RunStatus `json:"status"`
	InputPath    string    `json:"input_path"`
	Estimator    string    `json:"estimator"`
	Records      int       `json:"records"`
	StrataTotal  int       `json:"strata_total"`
	StrataFailed int       `json:"strata_failed"`
	ResultRows   int       `json:"result_rows"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
