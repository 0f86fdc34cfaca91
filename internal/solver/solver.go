// Package solver binds the pipeline to its statistical estimation backends.
// Maximum-likelihood logistic fits are delegated to
// github.com/kshedden/statmodel/glm; this package adds the design-based
// (stratified, cluster-robust) covariance around those fits and a GEE
// alternative used when the primary fit fails to converge.
package solver

import (
	"math"

	"github.com/rotisserie/eris"
)

// InterceptName is the design column holding the constant 1 regressor.
const InterceptName = "icept"

// Design is one ready-to-fit design matrix in column-major form, with the
// survey design variables attached.
type Design struct {
	Names    []string    // predictor names, including InterceptName
	Cols     [][]float64 // one slice per predictor, aligned with Names
	Y        []float64   // binary outcome
	Weights  []float64   // sampling weights
	Strata   []string    // variance stratum id per observation
	Clusters []string    // primary sampling unit id per observation
}

// N returns the number of observations.
func (d *Design) N() int { return len(d.Y) }

// Term is one estimated coefficient with its cluster-robust inference.
type Term struct {
	Name string
	Coef float64
	SE   float64
	Z    float64
	P    float64
}

// Result is the output of fitting one model to one design.
type Result struct {
	Terms     []Term
	Converged bool
	N         int
	Method    string // "ml" or "gee"
}

// Solver fits a logistic regression to a design and returns per-term
// estimates with design-based standard errors.
type Solver interface {
	Fit(d *Design) (*Result, error)
}

// Check validates that the design is estimable: consistent lengths, at least
// two distinct clusters for the robust covariance, and no constant predictor
// column besides the intercept.
func (d *Design) Check() error {
	n := d.N()
	if n == 0 {
		return eris.New("solver: empty design")
	}
	if len(d.Names) != len(d.Cols) {
		return eris.Errorf("solver: %d names for %d columns", len(d.Names), len(d.Cols))
	}
	for i, col := range d.Cols {
		if len(col) != n {
			return eris.Errorf("solver: column %s has %d values for %d observations", d.Names[i], len(col), n)
		}
	}
	if len(d.Weights) != n || len(d.Strata) != n || len(d.Clusters) != n {
		return eris.New("solver: design variables not aligned with observations")
	}

	clusters := make(map[string]struct{})
	for _, c := range d.Clusters {
		clusters[c] = struct{}{}
	}
	if len(clusters) < 2 {
		return eris.Errorf("solver: clustering variable is constant (%d distinct PSU)", len(clusters))
	}

	for i, col := range d.Cols {
		if d.Names[i] == InterceptName {
			continue
		}
		if constant(col) {
			return eris.Errorf("solver: predictor %s is constant", d.Names[i])
		}
	}
	return nil
}

func constant(col []float64) bool {
	for _, v := range col[1:] {
		if v != col[0] {
			return false
		}
	}
	return true
}

// logistic is the inverse logit link.
func logistic(eta float64) float64 {
	return 1 / (1 + math.Exp(-eta))
}

// linearPredictor computes eta for every observation given coefficients
// aligned with the design columns.
func linearPredictor(d *Design, coef []float64) []float64 {
	eta := make([]float64, d.N())
	for j, col := range d.Cols {
		b := coef[j]
		for i, x := range col {
			eta[i] += b * x
		}
	}
	return eta
}
