package solver

import (
	"math"

	"github.com/kshedden/statmodel/glm"
	"github.com/kshedden/statmodel/statmodel"
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	outcomeVar = "smoker"
	weightVar  = "_llcpwt"
)

// MLSolver fits a survey-weighted logistic regression by maximum likelihood
// via statmodel and replaces the model-based covariance with the stratified
// cluster linearization estimator.
type MLSolver struct{}

// Fit implements Solver.
func (MLSolver) Fit(d *Design) (*Result, error) {
	if err := d.Check(); err != nil {
		return nil, err
	}

	da := make([][]float64, 0, len(d.Cols)+2)
	names := make([]string, 0, len(d.Names)+2)
	da = append(da, d.Y)
	names = append(names, outcomeVar)
	for i, col := range d.Cols {
		da = append(da, col)
		names = append(names, d.Names[i])
	}
	da = append(da, d.Weights)
	names = append(names, weightVar)

	data := statmodel.NewDataset(da, names)

	config := glm.DefaultConfig()
	config.Family = glm.NewFamily(glm.BinomialFamily)
	config.WeightVar = weightVar

	m, err := glm.NewGLM(data, outcomeVar, d.Names, config)
	if err != nil {
		return nil, eris.Wrap(err, "solver: build glm")
	}

	fit := m.Fit()

	coef := fit.Params()
	if len(coef) != len(d.Names) {
		return nil, eris.Errorf("solver: glm returned %d coefficients for %d predictors", len(coef), len(d.Names))
	}
	for _, b := range coef {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return &Result{Converged: false, N: d.N(), Method: "ml"},
				eris.New("solver: glm produced non-finite coefficients")
		}
	}

	se, err := clusterSE(d, coef)
	if err != nil {
		return nil, err
	}

	return buildResult(d.Names, coef, se, d.N(), "ml"), nil
}

// buildResult assembles per-term Wald inference from coefficients and
// standard errors.
func buildResult(names []string, coef, se []float64, n int, method string) *Result {
	terms := make([]Term, len(names))
	for j, name := range names {
		z := coef[j] / se[j]
		terms[j] = Term{
			Name: name,
			Coef: coef[j],
			SE:   se[j],
			Z:    z,
			P:    2 * distuv.UnitNormal.Survival(math.Abs(z)),
		}
	}
	return &Result{Terms: terms, Converged: true, N: n, Method: method}
}
