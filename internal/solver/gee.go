package solver

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
)

// GEESolver fits a population-averaged logistic model by generalized
// estimating equations with an exchangeable working correlation, the
// alternate estimator for pooled samples where the ML fit fails to converge.
// No GEE solver exists in the Go ecosystem, so the estimating-equation
// update is composed from gonum linear algebra; the exchangeable working
// correlation is inverted in closed form so cluster size never matters.
// Sampling weights are folded symmetrically into the working covariance.
type GEESolver struct {
	MaxIter int
	Tol     float64
}

// NewGEESolver returns a solver with the default iteration limit.
func NewGEESolver() GEESolver {
	return GEESolver{MaxIter: 50, Tol: 1e-8}
}

// Fit implements Solver.
func (g GEESolver) Fit(d *Design) (*Result, error) {
	if err := d.Check(); err != nil {
		return nil, err
	}
	maxIter := g.MaxIter
	if maxIter <= 0 {
		maxIter = 50
	}
	tol := g.Tol
	if tol <= 0 {
		tol = 1e-8
	}

	p := len(d.Names)
	clusters := groupClusters(d.Clusters)

	coef := make([]float64, p)
	converged := false

	for iter := 0; iter < maxIter; iter++ {
		eta := linearPredictor(d, coef)
		alpha := exchangeableAlpha(d, eta, clusters)

		h := mat.NewDense(p, p, nil)
		u := make([]float64, p)
		for _, idx := range clusters {
			uc, hc := clusterContribution(d, eta, idx, alpha)
			for j := 0; j < p; j++ {
				u[j] += uc[j]
				for k := 0; k < p; k++ {
					h.Set(j, k, h.At(j, k)+hc.At(j, k))
				}
			}
		}

		step := mat.NewVecDense(p, nil)
		if err := step.SolveVec(h, mat.NewVecDense(p, u)); err != nil {
			return &Result{Converged: false, N: d.N(), Method: "gee"},
				eris.Wrap(err, "solver: gee scoring step is singular")
		}

		maxDelta := 0.0
		for j := 0; j < p; j++ {
			delta := step.AtVec(j)
			coef[j] += delta
			if math.Abs(delta) > maxDelta {
				maxDelta = math.Abs(delta)
			}
		}
		if math.IsNaN(maxDelta) {
			return &Result{Converged: false, N: d.N(), Method: "gee"},
				eris.New("solver: gee update diverged")
		}
		if maxDelta < tol {
			converged = true
			break
		}
	}
	if !converged {
		return &Result{Converged: false, N: d.N(), Method: "gee"},
			eris.Errorf("solver: gee did not converge in %d iterations", maxIter)
	}

	se, err := g.robustSE(d, coef, clusters)
	if err != nil {
		return nil, err
	}

	res := buildResult(d.Names, coef, se, d.N(), "gee")
	for i := range res.Terms {
		res.Terms[i].Name = geeTermName(res.Terms[i].Name)
	}
	return res, nil
}

// robustSE computes the GEE sandwich covariance at the converged estimate.
func (g GEESolver) robustSE(d *Design, coef []float64, clusters map[string][]int) ([]float64, error) {
	p := len(d.Names)
	eta := linearPredictor(d, coef)
	alpha := exchangeableAlpha(d, eta, clusters)

	h := mat.NewDense(p, p, nil)
	meat := mat.NewDense(p, p, nil)
	for _, idx := range clusters {
		uc, hc := clusterContribution(d, eta, idx, alpha)
		for j := 0; j < p; j++ {
			for k := 0; k < p; k++ {
				h.Set(j, k, h.At(j, k)+hc.At(j, k))
				meat.Set(j, k, meat.At(j, k)+uc[j]*uc[k])
			}
		}
	}

	var hinv mat.Dense
	if err := hinv.Inverse(h); err != nil {
		return nil, eris.Wrap(err, "solver: singular gee information matrix")
	}
	var hb, v mat.Dense
	hb.Mul(&hinv, meat)
	v.Mul(&hb, &hinv)

	se := make([]float64, p)
	for j := 0; j < p; j++ {
		vjj := v.At(j, j)
		if vjj <= 0 || math.IsNaN(vjj) {
			return nil, eris.Errorf("solver: non-positive gee variance for %s", d.Names[j])
		}
		se[j] = math.Sqrt(vjj)
	}
	return se, nil
}

// clusterContribution returns the estimating-function contribution U_c and
// scoring matrix contribution H_c of one cluster, using the closed-form
// inverse of the exchangeable correlation:
//
//	R^-1 = (1/(1-a)) I - (a / ((1-a)(1+(m-1)a))) J
func clusterContribution(d *Design, eta []float64, idx []int, alpha float64) ([]float64, *mat.Dense) {
	p := len(d.Names)
	m := len(idx)

	c1 := 1 / (1 - alpha)
	c2 := alpha / ((1 - alpha) * (1 + float64(m-1)*alpha))

	// Standardized design rows p_i = sqrt(w_i) sqrt(v_i) x_i and residuals
	// r_i = sqrt(w_i) (y_i - mu_i) / sqrt(v_i), v_i = mu_i(1-mu_i).
	rows := make([][]float64, m)
	resid := make([]float64, m)
	colSum := make([]float64, p)
	residSum := 0.0
	for t, i := range idx {
		mu := logistic(eta[i])
		v := mu * (1 - mu)
		if v < 1e-12 {
			v = 1e-12
		}
		sw := math.Sqrt(d.Weights[i])
		q := math.Sqrt(v)

		row := make([]float64, p)
		for j := 0; j < p; j++ {
			row[j] = sw * q * d.Cols[j][i]
			colSum[j] += row[j]
		}
		rows[t] = row

		resid[t] = sw * (d.Y[i] - mu) / q
		residSum += resid[t]
	}

	u := make([]float64, p)
	hc := mat.NewDense(p, p, nil)

	// c1 * P'r and c1 * P'P terms.
	for t := 0; t < m; t++ {
		row := rows[t]
		for j := 0; j < p; j++ {
			u[j] += c1 * row[j] * resid[t]
			for k := j; k < p; k++ {
				inc := c1 * row[j] * row[k]
				hc.Set(j, k, hc.At(j, k)+inc)
				if k != j {
					hc.Set(k, j, hc.At(k, j)+inc)
				}
			}
		}
	}
	// Rank-one correction from the J term.
	for j := 0; j < p; j++ {
		u[j] -= c2 * colSum[j] * residSum
		for k := 0; k < p; k++ {
			hc.Set(j, k, hc.At(j, k)-c2*colSum[j]*colSum[k])
		}
	}
	return u, hc
}

// exchangeableAlpha is the moment estimator of the common within-cluster
// correlation, computed from standardized residuals and clamped away from 1.
func exchangeableAlpha(d *Design, eta []float64, clusters map[string][]int) float64 {
	var num, pairs float64
	for _, idx := range clusters {
		m := len(idx)
		if m < 2 {
			continue
		}
		var sum, sumSq float64
		for _, i := range idx {
			mu := logistic(eta[i])
			v := mu * (1 - mu)
			if v < 1e-12 {
				v = 1e-12
			}
			r := (d.Y[i] - mu) / math.Sqrt(v)
			sum += r
			sumSq += r * r
		}
		// sum_{i<j} r_i r_j without the quadratic loop.
		num += (sum*sum - sumSq) / 2
		pairs += float64(m*(m-1)) / 2
	}
	if pairs == 0 {
		return 0
	}
	alpha := num / pairs
	if alpha < 0 {
		return 0
	}
	if alpha > 0.95 {
		return 0.95
	}
	return alpha
}

// groupClusters maps cluster ids to the observation indices they contain.
func groupClusters(ids []string) map[string][]int {
	groups := make(map[string][]int)
	for i, id := range ids {
		groups[id] = append(groups[id], i)
	}
	return groups
}

// geeTermName reports interaction terms with their components in the
// population-averaged summary convention, which lists the time-varying
// component first. Downstream extraction matches terms order-independently.
func geeTermName(name string) string {
	parts := strings.Split(name, ":")
	if len(parts) != 2 {
		return name
	}
	return parts[1] + ":" + parts[0]
}
