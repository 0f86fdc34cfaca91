package solver

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
)

// clusterSE computes design-based standard errors for a fitted weighted
// logistic model using Taylor-series linearization: score contributions are
// totaled per PSU, centered within each variance stratum, and sandwiched
// between the inverse information matrix. Strata containing a single PSU
// contribute no between-cluster variance (certainty units).
func clusterSE(d *Design, coef []float64) ([]float64, error) {
	p := len(d.Names)
	n := d.N()

	eta := linearPredictor(d, coef)

	// Information (bread): A = sum_i w_i mu_i (1-mu_i) x_i x_i'.
	a := mat.NewDense(p, p, nil)
	for i := 0; i < n; i++ {
		mu := logistic(eta[i])
		v := d.Weights[i] * mu * (1 - mu)
		for j := 0; j < p; j++ {
			xj := d.Cols[j][i]
			for k := j; k < p; k++ {
				inc := v * xj * d.Cols[k][i]
				a.Set(j, k, a.At(j, k)+inc)
				if k != j {
					a.Set(k, j, a.At(k, j)+inc)
				}
			}
		}
	}

	// Per-(stratum, PSU) score totals: z_hc = sum_i w_i (y_i - mu_i) x_i.
	type clusterScore = []float64
	scores := make(map[string]map[string]clusterScore)
	for i := 0; i < n; i++ {
		h, c := d.Strata[i], d.Clusters[i]
		if scores[h] == nil {
			scores[h] = make(map[string]clusterScore)
		}
		z := scores[h][c]
		if z == nil {
			z = make(clusterScore, p)
			scores[h][c] = z
		}
		r := d.Weights[i] * (d.Y[i] - logistic(eta[i]))
		for j := 0; j < p; j++ {
			z[j] += r * d.Cols[j][i]
		}
	}

	// Meat: B = sum_h n_h/(n_h-1) sum_c (z_hc - zbar_h)(z_hc - zbar_h)'.
	b := mat.NewDense(p, p, nil)
	for _, clusters := range scores {
		nh := len(clusters)
		if nh < 2 {
			continue
		}
		mean := make([]float64, p)
		for _, z := range clusters {
			for j := 0; j < p; j++ {
				mean[j] += z[j]
			}
		}
		for j := 0; j < p; j++ {
			mean[j] /= float64(nh)
		}
		scale := float64(nh) / float64(nh-1)
		dev := make([]float64, p)
		for _, z := range clusters {
			for j := 0; j < p; j++ {
				dev[j] = z[j] - mean[j]
			}
			for j := 0; j < p; j++ {
				for k := j; k < p; k++ {
					inc := scale * dev[j] * dev[k]
					b.Set(j, k, b.At(j, k)+inc)
					if k != j {
						b.Set(k, j, b.At(k, j)+inc)
					}
				}
			}
		}
	}

	var ainv mat.Dense
	if err := ainv.Inverse(a); err != nil {
		return nil, eris.Wrap(err, "solver: singular information matrix")
	}

	var ab, v mat.Dense
	ab.Mul(&ainv, b)
	v.Mul(&ab, &ainv)

	se := make([]float64, p)
	for j := 0; j < p; j++ {
		vjj := v.At(j, j)
		if vjj <= 0 || math.IsNaN(vjj) {
			return nil, eris.Errorf("solver: non-positive variance for %s", d.Names[j])
		}
		se[j] = math.Sqrt(vjj)
	}
	return se, nil
}
