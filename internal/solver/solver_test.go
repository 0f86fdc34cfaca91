package solver

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticDesign builds n observations split evenly urban/rural across
// three years, with outcome log-odds = intercept + effect*rural.
func syntheticDesign(n int, intercept, effect float64, seed int64) *Design {
	rng := rand.New(rand.NewSource(seed))

	d := &Design{
		Names: []string{InterceptName, "rural", "year_c"},
		Cols:  [][]float64{make([]float64, n), make([]float64, n), make([]float64, n)},
	}
	d.Y = make([]float64, n)
	d.Weights = make([]float64, n)
	d.Strata = make([]string, n)
	d.Clusters = make([]string, n)

	for i := 0; i < n; i++ {
		rural := float64(i % 2)
		year := float64(i%3 - 1)

		d.Cols[0][i] = 1
		d.Cols[1][i] = rural
		d.Cols[2][i] = year

		p := 1 / (1 + math.Exp(-(intercept + effect*rural)))
		if rng.Float64() < p {
			d.Y[i] = 1
		}
		d.Weights[i] = 1
		d.Strata[i] = fmt.Sprintf("s%d", i%5)
		d.Clusters[i] = fmt.Sprintf("c%d", i%50)
	}
	return d
}

func TestDesign_Check(t *testing.T) {
	t.Parallel()

	t.Run("empty design", func(t *testing.T) {
		t.Parallel()
		err := (&Design{}).Check()
		assert.Error(t, err)
	})

	t.Run("constant predictor", func(t *testing.T) {
		t.Parallel()
		d := syntheticDesign(100, -1, 0.4, 1)
		for i := range d.Cols[1] {
			d.Cols[1][i] = 1 // all rural
		}
		err := d.Check()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "constant")
	})

	t.Run("single cluster", func(t *testing.T) {
		t.Parallel()
		d := syntheticDesign(100, -1, 0.4, 1)
		for i := range d.Clusters {
			d.Clusters[i] = "only"
		}
		err := d.Check()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PSU")
	})

	t.Run("intercept exempt from constant check", func(t *testing.T) {
		t.Parallel()
		d := syntheticDesign(100, -1, 0.4, 1)
		assert.NoError(t, d.Check())
	})
}

func TestMLSolver_RecoversKnownEffect(t *testing.T) {
	t.Parallel()

	// 1000 records, injected rural effect +0.4 log-odds, no clustering
	// signal. The estimate should land near 0.4 with a non-inflated p.
	d := syntheticDesign(1000, -1.0, 0.4, 7)

	res, err := MLSolver{}.Fit(d)
	require.NoError(t, err)
	require.True(t, res.Converged)
	assert.Equal(t, "ml", res.Method)
	assert.Equal(t, 1000, res.N)

	var rural *Term
	for i := range res.Terms {
		if res.Terms[i].Name == "rural" {
			rural = &res.Terms[i]
		}
	}
	require.NotNil(t, rural)

	assert.InDelta(t, 0.4, rural.Coef, 0.35, "coefficient within sampling error of truth")
	assert.InDelta(t, math.Exp(rural.Coef), math.Exp(0.4), 0.6)
	assert.Greater(t, rural.SE, 0.0)
	assert.Less(t, rural.SE, 0.5, "robust SE not inflated without cluster effects")
	assert.Less(t, rural.P, 1.0)
	assert.Greater(t, rural.P, 0.0)
}

func TestGEESolver_AgreesWithML(t *testing.T) {
	t.Parallel()

	d := syntheticDesign(1000, -1.0, 0.4, 11)

	ml, err := MLSolver{}.Fit(d)
	require.NoError(t, err)
	gee, err := NewGEESolver().Fit(d)
	require.NoError(t, err)
	require.True(t, gee.Converged)
	assert.Equal(t, "gee", gee.Method)

	for j := range ml.Terms {
		assert.InDelta(t, ml.Terms[j].Coef, gee.Terms[j].Coef, 0.1,
			"term %s", ml.Terms[j].Name)
	}
}

func TestGEESolver_InteractionNaming(t *testing.T) {
	t.Parallel()

	d := syntheticDesign(600, -1.0, 0.4, 3)

	// Append a product column named in request order.
	inter := make([]float64, d.N())
	for i := range inter {
		inter[i] = d.Cols[1][i] * d.Cols[2][i]
	}
	d.Names = append(d.Names, "rural:year_c")
	d.Cols = append(d.Cols, inter)

	res, err := NewGEESolver().Fit(d)
	require.NoError(t, err)

	// The GEE summary reverses the component order.
	names := make([]string, len(res.Terms))
	for i, term := range res.Terms {
		names[i] = term.Name
	}
	assert.Contains(t, names, "year_c:rural")
	assert.NotContains(t, names, "rural:year_c")
}

func TestExchangeableAlpha_Bounds(t *testing.T) {
	t.Parallel()

	d := syntheticDesign(200, -1.0, 0.0, 5)
	eta := linearPredictor(d, []float64{-1, 0, 0})
	alpha := exchangeableAlpha(d, eta, groupClusters(d.Clusters))
	assert.GreaterOrEqual(t, alpha, 0.0)
	assert.LessOrEqual(t, alpha, 0.95)
}
