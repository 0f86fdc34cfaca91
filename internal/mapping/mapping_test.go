package mapping

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/ruralhealth-lab/disparity-cli/internal/model"
)

func fp(v float64) *float64 { return &v }

func TestCategorize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		or, p   *float64
		present bool
		want    Category
	}{
		{"absent state", nil, nil, false, CategorySmallN},
		{"missing estimate", nil, nil, true, CategoryNotSig},
		{"non-significant", fp(1.8), fp(0.2), true, CategoryNotSig},
		{"boundary p", fp(1.8), fp(0.05), true, CategoryNotSig},
		{"urban higher", fp(0.85), fp(0.01), true, CategoryBelow1},
		{"low", fp(1.25), fp(0.01), true, CategoryORLow},
		{"mid", fp(1.49), fp(0.01), true, CategoryORMid},
		{"high", fp(1.5), fp(0.01), true, CategoryORHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Categorize(tt.or, tt.p, tt.present))
		})
	}
}

func TestLegendOrder(t *testing.T) {
	t.Parallel()

	legend := Legend()
	require.Len(t, legend, 6)
	assert.Equal(t, CategoryORHigh, legend[0])
	assert.Equal(t, CategorySmallN, legend[5])
}

func TestPolygonToMultiPolygon(t *testing.T) {
	t.Parallel()

	square := &shp.Polygon{
		NumParts: 1,
		Parts:    []int32{0},
		Points: []shp.Point{
			{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0},
		},
	}
	g := polygonToMultiPolygon(square)
	require.NotNil(t, g)
	mp, ok := g.(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 1, mp.NumPolygons())
	assert.Equal(t, 4326, mp.SRID())

	assert.Nil(t, polygonToMultiPolygon(nil))
	assert.Nil(t, polygonToMultiPolygon(&shp.Polygon{}))
}

func testStates() []StateShape {
	square := func() geom.T {
		mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
		poly := geom.NewPolygon(geom.XY)
		_ = poly.Push(geom.NewLinearRingFlat(geom.XY, []float64{0, 0, 0, 1, 1, 1, 1, 0, 0, 0}))
		_ = mp.Push(poly)
		return mp
	}
	return []StateShape{
		{FIPS: 39, Name: "Ohio", Geom: square()},
		{FIPS: 26, Name: "Michigan", Geom: square()},
		{FIPS: 55, Name: "Wisconsin", Geom: square()},
	}
}

func TestBuildFeatureCollection(t *testing.T) {
	t.Parallel()

	rows := []model.WideRow{
		{
			StratumCode: 26, StratumName: "Michigan",
			OR:     map[string]*float64{"model1": fp(1.6)},
			PValue: map[string]*float64{"model1": fp(0.001)},
		},
		{
			StratumCode: 39, StratumName: "Ohio",
			OR:     map[string]*float64{"model1": fp(1.1)},
			PValue: map[string]*float64{"model1": fp(0.4)},
		},
	}

	fc := BuildFeatureCollection(testStates(), rows, []string{"model1"})
	require.Len(t, fc.Features, 3)

	// Sorted by FIPS: 26, 39, 55.
	mi := fc.Features[0]
	assert.Equal(t, "26", mi.ID)
	assert.Equal(t, CategoryORHigh.Label, mi.Properties["category_model1"])
	assert.Equal(t, CategoryORHigh.Color, mi.Properties["color_model1"])
	assert.Equal(t, 1.6, mi.Properties["or_model1"])

	oh := fc.Features[1]
	assert.Equal(t, CategoryNotSig.Label, oh.Properties["category_model1"])

	// Wisconsin has no result row: small-sample bucket, no OR property.
	wi := fc.Features[2]
	assert.Equal(t, CategorySmallN.Label, wi.Properties["category_model1"])
	_, hasOR := wi.Properties["or_model1"]
	assert.False(t, hasOR)
}

func TestWriteGeoJSON(t *testing.T) {
	t.Parallel()

	fc := BuildFeatureCollection(testStates(), nil, []string{"model1"})
	path := filepath.Join(t.TempDir(), "map.geojson")
	require.NoError(t, WriteGeoJSON(path, fc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "FeatureCollection", decoded.Type)
	require.Len(t, decoded.Features, 3)
	assert.Equal(t, CategorySmallN.Label, decoded.Features[0].Properties["category_model1"])
}
