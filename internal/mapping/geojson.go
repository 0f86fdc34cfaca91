package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/ruralhealth-lab/disparity-cli/internal/model"
)

// BuildFeatureCollection joins state geometry to the wide result table. Each
// feature carries the state identity plus, per model, the treatment odds
// ratio, p-value, and the legend bucket it falls in. States without a result
// row get the small-sample bucket for every model.
func BuildFeatureCollection(states []StateShape, rows []model.WideRow, models []string) *geojson.FeatureCollection {
	byFIPS := make(map[int]model.WideRow, len(rows))
	for _, row := range rows {
		byFIPS[row.StratumCode] = row
	}

	sorted := make([]StateShape, len(states))
	copy(sorted, states)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FIPS < sorted[j].FIPS })

	fc := &geojson.FeatureCollection{}
	matched := 0
	for _, state := range sorted {
		row, present := byFIPS[state.FIPS]
		if present {
			matched++
		}

		props := map[string]any{
			"stratum_code": state.FIPS,
			"stratum_name": state.Name,
		}
		for _, m := range models {
			var or, p *float64
			if present {
				or, p = row.OR[m], row.PValue[m]
			}
			cat := Categorize(or, p, present && or != nil)

			if or != nil {
				props["or_"+m] = *or
			}
			if p != nil {
				props["pvalue_"+m] = *p
			}
			props["category_"+m] = cat.Label
			props["color_"+m] = cat.Color
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         fmt.Sprintf("%02d", state.FIPS),
			Geometry:   state.Geom,
			Properties: props,
		})
	}

	zap.L().Info("mapping: feature collection built",
		zap.Int("states", len(sorted)),
		zap.Int("with_results", matched),
	)
	return fc
}

// WriteGeoJSON writes the feature collection to path.
func WriteGeoJSON(path string, fc *geojson.FeatureCollection) error {
	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "mapping: marshal geojson")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "mapping: write geojson")
	}
	return nil
}
